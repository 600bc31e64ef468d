package ports

import "time"

const (
	EventJoin         = "join"
	EventNotification = "notification"
	EventOrderUpdated = "orderUpdated"
)

// Emitter pushes events to connected clients. Delivery is best-effort:
// implementations never block the caller and never report failures.
type Emitter interface {
	Broadcast(event string, data any)
	EmitTo(room, event string, data any)
}

// NotificationEvent is the payload of EventNotification.
type NotificationEvent struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	Read      bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderUpdatedEvent is one element of the EventOrderUpdated payload.
type OrderUpdatedEvent struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}
