package domain

import "time"

type NotificationType string

const (
	NotificationOrder    NotificationType = "order"
	NotificationDelivery NotificationType = "delivery"
	NotificationAlert    NotificationType = "alert"
	NotificationPromo    NotificationType = "promo"
)

type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	OrderID   string
	Read      bool
	CreatedAt time.Time
}
