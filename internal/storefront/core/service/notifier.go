package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

type NotificationInput struct {
	UserID  string
	Type    domain.NotificationType
	Title   string
	Message string
	OrderID string
}

// Notifier persists notifications and pushes them to the owner's room.
//
// The push is best-effort and not durable: a client that is offline or too
// slow misses it and catches up through List, which is the source of truth.
type Notifier struct {
	store   ports.Store
	emitter ports.Emitter
	logger  *slog.Logger
}

// NewNotifier accepts a nil emitter, in which case notifications are only stored.
func NewNotifier(store ports.Store, emitter ports.Emitter, logger *slog.Logger) *Notifier {
	return &Notifier{store: store, emitter: emitter, logger: logger}
}

func (n *Notifier) Dispatch(ctx context.Context, in NotificationInput) (domain.Notification, error) {
	if in.UserID == "" {
		return domain.Notification{}, fmt.Errorf("notifier: %w: user id is required", domain.ErrInvalidID)
	}
	if in.Type == "" {
		in.Type = domain.NotificationOrder
	}

	notif := domain.Notification{
		ID:        domain.NewID(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		OrderID:   in.OrderID,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.store.Notifications().Create(ctx, notif); err != nil {
		return domain.Notification{}, fmt.Errorf("notifier: %w", err)
	}

	if n.emitter != nil {
		n.emitter.EmitTo(notif.UserID, ports.EventNotification, NotificationEvent(notif))
	}

	n.logger.InfoContext(ctx, "notification dispatched",
		slog.String("notification_id", notif.ID),
		slog.String("user_id", notif.UserID),
		slog.String("order_id", notif.OrderID),
	)
	return notif, nil
}

func (n *Notifier) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return n.store.Notifications().ListByUser(ctx, userID)
}

func (n *Notifier) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := n.store.Notifications().MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (n *Notifier) Delete(ctx context.Context, userID, id string) error {
	ok, err := n.store.Notifications().Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// Clear removes all of the user's notifications and reports how many there were.
func (n *Notifier) Clear(ctx context.Context, userID string) (int64, error) {
	return n.store.Notifications().DeleteAll(ctx, userID)
}

// NotificationEvent converts a stored notification into its push payload.
func NotificationEvent(n domain.Notification) ports.NotificationEvent {
	return ports.NotificationEvent{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		OrderID:   n.OrderID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
