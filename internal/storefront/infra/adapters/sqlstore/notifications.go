package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
)

type notificationRepository struct {
	s *Store
}

type notificationRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Type      string `db:"type"`
	Title     string `db:"title"`
	Message   string `db:"message"`
	OrderID   string `db:"order_id"`
	IsRead    int    `db:"is_read"`
	CreatedAt string `db:"created_at"`
}

func (r *notificationRepository) Create(ctx context.Context, n domain.Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, type, title, message, order_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	read := 0
	if n.Read {
		read = 1
	}

	_, err := r.s.q.ExecContext(ctx, r.s.rebind(q),
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.OrderID, read, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification %q: %w", n.ID, err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first.
func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	const q = `
		SELECT id, user_id, type, title, message, order_id, is_read, created_at
		FROM   notifications
		WHERE  user_id = ?
		ORDER  BY created_at DESC, id DESC`

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, r.s.q, &rows, r.s.rebind(q), userID); err != nil {
		return nil, fmt.Errorf("list notifications of %q: %w", userID, err)
	}

	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Type:      domain.NotificationType(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			OrderID:   row.OrderID,
			Read:      row.IsRead != 0,
			CreatedAt: at,
		})
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	return r.exec(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *notificationRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	return r.exec(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *notificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.s.q.ExecContext(ctx, r.s.rebind(`DELETE FROM notifications WHERE user_id = ?`), userID)
	if err != nil {
		return 0, fmt.Errorf("delete notifications of %q: %w", userID, err)
	}
	return rowsAffected(res)
}

func (r *notificationRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.s.q.ExecContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("notifications: %w", err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}
