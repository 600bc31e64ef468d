package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
)

type historyRepository struct {
	s *Store
}

type historyRow struct {
	OrderID    string `db:"order_id"`
	FromStatus string `db:"from_status"`
	ToStatus   string `db:"to_status"`
	Actor      string `db:"actor"`
	TraceID    string `db:"trace_id"`
	SpanID     string `db:"span_id"`
	ChangedAt  string `db:"changed_at"`
}

func (r *historyRepository) Append(ctx context.Context, c domain.StatusChange) error {
	const q = `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor, trace_id, span_id, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.s.q.ExecContext(ctx, r.s.rebind(q),
		c.OrderID, string(c.From), string(c.To), c.Actor, c.TraceID, c.SpanID, formatTime(c.At),
	)
	if err != nil {
		return fmt.Errorf("append history for %q: %w", c.OrderID, err)
	}
	return nil
}

// ListByOrder returns the changes in the order they were applied.
func (r *historyRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	const q = `
		SELECT order_id, from_status, to_status, actor, trace_id, span_id, changed_at
		FROM   order_status_history
		WHERE  order_id = ?
		ORDER  BY id`

	var rows []historyRow
	if err := sqlx.SelectContext(ctx, r.s.q, &rows, r.s.rebind(q), orderID); err != nil {
		return nil, fmt.Errorf("list history of %q: %w", orderID, err)
	}

	out := make([]domain.StatusChange, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.ChangedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StatusChange{
			OrderID: row.OrderID,
			From:    domain.OrderStatus(row.FromStatus),
			To:      domain.OrderStatus(row.ToStatus),
			Actor:   row.Actor,
			TraceID: row.TraceID,
			SpanID:  row.SpanID,
			At:      at,
		})
	}
	return out, nil
}
