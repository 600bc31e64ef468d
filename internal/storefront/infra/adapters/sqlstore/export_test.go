package sqlstore

import "context"

// Reset empties every table between tests.
func Reset(ctx context.Context, s *Store) error {
	for _, table := range []string{
		"order_status_history", "notifications", "cart_items", "carts", "order_items", "orders", "products",
	} {
		if _, err := s.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
