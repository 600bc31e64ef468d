package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
)

type cartRepository struct {
	s *Store
}

type cartRow struct {
	UserID    string `db:"user_id"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type cartItemRow struct {
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	var row cartRow
	err := r.s.q.QueryRowxContext(ctx,
		r.s.rebind(`SELECT user_id, created_at, updated_at FROM carts WHERE user_id = ?`), userID,
	).StructScan(&row)
	if isNoRows(err) {
		return domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart of %q: %w", userID, err)
	}

	var items []cartItemRow
	err = sqlx.SelectContext(ctx, r.s.q, &items,
		r.s.rebind(`SELECT product_id, quantity FROM cart_items WHERE user_id = ? ORDER BY seq`), userID,
	)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("list cart items of %q: %w", userID, err)
	}

	cart := domain.Cart{UserID: row.UserID, Items: make([]domain.CartItem, 0, len(items))}
	if cart.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return domain.Cart{}, err
	}
	if cart.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return domain.Cart{}, err
	}
	for _, it := range items {
		cart.Items = append(cart.Items, domain.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	return r.s.withTx(ctx, func(tx *Store) error {
		if err := tx.touchCart(ctx, userID); err != nil {
			return err
		}

		const q = `
			INSERT INTO cart_items (user_id, product_id, quantity, seq)
			VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM cart_items WHERE user_id = ?))
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + excluded.quantity`

		if _, err := tx.q.ExecContext(ctx, tx.rebind(q), userID, productID, quantity, userID); err != nil {
			return fmt.Errorf("add %q to cart of %q: %w", productID, userID, err)
		}
		return nil
	})
}

// SetQuantity overwrites the quantity of an existing entry. A quantity of
// zero or less removes it.
func (r *cartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return r.RemoveItem(ctx, userID, productID)
	}

	var found bool
	err := r.s.withTx(ctx, func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx,
			tx.rebind(`UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?`),
			quantity, userID, productID,
		)
		if err != nil {
			return fmt.Errorf("set quantity of %q in cart of %q: %w", productID, userID, err)
		}
		n, err := rowsAffected(res)
		if err != nil || n == 0 {
			return err
		}
		found = true
		return tx.touchCart(ctx, userID)
	})
	return found, err
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	var found bool
	err := r.s.withTx(ctx, func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx,
			tx.rebind(`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`), userID, productID,
		)
		if err != nil {
			return fmt.Errorf("remove %q from cart of %q: %w", productID, userID, err)
		}
		n, err := rowsAffected(res)
		if err != nil || n == 0 {
			return err
		}
		found = true
		return tx.touchCart(ctx, userID)
	})
	return found, err
}

// Clear empties the cart but keeps the cart itself.
func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.s.q.ExecContext(ctx, r.s.rebind(`DELETE FROM cart_items WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("clear cart of %q: %w", userID, err)
	}
	return nil
}

// touchCart creates the cart row on first use and bumps updated_at.
func (s *Store) touchCart(ctx context.Context, userID string) error {
	const q = `
		INSERT INTO carts (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at`

	now := formatTime(time.Now())
	if _, err := s.q.ExecContext(ctx, s.rebind(q), userID, now, now); err != nil {
		return fmt.Errorf("upsert cart of %q: %w", userID, err)
	}
	return nil
}
