package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

type orderRepository struct {
	s *Store
}

type orderRow struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	Status        string          `db:"status"`
	ShippingInfo  string          `db:"shipping_info"`
	PaymentID     string          `db:"payment_id"`
	PaymentStatus string          `db:"payment_status"`
	ItemsPrice    decimal.Decimal `db:"items_price"`
	TaxPrice      decimal.Decimal `db:"tax_price"`
	ShippingPrice decimal.Decimal `db:"shipping_price"`
	TotalPrice    decimal.Decimal `db:"total_price"`
	Currency      string          `db:"currency"`
	PaidAt        string          `db:"paid_at"`
	DeliveredAt   sql.NullString  `db:"delivered_at"`
	CancelledAt   sql.NullString  `db:"cancelled_at"`
	SoonAt        sql.NullString  `db:"soon_at"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

type orderItemRow struct {
	OrderID   string          `db:"order_id"`
	Seq       int             `db:"seq"`
	ProductID string          `db:"product_id"`
	Name      string          `db:"name"`
	Image     string          `db:"image"`
	Price     decimal.Decimal `db:"price"`
	Quantity  int             `db:"quantity"`
}

// shippingInfoDoc is the JSON shape of the shipping_info column.
type shippingInfoDoc struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	PinCode string `json:"pinCode"`
	PhoneNo string `json:"phoneNo"`
}

const orderColumns = `id, user_id, status, shipping_info, payment_id, payment_status,
	items_price, tax_price, shipping_price, total_price, currency,
	paid_at, delivered_at, cancelled_at, soon_at, created_at, updated_at`

const orderItemColumns = `order_id, seq, product_id, name, image, price, quantity`

func (r *orderRepository) Create(ctx context.Context, o domain.Order) error {
	shipping, err := json.Marshal(shippingInfoDoc(o.ShippingInfo))
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	return r.s.withTx(ctx, func(tx *Store) error {
		const insertOrder = `
			INSERT INTO orders (` + orderColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.q.ExecContext(ctx, tx.rebind(insertOrder),
			o.ID, o.UserID, string(o.Status), string(shipping),
			o.PaymentInfo.ID, o.PaymentInfo.Status,
			o.ItemsPrice.String(), o.TaxPrice.String(), o.ShippingPrice.String(), o.TotalPrice.String(),
			o.Currency.String(),
			formatTime(o.PaidAt), formatNullTime(o.DeliveredAt), formatNullTime(o.CancelledAt), formatNullTime(o.SoonAt),
			formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicatePayment
			}
			return fmt.Errorf("insert order %q: %w", o.ID, err)
		}

		const insertItem = `
			INSERT INTO order_items (` + orderItemColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)`

		for i, it := range o.Items {
			_, err := tx.q.ExecContext(ctx, tx.rebind(insertItem),
				o.ID, i, it.ProductID, it.Name, it.Image, it.Price.String(), it.Quantity,
			)
			if err != nil {
				return fmt.Errorf("insert order item %d of %q: %w", i, o.ID, err)
			}
		}
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return r.getOne(ctx, q, id)
}

func (r *orderRepository) FindByPayment(ctx context.Context, userID, paymentID string) (domain.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? AND payment_id = ?`
	return r.getOne(ctx, q, userID, paymentID)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
		SELECT ` + orderColumns + `
		FROM   orders
		WHERE  user_id = ?
		ORDER  BY created_at DESC, id DESC`
	return r.list(ctx, q, userID)
}

func (r *orderRepository) List(ctx context.Context, page ports.Page) ([]domain.Order, error) {
	const q = `
		SELECT ` + orderColumns + `
		FROM   orders
		ORDER  BY created_at DESC, id DESC
		LIMIT  ? OFFSET ?`
	return r.list(ctx, q, page.Size, page.Offset())
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.s.q.QueryRowxContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// UpdateStatus is a compare-and-swap on the stored status.
func (r *orderRepository) UpdateStatus(ctx context.Context, o domain.Order, from domain.OrderStatus) error {
	const q = `
		UPDATE orders
		SET    status = ?, delivered_at = ?, cancelled_at = ?, soon_at = ?, updated_at = ?
		WHERE  id = ? AND status = ?`

	res, err := r.s.q.ExecContext(ctx, r.s.rebind(q),
		string(o.Status),
		formatNullTime(o.DeliveredAt), formatNullTime(o.CancelledAt), formatNullTime(o.SoonAt),
		formatTime(o.UpdatedAt),
		o.ID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update status of %q: %w", o.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.s.q.QueryRowxContext(ctx, r.s.rebind(`SELECT 1 FROM orders WHERE id = ?`), o.ID).Scan(&exists)
	if isNoRows(err) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("check order %q: %w", o.ID, err)
	}
	return domain.ErrStatusConflict
}

func (r *orderRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.s.withTx(ctx, func(tx *Store) error {
		for _, table := range []string{"order_items", "order_status_history"} {
			q, args, err := tx.in(`DELETE FROM `+table+` WHERE order_id IN (?)`, ids)
			if err != nil {
				return err
			}
			if _, err := tx.q.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}

		q, args, err := tx.in(`DELETE FROM orders WHERE id IN (?)`, ids)
		if err != nil {
			return err
		}
		res, err := tx.q.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		deleted, err = rowsAffected(res)
		return err
	})
	return deleted, err
}

func (r *orderRepository) getOne(ctx context.Context, query string, args ...any) (domain.Order, error) {
	var row orderRow
	if err := r.s.q.QueryRowxContext(ctx, r.s.rebind(query), args...).StructScan(&row); err != nil {
		if isNoRows(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	orders, err := r.withItems(ctx, []orderRow{row})
	if err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.s.q, &rows, r.s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return r.withItems(ctx, rows)
}

// withItems loads the line items of all rows with one query.
func (r *orderRepository) withItems(ctx context.Context, rows []orderRow) ([]domain.Order, error) {
	orders := make([]domain.Order, 0, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	q, args, err := r.s.in(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id IN (?) ORDER BY order_id, seq`, ids)
	if err != nil {
		return nil, err
	}

	var itemRows []orderItemRow
	if err := sqlx.SelectContext(ctx, r.s.q, &itemRows, q, args...); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	items := make(map[string][]domain.OrderItem, len(rows))
	for _, it := range itemRows {
		items[it.OrderID] = append(items[it.OrderID], domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	for _, row := range rows {
		o, err := mapOrderRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapOrderRowToDomain: %w", err)
		}
		o.Items = items[row.ID]
		orders = append(orders, o)
	}
	return orders, nil
}

func mapOrderRowToDomain(row orderRow) (domain.Order, error) {
	var shipping shippingInfoDoc
	if err := json.Unmarshal([]byte(row.ShippingInfo), &shipping); err != nil {
		return domain.Order{}, fmt.Errorf("shipping info of %q: %w", row.ID, err)
	}

	unit, err := currency.ParseISO(row.Currency)
	if err != nil {
		return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", row.Currency, err)
	}

	o := domain.Order{
		ID:            row.ID,
		UserID:        row.UserID,
		ShippingInfo:  domain.ShippingInfo(shipping),
		PaymentInfo:   domain.PaymentInfo{ID: row.PaymentID, Status: row.PaymentStatus},
		ItemsPrice:    row.ItemsPrice,
		TaxPrice:      row.TaxPrice,
		ShippingPrice: row.ShippingPrice,
		TotalPrice:    row.TotalPrice,
		Currency:      unit,
		Status:        domain.OrderStatus(row.Status),
	}

	if o.PaidAt, err = parseTime(row.PaidAt); err != nil {
		return domain.Order{}, err
	}
	if o.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	if o.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if o.DeliveredAt, err = parseNullTime(row.DeliveredAt); err != nil {
		return domain.Order{}, err
	}
	if o.CancelledAt, err = parseNullTime(row.CancelledAt); err != nil {
		return domain.Order{}, err
	}
	if o.SoonAt, err = parseNullTime(row.SoonAt); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}
