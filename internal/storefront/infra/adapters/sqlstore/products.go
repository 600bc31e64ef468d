package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

type productRepository struct {
	s *Store
}

type productRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Stock       int             `db:"stock"`
	Category    string          `db:"category"`
	Image       string          `db:"image"`
	CreatedAt   string          `db:"created_at"`
	UpdatedAt   string          `db:"updated_at"`
}

const productColumns = `id, name, description, price, stock, category, image, created_at, updated_at`

func (r *productRepository) Create(ctx context.Context, p domain.Product) error {
	const q = `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.s.q.ExecContext(ctx, r.s.rebind(q),
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock, p.Category, p.Image,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.ID, err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	var row productRow
	if err := r.s.q.QueryRowxContext(ctx, r.s.rebind(q), id).StructScan(&row); err != nil {
		if isNoRows(err) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product %q: %w", id, err)
	}
	return mapProductRowToDomain(row)
}

func (r *productRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q, args, err := r.s.in(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.s.q, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	for _, row := range rows {
		p, err := mapProductRowToDomain(row)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (r *productRepository) List(ctx context.Context, page ports.Page) ([]domain.Product, error) {
	const q = `
		SELECT ` + productColumns + `
		FROM   products
		ORDER  BY created_at DESC, id DESC
		LIMIT  ? OFFSET ?`

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.s.q, &rows, r.s.rebind(q), page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := mapProductRowToDomain(row)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *productRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.s.q.ExecContext(ctx, r.s.rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete product %q: %w", id, err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// AdjustStock is a single conditional update, so concurrent adjustments of
// the same product never lose each other's writes.
func (r *productRepository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	q := fmt.Sprintf(`
		UPDATE products
		SET    stock = %s(stock + ?, 0), updated_at = ?
		WHERE  id = ?
		RETURNING stock`, r.s.dialect.greatest)

	var stock int
	err := r.s.q.QueryRowxContext(ctx, r.s.rebind(q), delta, formatTime(time.Now()), id).Scan(&stock)
	if err != nil {
		if isNoRows(err) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("adjust stock of %q: %w", id, err)
	}
	return stock, nil
}

func mapProductRowToDomain(row productRow) (domain.Product, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}

	return domain.Product{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Stock:       row.Stock,
		Category:    row.Category,
		Image:       row.Image,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
