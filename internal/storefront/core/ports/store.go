package ports

import (
	"context"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
)

// Store groups the repositories that must share a transaction.
type Store interface {
	Products() ProductRepository
	Orders() OrderRepository
	Carts() CartRepository
	Notifications() NotificationRepository
	History() HistoryRepository

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithTx on a transactional Store reuses the open transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
	List(ctx context.Context, page Page) ([]domain.Product, error)
	Delete(ctx context.Context, id string) (bool, error)

	// AdjustStock applies delta in a single statement, clamping at zero,
	// and returns the resulting stock. Missing products yield domain.ErrProductNotFound.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
}

type OrderRepository interface {
	// Create fails with domain.ErrDuplicatePayment when the user already has
	// an order for the same payment id.
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	FindByPayment(ctx context.Context, userID, paymentID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, page Page) ([]domain.Order, error)
	Count(ctx context.Context) (int, error)

	// UpdateStatus persists o's status fields only if the stored status is
	// still from; otherwise it returns domain.ErrStatusConflict.
	UpdateStatus(ctx context.Context, o domain.Order, from domain.OrderStatus) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type CartRepository interface {
	// Get returns an empty cart when the user never added anything.
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// AddItem creates the cart lazily and increments an existing entry.
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (bool, error)
	RemoveItem(ctx context.Context, userID, productID string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// HistoryRepository is an append-only log of applied status changes.
type HistoryRepository interface {
	Append(ctx context.Context, c domain.StatusChange) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}

type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 500
)

// NewPage normalises user supplied paging values.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages returns how many pages of p.Size cover total rows.
func (p Page) TotalPages(total int) int {
	if p.Size <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}
