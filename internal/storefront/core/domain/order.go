package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Order struct {
	ID           string
	UserID       string
	Items        []OrderItem
	ShippingInfo ShippingInfo
	PaymentInfo  PaymentInfo

	ItemsPrice    decimal.Decimal
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
	TotalPrice    decimal.Decimal
	Currency      currency.Unit

	Status      OrderStatus
	PaidAt      time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	SoonAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a snapshot of the product taken when the order was placed.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ShippingInfo struct {
	Address string
	City    string
	State   string
	Country string
	PinCode string
	PhoneNo string
}

type PaymentInfo struct {
	ID     string
	Status string
}

// Total returns the order total in the order currency.
func (o Order) Total() Money {
	return Money{Amount: o.TotalPrice, Currency: o.Currency}
}

// IsOwnedBy reports whether userID placed the order.
func (o Order) IsOwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// ApplyStatus moves the order to status and stamps the matching timestamp.
func (o *Order) ApplyStatus(status OrderStatus, at time.Time) {
	o.Status = status
	o.UpdatedAt = at

	switch status {
	case StatusDelivered:
		o.DeliveredAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
	case StatusSoon:
		o.SoonAt = &at
	}
}

// StatusUpdate is what gets broadcast for every order a transition touched.
type StatusUpdate struct {
	OrderID string
	Status  OrderStatus
}

// StatusChange is one audit row in an order's history.
type StatusChange struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	Actor   string

	// TraceID and SpanID identify the span active when the change was applied.
	TraceID string
	SpanID  string

	At time.Time
}
