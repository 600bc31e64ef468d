package domain

import "fmt"

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusSoon       OrderStatus = "Soon"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

var orderStatuses = map[OrderStatus]struct{}{
	StatusProcessing: {},
	StatusShipped:    {},
	StatusSoon:       {},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ParseOrderStatus accepts only the closed set of persisted statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := orderStatuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// IsTerminal reports whether no further transition is accepted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) String() string { return string(s) }

type StockDirection string

const (
	StockIncrease StockDirection = "increase"
	StockDecrease StockDirection = "decrease"
)

// StockEffect returns the ledger direction a status applies to every line item.
// Statuses without a stock effect return ok=false.
func StockEffect(s OrderStatus) (dir StockDirection, ok bool) {
	switch s {
	case StatusShipped, StatusDelivered:
		return StockDecrease, true
	case StatusCancelled:
		return StockIncrease, true
	default:
		return "", false
	}
}

// Delta converts a quantity into a signed stock delta.
func (d StockDirection) Delta(quantity int) int {
	if d == StockDecrease {
		return -quantity
	}
	return quantity
}
