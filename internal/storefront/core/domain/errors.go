package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrNoOrderItems     = errors.New("no order items found")
	ErrNoOrderIDs       = errors.New("no valid order ids provided")
	ErrMissingPayment   = errors.New("payment id is required")
	ErrDuplicatePayment = errors.New("order already exists for this payment id")

	ErrNotFound                   = errors.New("not found")
	ErrOrderNotFound        error = notFoundError("order not found")
	ErrProductNotFound      error = notFoundError("product not found")
	ErrNotificationNotFound error = notFoundError("notification not found")
	ErrCartItemNotFound     error = notFoundError("cart item not found")

	ErrTerminalStatus = errors.New("order already in terminal status")
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrForbidden      = errors.New("not authorized")
)

// notFoundError values also match ErrNotFound.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }
