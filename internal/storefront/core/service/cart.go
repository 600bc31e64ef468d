package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

// CartLine is a cart entry joined with its live product. Product is nil
// when the product has been deleted since it was added.
type CartLine struct {
	ProductID string
	Quantity  int
	Product   *domain.Product
}

type CartService struct {
	store  ports.Store
	logger *slog.Logger
}

// NewCartService returns a cart service backed by store.
func NewCartService(store ports.Store, logger *slog.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

func (s *CartService) Get(ctx context.Context, userID string) ([]CartLine, error) {
	cart, err := s.store.Carts().Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.lines(ctx, cart)
}

// AddItem adds quantity units, defaulting to one, incrementing an existing entry.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) ([]CartLine, error) {
	if !domain.IsObjectID(productID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidID, productID)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}

	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.store.Carts().AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// SetQuantity overwrites an entry's quantity; zero or less removes it.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) ([]CartLine, error) {
	found, err := s.store.Carts().SetQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrCartItemNotFound
	}
	return s.Get(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) ([]CartLine, error) {
	found, err := s.store.Carts().RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrCartItemNotFound
	}
	return s.Get(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.store.Carts().Clear(ctx, userID)
}

func (s *CartService) lines(ctx context.Context, cart domain.Cart) ([]CartLine, error) {
	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.store.Products().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]CartLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		line := CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
		if p, ok := products[it.ProductID]; ok {
			line.Product = &p
		}
		lines = append(lines, line)
	}
	return lines, nil
}
