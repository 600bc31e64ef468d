package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Image       string
}

type ProductService struct {
	store  ports.Store
	logger *slog.Logger
}

// NewProductService returns a catalog service backed by store.
func NewProductService(store ports.Store, logger *slog.Logger) *ProductService {
	return &ProductService{store: store, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	now := time.Now().UTC()
	p := domain.Product{
		ID:          domain.NewID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}

	if err := s.store.Products().Create(ctx, p); err != nil {
		return domain.Product{}, err
	}

	s.logger.InfoContext(ctx, "product created", slog.String("product_id", p.ID), slog.Int("stock", p.Stock))
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	if !domain.IsObjectID(id) {
		return domain.Product{}, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	return s.store.Products().Get(ctx, id)
}

func (s *ProductService) List(ctx context.Context, page ports.Page) ([]domain.Product, error) {
	return s.store.Products().List(ctx, page)
}

// Delete removes the product. Orders keep their item snapshots.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if !domain.IsObjectID(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}

	ok, err := s.store.Products().Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProductNotFound
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}
