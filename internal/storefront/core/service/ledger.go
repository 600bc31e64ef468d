package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

// Ledger applies stock movements to products. Every movement is a single
// conditional update in the repository; stock never goes below zero.
type Ledger struct {
	products ports.ProductRepository
	logger   *slog.Logger
}

func NewLedger(products ports.ProductRepository, logger *slog.Logger) *Ledger {
	return &Ledger{products: products, logger: logger}
}

// Adjust moves quantity units of productID in direction and returns the new
// stock. It fails with domain.ErrProductNotFound when the product is gone.
func (l *Ledger) Adjust(ctx context.Context, productID string, quantity int, direction domain.StockDirection) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}

	stock, err := l.products.AdjustStock(ctx, productID, direction.Delta(quantity))
	if err != nil {
		return 0, fmt.Errorf("ledger: %s %d of %s: %w", direction, quantity, productID, err)
	}

	l.logger.DebugContext(ctx, "stock adjusted",
		slog.String("product_id", productID),
		slog.String("direction", string(direction)),
		slog.Int("quantity", quantity),
		slog.Int("stock", stock),
	)
	return stock, nil
}
