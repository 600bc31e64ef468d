package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

const checkoutOperation = "checkout"

type ItemInput struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	ShippingInfo domain.ShippingInfo
	// Items may be empty, in which case the user's cart is ordered.
	Items       []ItemInput
	PaymentInfo domain.PaymentInfo
}

type CheckoutConfig struct {
	Pricing        domain.Pricing
	Currency       currency.Unit
	IdempotencyTTL time.Duration
}

// CheckoutService turns a cart or an explicit item list into an order.
type CheckoutService struct {
	store    ports.Store
	cache    cache.Cache
	notifier *Notifier
	cfg      CheckoutConfig
	logger   *slog.Logger
}

func NewCheckoutService(store ports.Store, c cache.Cache, notifier *Notifier, cfg CheckoutConfig, logger *slog.Logger) *CheckoutService {
	if c == nil {
		c = cache.Nop{}
	}
	return &CheckoutService{store: store, cache: c, notifier: notifier, cfg: cfg, logger: logger}
}

// PlaceOrder creates an order priced from live product data. A repeated call
// with the same payment id returns the existing order and created=false.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string, in PlaceOrderInput) (order domain.Order, created bool, err error) {
	paymentID := strings.TrimSpace(in.PaymentInfo.ID)
	if paymentID == "" {
		return domain.Order{}, false, domain.ErrMissingPayment
	}
	key := s.cache.GenerateKey(checkoutOperation, userID, paymentID)

	// A retry must find its order before the cart, which the first attempt
	// may already have cleared.
	if existing, ok, err := s.existing(ctx, key, userID, paymentID); err != nil || ok {
		return existing, false, err
	}

	items, fromCart, err := s.resolveItems(ctx, userID, in.Items)
	if err != nil {
		return domain.Order{}, false, err
	}

	orderItems, err := s.snapshot(ctx, items)
	if err != nil {
		return domain.Order{}, false, err
	}

	now := time.Now().UTC()
	prices := s.cfg.Pricing.Price(orderItems)
	order = domain.Order{
		ID:            domain.NewID(),
		UserID:        userID,
		Items:         orderItems,
		ShippingInfo:  in.ShippingInfo,
		PaymentInfo:   domain.PaymentInfo{ID: paymentID, Status: in.PaymentInfo.Status},
		ItemsPrice:    prices.Items,
		TaxPrice:      prices.Tax,
		ShippingPrice: prices.Shipping,
		TotalPrice:    prices.Total,
		Currency:      s.cfg.Currency,
		Status:        domain.StatusProcessing,
		PaidAt:        now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.WithTx(ctx, func(tx ports.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if fromCart {
			return tx.Carts().Clear(ctx, userID)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicatePayment) {
		// Lost the race to a concurrent checkout with the same payment id.
		existing, err := s.store.Orders().FindByPayment(ctx, userID, paymentID)
		if err != nil {
			return domain.Order{}, false, fmt.Errorf("checkout: load concurrent order: %w", err)
		}
		s.remember(ctx, key, existing.ID)
		return existing, false, nil
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("checkout: %w", err)
	}

	s.remember(ctx, key, order.ID)
	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.String("total", order.TotalPrice.StringFixed(2)),
		slog.Bool("from_cart", fromCart),
	)

	names := make([]string, 0, len(orderItems))
	for _, it := range orderItems {
		names = append(names, it.Name)
	}
	if _, err := s.notifier.Dispatch(ctx, NotificationInput{
		UserID:  userID,
		Type:    domain.NotificationOrder,
		Title:   "Order Placed Successfully",
		Message: "Your order has been placed for: " + strings.Join(names, ", "),
		OrderID: order.ID,
	}); err != nil {
		s.logger.ErrorContext(ctx, "order placed notification failed",
			slog.String("order_id", order.ID), slog.Any("error", err))
	}

	return order, true, nil
}

// resolveItems returns the requested items, falling back to the cart.
// Repeated products are merged.
func (s *CheckoutService) resolveItems(ctx context.Context, userID string, requested []ItemInput) ([]ItemInput, bool, error) {
	fromCart := false
	if len(requested) == 0 {
		cart, err := s.store.Carts().Get(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		for _, it := range cart.Items {
			requested = append(requested, ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		fromCart = true
	}
	if len(requested) == 0 {
		return nil, false, domain.ErrNoOrderItems
	}

	merged := make([]ItemInput, 0, len(requested))
	index := make(map[string]int, len(requested))
	for _, it := range requested {
		if !domain.IsObjectID(it.ProductID) {
			return nil, false, fmt.Errorf("%w: product %q", domain.ErrInvalidID, it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, false, fmt.Errorf("%w: product %s has quantity %d", domain.ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, fromCart, nil
}

// existing looks up an order already placed for the payment id, first in
// the cache and then in the store.
func (s *CheckoutService) existing(ctx context.Context, key, userID, paymentID string) (domain.Order, bool, error) {
	cachedID, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "idempotency cache unavailable", slog.Any("error", err))
	}
	if cachedID != "" {
		o, err := s.store.Orders().Get(ctx, cachedID)
		if err == nil && o.UserID == userID {
			return o, true, nil
		}
	}

	o, err := s.store.Orders().FindByPayment(ctx, userID, paymentID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	s.remember(ctx, key, o.ID)
	return o, true, nil
}

// snapshot prices items from the live catalog.
func (s *CheckoutService) snapshot(ctx context.Context, items []ItemInput) ([]domain.OrderItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}

	products, err := s.store.Products().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, it.ProductID)
		}
		out = append(out, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
	}
	return out, nil
}

func (s *CheckoutService) remember(ctx context.Context, key, orderID string) {
	if err := s.cache.Set(ctx, key, orderID, s.cfg.IdempotencyTTL); err != nil {
		s.logger.WarnContext(ctx, "idempotency cache write failed", slog.Any("error", err))
	}
}
