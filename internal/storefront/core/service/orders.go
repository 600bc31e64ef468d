package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

// OrderService owns order status transitions and the order read side.
type OrderService struct {
	store    ports.Store
	notifier *Notifier
	emitter  ports.Emitter
	logger   *slog.Logger
}

// NewOrderService returns an order service that announces changes through notifier and emitter.
func NewOrderService(store ports.Store, notifier *Notifier, emitter ports.Emitter, logger *slog.Logger) *OrderService {
	return &OrderService{store: store, notifier: notifier, emitter: emitter, logger: logger}
}

type TransitionResult struct {
	Order    domain.Order
	Previous domain.OrderStatus
	// Notification is nil when none of the order's products still exist.
	Notification *domain.Notification
}

type SkippedOrder struct {
	OrderID string
	Err     error
}

type BatchResult struct {
	Updated       []domain.Order
	Skipped       []SkippedOrder
	Notifications []domain.Notification
}

type OrderPage struct {
	Orders []domain.Order
	// Products holds the live products referenced by Orders, keyed by id.
	// Deleted products are absent.
	Products    map[string]domain.Product
	TotalOrders int
	TotalPages  int
	CurrentPage int
	// TotalAmount sums TotalPrice over this page only.
	TotalAmount decimal.Decimal
}

type DeleteResult struct {
	DeletedCount  int64
	DeletedOrders []string
}

// UpdateStatus moves a single order to status. Per-order failures such as a
// terminal order or a missing order are returned to the caller.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Identity, orderID, status string) (TransitionResult, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return TransitionResult{}, err
	}

	order, prev, err := s.transition(ctx, actor, orderID, next)
	if err != nil {
		return TransitionResult{}, err
	}

	res := TransitionResult{Order: order, Previous: prev}
	if notifs := s.announce(context.WithoutCancel(ctx), []domain.Order{order}); len(notifs) > 0 {
		res.Notification = &notifs[0]
	}
	return res, nil
}

// UpdateStatuses moves every listed order to status. Orders that cannot
// transition are logged and reported in Skipped; the rest still proceed.
// If ctx is cancelled mid-batch the remaining orders are skipped with the
// context error, and the orders already updated are still announced.
func (s *OrderService) UpdateStatuses(ctx context.Context, actor domain.Identity, orderIDs []string, status string) (BatchResult, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return BatchResult{}, err
	}
	if len(orderIDs) == 0 {
		return BatchResult{}, domain.ErrNoOrderIDs
	}

	var res BatchResult
	seen := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if ctx.Err() != nil {
			res.Skipped = append(res.Skipped, SkippedOrder{OrderID: id, Err: ctx.Err()})
			continue
		}

		order, _, err := s.transition(ctx, actor, id, next)
		if err != nil {
			s.logger.WarnContext(ctx, "order skipped",
				slog.String("order_id", id),
				slog.String("status", next.String()),
				slog.Any("error", err),
			)
			res.Skipped = append(res.Skipped, SkippedOrder{OrderID: id, Err: err})
			continue
		}
		res.Updated = append(res.Updated, order)
	}

	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "bulk status update interrupted",
			slog.Int("updated", len(res.Updated)),
			slog.Int("skipped", len(res.Skipped)),
			slog.Any("error", ctx.Err()),
		)
	}

	// Committed changes are announced even when the caller has gone away.
	res.Notifications = s.announce(context.WithoutCancel(ctx), res.Updated)
	return res, nil
}

// transition applies one order's status change in a single transaction:
// stock movements for every line item, a compare-and-swap of the status and
// a history row.
func (s *OrderService) transition(ctx context.Context, actor domain.Identity, orderID string, next domain.OrderStatus) (domain.Order, domain.OrderStatus, error) {
	if !domain.IsObjectID(orderID) {
		return domain.Order{}, "", fmt.Errorf("%w: %q", domain.ErrInvalidID, orderID)
	}

	var (
		order domain.Order
		prev  domain.OrderStatus
	)
	err := s.store.WithTx(ctx, func(tx ports.Store) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}

		prev = order.Status
		if prev.IsTerminal() {
			return fmt.Errorf("%w: order %s is %s", domain.ErrTerminalStatus, orderID, prev)
		}

		if dir, ok := domain.StockEffect(next); ok {
			ledger := NewLedger(tx.Products(), s.logger)
			for _, it := range order.Items {
				_, err := ledger.Adjust(ctx, it.ProductID, it.Quantity, dir)
				if errors.Is(err, domain.ErrProductNotFound) {
					continue
				}
				if err != nil {
					return err
				}
			}
		}

		now := time.Now().UTC()
		order.ApplyStatus(next, now)
		if err := tx.Orders().UpdateStatus(ctx, order, prev); err != nil {
			return err
		}

		traceID, spanID := telemetry.SpanIDs(ctx)
		return tx.History().Append(ctx, domain.StatusChange{
			OrderID: orderID,
			From:    prev,
			To:      next,
			Actor:   actor.UserID,
			TraceID: traceID,
			SpanID:  spanID,
			At:      now,
		})
	})
	if err != nil {
		return domain.Order{}, "", err
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
		slog.String("actor", actor.UserID),
	)
	return order, prev, nil
}

// announce broadcasts one orderUpdated event for orders and notifies each
// owner whose order still references at least one live product. Failures
// are logged; the transitions are already committed.
func (s *OrderService) announce(ctx context.Context, orders []domain.Order) []domain.Notification {
	if len(orders) == 0 {
		return nil
	}

	if s.emitter != nil {
		events := make([]ports.OrderUpdatedEvent, 0, len(orders))
		for _, o := range orders {
			events = append(events, ports.OrderUpdatedEvent{OrderID: o.ID, Status: o.Status.String()})
		}
		s.emitter.Broadcast(ports.EventOrderUpdated, events)
	}

	products, err := s.store.Products().GetMany(ctx, productIDs(orders))
	if err != nil {
		s.logger.ErrorContext(ctx, "load products for notifications", slog.Any("error", err))
		return nil
	}

	var notifs []domain.Notification
	for _, o := range orders {
		var names []string
		for _, it := range o.Items {
			if p, ok := products[it.ProductID]; ok {
				names = append(names, p.Name)
			}
		}
		if len(names) == 0 {
			continue
		}

		n, err := s.notifier.Dispatch(ctx, NotificationInput{
			UserID:  o.UserID,
			Type:    domain.NotificationOrder,
			Title:   "Order #" + domain.ShortID(o.ID),
			Message: fmt.Sprintf("Order status updated to %q for: %s", o.Status, strings.Join(names, ", ")),
			OrderID: o.ID,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "status notification failed",
				slog.String("order_id", o.ID), slog.Any("error", err))
			continue
		}
		notifs = append(notifs, n)
	}
	return notifs
}

// Get returns the order if requester owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, requester domain.Identity, id string) (domain.Order, error) {
	if !domain.IsObjectID(id) {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}

	order, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !requester.CanAccess(order.UserID) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.store.Orders().ListByUser(ctx, userID)
}

// ListAll returns one page of every order with the page total and the live products it references.
func (s *OrderService) ListAll(ctx context.Context, page ports.Page) (OrderPage, error) {
	total, err := s.store.Orders().Count(ctx)
	if err != nil {
		return OrderPage{}, err
	}

	orders, err := s.store.Orders().List(ctx, page)
	if err != nil {
		return OrderPage{}, err
	}

	products, err := s.store.Products().GetMany(ctx, productIDs(orders))
	if err != nil {
		return OrderPage{}, err
	}

	amount := decimal.Zero
	for _, o := range orders {
		amount = amount.Add(o.TotalPrice)
	}

	return OrderPage{
		Orders:      orders,
		Products:    products,
		TotalOrders: total,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Number,
		TotalAmount: amount,
	}, nil
}

// Delete hard-deletes the well-formed ids among ids; the rest are ignored.
func (s *OrderService) Delete(ctx context.Context, ids []string) (DeleteResult, error) {
	valid := domain.FilterObjectIDs(ids)
	if len(valid) == 0 {
		return DeleteResult{}, domain.ErrNoOrderIDs
	}

	n, err := s.store.Orders().DeleteMany(ctx, valid)
	if err != nil {
		return DeleteResult{}, err
	}

	s.logger.InfoContext(ctx, "orders deleted", slog.Int64("deleted", n), slog.Int("requested", len(ids)))
	return DeleteResult{DeletedCount: n, DeletedOrders: valid}, nil
}

// History returns the applied status changes of an order, oldest first.
func (s *OrderService) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	if !domain.IsObjectID(id) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}

	changes, err := s.store.History().ListByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		// Distinguish an untouched order from a missing one.
		if _, err := s.store.Orders().Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func productIDs(orders []domain.Order) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			if _, ok := seen[it.ProductID]; ok {
				continue
			}
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}
