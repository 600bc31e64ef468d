package service_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
	"github.com/jcmexdev/storefront/internal/storefront/core/service"
	"github.com/jcmexdev/storefront/internal/storefront/infra/adapters/sqlstore"
)

var discard = slog.New(slog.DiscardHandler)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(t.Context(), sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type emitted struct {
	Room  string
	Event string
	Data  any
}

// recordingEmitter captures every push instead of sending it.
type recordingEmitter struct {
	mu         sync.Mutex
	broadcasts []emitted
	direct     []emitted
}

func (e *recordingEmitter) Broadcast(event string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcasts = append(e.broadcasts, emitted{Event: event, Data: data})
}

func (e *recordingEmitter) EmitTo(room, event string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.direct = append(e.direct, emitted{Room: room, Event: event, Data: data})
}

func (e *recordingEmitter) Broadcasts() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.broadcasts...)
}

func (e *recordingEmitter) Direct() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.direct...)
}

// memCache is an in-process cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memCache) GenerateKey(operation string, parts ...string) string {
	key := "test:" + operation
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

type fixture struct {
	store    *sqlstore.Store
	emitter  *recordingEmitter
	cache    *memCache
	notifier *service.Notifier
	orders   *service.OrderService
	checkout *service.CheckoutService
	carts    *service.CartService
	products *service.ProductService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{store: newStore(t), emitter: &recordingEmitter{}, cache: newMemCache()}
	f.notifier = service.NewNotifier(f.store, f.emitter, discard)
	f.orders = service.NewOrderService(f.store, f.notifier, f.emitter, discard)
	f.checkout = service.NewCheckoutService(f.store, f.cache, f.notifier, service.CheckoutConfig{
		Pricing:        domain.DefaultPricing(),
		Currency:       currency.USD,
		IdempotencyTTL: time.Hour,
	}, discard)
	f.carts = service.NewCartService(f.store, discard)
	f.products = service.NewProductService(f.store, discard)
	return f
}

var admin = domain.Identity{UserID: "admin-1", Role: domain.RoleAdmin}

func (f *fixture) product(t *testing.T, price string, stock int) domain.Product {
	t.Helper()

	p, err := f.products.Create(t.Context(), service.ProductInput{
		Name:     gofakeit.ProductName(),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: gofakeit.ProductCategory(),
		Image:    gofakeit.URL(),
	})
	require.NoError(t, err)
	return p
}

// order places an order for userID through checkout.
func (f *fixture) order(t *testing.T, userID string, items ...service.ItemInput) domain.Order {
	t.Helper()

	o, created, err := f.checkout.PlaceOrder(t.Context(), userID, service.PlaceOrderInput{
		ShippingInfo: randomShipping(),
		Items:        items,
		PaymentInfo:  domain.PaymentInfo{ID: "pi_" + gofakeit.UUID(), Status: "succeeded"},
	})
	require.NoError(t, err)
	require.True(t, created)
	return o
}

// withStatus forces an order into status without side effects.
func (f *fixture) withStatus(t *testing.T, o domain.Order, status domain.OrderStatus) {
	t.Helper()

	from := o.Status
	o.ApplyStatus(status, time.Now().UTC())
	require.NoError(t, f.store.Orders().UpdateStatus(t.Context(), o, from))
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()

	p, err := f.store.Products().Get(t.Context(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) status(t *testing.T, orderID string) domain.OrderStatus {
	t.Helper()

	o, err := f.store.Orders().Get(t.Context(), orderID)
	require.NoError(t, err)
	return o.Status
}

func item(p domain.Product, qty int) service.ItemInput {
	return service.ItemInput{ProductID: p.ID, Quantity: qty}
}

func randomShipping() domain.ShippingInfo {
	return domain.ShippingInfo{
		Address: gofakeit.Street(),
		City:    gofakeit.City(),
		State:   gofakeit.State(),
		Country: gofakeit.Country(),
		PinCode: gofakeit.Zip(),
		PhoneNo: gofakeit.Phone(),
	}
}

func orderUpdates(t *testing.T, e emitted) []ports.OrderUpdatedEvent {
	t.Helper()

	require.Equal(t, ports.EventOrderUpdated, e.Event)
	events, ok := e.Data.([]ports.OrderUpdatedEvent)
	require.True(t, ok, "unexpected payload %T", e.Data)
	return events
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcasts, e.direct = nil, nil
}
