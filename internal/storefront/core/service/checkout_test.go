package service_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
	"github.com/jcmexdev/storefront/internal/storefront/core/service"
)

func TestPlaceOrderPricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "100", 10)
	b := f.product(t, "250", 10)
	userID := gofakeit.UUID()

	order, created, err := f.checkout.PlaceOrder(t.Context(), userID, service.PlaceOrderInput{
		ShippingInfo: randomShipping(),
		Items:        []service.ItemInput{item(a, 2), item(b, 1)},
		PaymentInfo:  domain.PaymentInfo{ID: "pi_123", Status: "succeeded"},
	})
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, "450", order.ItemsPrice.String())
	assert.Equal(t, "81", order.TaxPrice.String())
	assert.Equal(t, "0", order.ShippingPrice.String())
	assert.Equal(t, "531", order.TotalPrice.String())
	assert.Equal(t, domain.StatusProcessing, order.Status)
	assert.False(t, order.PaidAt.IsZero())

	require.Len(t, order.Items, 2)
	assert.Equal(t, a.Name, order.Items[0].Name)
	assert.Equal(t, a.Image, order.Items[0].Image)
	assert.True(t, order.Items[0].Price.Equal(a.Price))

	stored, err := f.store.Orders().Get(t.Context(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "531", stored.TotalPrice.String())

	// Stock only moves on status transitions.
	assert.Equal(t, 10, f.stock(t, a.ID))

	direct := f.emitter.Direct()
	require.Len(t, direct, 1)
	assert.Equal(t, userID, direct[0].Room)
	payload := direct[0].Data.(ports.NotificationEvent)
	assert.Equal(t, "Order Placed Successfully", payload.Title)
	assert.Equal(t, "Your order has been placed for: "+a.Name+", "+b.Name, payload.Message)
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 10)
	userID := gofakeit.UUID()
	in := service.PlaceOrderInput{
		ShippingInfo: randomShipping(),
		Items:        []service.ItemInput{item(p, 1)},
		PaymentInfo:  domain.PaymentInfo{ID: "pi_dup"},
	}

	first, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Without the cache the unique index still finds it.
	f.cache.data = map[string]string{}
	third, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)

	mine, err := f.orders.ListMine(t.Context(), userID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	// Only the first attempt notifies.
	assert.Len(t, f.emitter.Direct(), 1)
}

func TestPlaceOrderConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 10)
	userID := gofakeit.UUID()
	in := service.PlaceOrderInput{
		Items:       []service.ItemInput{item(p, 1)},
		PaymentInfo: domain.PaymentInfo{ID: "pi_race"},
	}

	const workers = 6
	ids := make([]string, workers)
	createdCount := make([]bool, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			o, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
			ids[i], createdCount[i] = o.ID, created
			return err
		})
	}
	require.NoError(t, g.Wait())

	created := 0
	for i := range workers {
		assert.Equal(t, ids[0], ids[i])
		if createdCount[i] {
			created++
		}
	}
	assert.Equal(t, 1, created)

	count, err := f.store.Orders().Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPlaceOrderSamePaymentDifferentUsers(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 10)
	in := service.PlaceOrderInput{
		Items:       []service.ItemInput{item(p, 1)},
		PaymentInfo: domain.PaymentInfo{ID: "pi_shared"},
	}

	a, created, err := f.checkout.PlaceOrder(t.Context(), gofakeit.UUID(), in)
	require.NoError(t, err)
	require.True(t, created)

	b, created, err := f.checkout.PlaceOrder(t.Context(), gofakeit.UUID(), in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPlaceOrderFromCart(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "100", 10)
	userID := gofakeit.UUID()

	_, err := f.carts.AddItem(t.Context(), userID, p.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(t.Context(), userID, p.ID, 1)
	require.NoError(t, err)

	order, created, err := f.checkout.PlaceOrder(t.Context(), userID, service.PlaceOrderInput{
		PaymentInfo: domain.PaymentInfo{ID: "pi_cart"},
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, "300", order.ItemsPrice.String())

	lines, err := f.carts.Get(t.Context(), userID)
	require.NoError(t, err)
	assert.Empty(t, lines, "cart cleared after checkout")
}

func TestPlaceOrderFromCartRetryReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "100", 10)
	userID := gofakeit.UUID()

	_, err := f.carts.AddItem(t.Context(), userID, p.ID, 2)
	require.NoError(t, err)

	in := service.PlaceOrderInput{PaymentInfo: domain.PaymentInfo{ID: "pi_retry"}}
	first, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	require.True(t, created)

	// The cart is empty now; the retry must still resolve to the first order,
	// both through the cache and through the store alone.
	second, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	f.cache.data = map[string]string{}
	third, created, err := f.checkout.PlaceOrder(t.Context(), userID, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)

	mine, err := f.orders.ListMine(t.Context(), userID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPlaceOrderWithExplicitItemsKeepsCart(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 10)
	userID := gofakeit.UUID()

	_, err := f.carts.AddItem(t.Context(), userID, p.ID, 1)
	require.NoError(t, err)

	f.order(t, userID, item(p, 4))

	lines, err := f.carts.Get(t.Context(), userID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10", 10)

	tests := []struct {
		name    string
		in      service.PlaceOrderInput
		wantErr error
	}{
		{
			name:    "no items and empty cart",
			in:      service.PlaceOrderInput{PaymentInfo: domain.PaymentInfo{ID: "pi"}},
			wantErr: domain.ErrNoOrderItems,
		},
		{
			name:    "missing payment id",
			in:      service.PlaceOrderInput{Items: []service.ItemInput{item(p, 1)}},
			wantErr: domain.ErrMissingPayment,
		},
		{
			name: "malformed product id",
			in: service.PlaceOrderInput{
				Items:       []service.ItemInput{{ProductID: "abc", Quantity: 1}},
				PaymentInfo: domain.PaymentInfo{ID: "pi"},
			},
			wantErr: domain.ErrInvalidID,
		},
		{
			name: "zero quantity",
			in: service.PlaceOrderInput{
				Items:       []service.ItemInput{item(p, 0)},
				PaymentInfo: domain.PaymentInfo{ID: "pi"},
			},
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name: "unknown product",
			in: service.PlaceOrderInput{
				Items:       []service.ItemInput{{ProductID: domain.NewID(), Quantity: 1}},
				PaymentInfo: domain.PaymentInfo{ID: "pi"},
			},
			wantErr: domain.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.checkout.PlaceOrder(t.Context(), gofakeit.UUID(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	count, err := f.store.Orders().Count(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count)
}
