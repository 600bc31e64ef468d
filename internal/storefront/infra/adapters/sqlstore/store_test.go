package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/text/currency"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
	"github.com/jcmexdev/storefront/internal/storefront/infra/adapters/sqlstore"
)

type storeSuite struct {
	suite.Suite

	// open returns the store under test and a cleanup func.
	open  func(ctx context.Context) (*sqlstore.Store, func(), error)
	store *sqlstore.Store
	close func()
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &storeSuite{
		open: func(ctx context.Context) (*sqlstore.Store, func(), error) {
			path := filepath.Join(t.TempDir(), "storefront.db")
			store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, path)
			if err != nil {
				return nil, nil, err
			}
			return store, func() { _ = store.Close() }, nil
		},
	})
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	suite.Run(t, &storeSuite{
		open: func(ctx context.Context) (*sqlstore.Store, func(), error) {
			container, connStr, err := startPostgres(ctx)
			if err != nil {
				return nil, nil, err
			}
			store, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, connStr)
			if err != nil {
				_ = testcontainers.TerminateContainer(container)
				return nil, nil, err
			}
			return store, func() {
				_ = store.Close()
				_ = testcontainers.TerminateContainer(container)
			}, nil
		},
	})
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.WithDatabase("storefront"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}
	return container, connStr, nil
}

// before all tests in the suite
func (suite *storeSuite) SetupSuite() {
	var err error
	suite.store, suite.close, err = suite.open(suite.T().Context())
	suite.Require().NoError(err)
}

// after all tests in the suite
func (suite *storeSuite) TearDownSuite() {
	if suite.close != nil {
		suite.close()
	}
}

func (suite *storeSuite) SetupTest() {
	suite.Require().NoError(sqlstore.Reset(suite.T().Context(), suite.store))
}

func (suite *storeSuite) TestPing() {
	suite.Require().NoError(suite.store.Ping(suite.T().Context()))
}

func (suite *storeSuite) TestMigrateIsIdempotent() {
	// Open already migrated; a second run must be a no-op.
	if suite.store.Driver() != sqlstore.DriverSQLite {
		suite.T().Skip("covered by the sqlite suite")
	}
	path := filepath.Join(suite.T().TempDir(), "again.db")
	require.NoError(suite.T(), sqlstore.Migrate(sqlstore.DriverSQLite, path))
	require.NoError(suite.T(), sqlstore.Migrate(sqlstore.DriverSQLite, path))
}

func (suite *storeSuite) TestProducts() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Products()

	base := time.Now().UTC()
	first := randomProduct(base)
	second := randomProduct(base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assertEqual(t, first, got)

	_, err = repo.Get(ctx, domain.NewID())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	many, err := repo.GetMany(ctx, []string{first.ID, second.ID, domain.NewID()})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	page, err := repo.List(ctx, ports.NewPage(1, 1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID, "newest first")

	page, err = repo.List(ctx, ports.NewPage(2, 1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	deleted, err := repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func (suite *storeSuite) TestAdjustStock() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Products()

	p := randomProduct(time.Now().UTC())
	p.Stock = 5
	require.NoError(t, repo.Create(ctx, p))

	tests := []struct {
		name  string
		delta int
		want  int
	}{
		{name: "decrease", delta: -2, want: 3},
		{name: "increase", delta: 4, want: 7},
		{name: "clamped at zero", delta: -100, want: 0},
		{name: "increase from zero", delta: 1, want: 1},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			stock, err := repo.AdjustStock(ctx, p.ID, tt.delta)
			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), tt.want, stock)
		})
	}

	_, err := repo.AdjustStock(ctx, domain.NewID(), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func (suite *storeSuite) TestOrderRoundTrip() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Orders()

	order := randomOrder(gofakeit.UUID(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assertEqual(t, order, got)

	byPayment, err := repo.FindByPayment(ctx, order.UserID, order.PaymentInfo.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byPayment.ID)

	_, err = repo.Get(ctx, domain.NewID())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (suite *storeSuite) TestOrderDuplicatePayment() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Orders()
	userID := gofakeit.UUID()

	order := randomOrder(userID, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	dup := randomOrder(userID, time.Now().UTC())
	dup.PaymentInfo.ID = order.PaymentInfo.ID
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicatePayment)

	// Another user may reuse the same payment id.
	other := randomOrder(gofakeit.UUID(), time.Now().UTC())
	other.PaymentInfo.ID = order.PaymentInfo.ID
	assert.NoError(t, repo.Create(ctx, other))

	// Orders without a payment id are not constrained.
	for range 2 {
		free := randomOrder(userID, time.Now().UTC())
		free.PaymentInfo = domain.PaymentInfo{}
		require.NoError(t, repo.Create(ctx, free))
	}

	// The failed insert left nothing behind.
	_, err := repo.Get(ctx, dup.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func (suite *storeSuite) TestOrderListing() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Orders()

	base := time.Now().UTC()
	alice, bob := gofakeit.UUID(), gofakeit.UUID()
	a1 := randomOrder(alice, base)
	b1 := randomOrder(bob, base.Add(time.Second))
	a2 := randomOrder(alice, base.Add(2*time.Second))
	for _, o := range []domain.Order{a1, b1, a2} {
		require.NoError(t, repo.Create(ctx, o))
	}

	mine, err := repo.ListByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{a2.ID, a1.ID}, orderIDs(mine))
	assert.Len(t, mine[0].Items, len(a2.Items))

	none, err := repo.ListByUser(ctx, gofakeit.UUID())
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.List(ctx, ports.NewPage(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{a2.ID, b1.ID}, orderIDs(all))

	rest, err := repo.List(ctx, ports.NewPage(2, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{a1.ID}, orderIDs(rest))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	deleted, err := repo.DeleteMany(ctx, []string{a1.ID, b1.ID, domain.NewID()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func (suite *storeSuite) TestOrderUpdateStatus() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Orders()

	order := randomOrder(gofakeit.UUID(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	shipped := order
	shipped.ApplyStatus(domain.StatusDelivered, time.Now().UTC())
	require.NoError(t, repo.UpdateStatus(ctx, shipped, domain.StatusProcessing))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.Equal(*shipped.DeliveredAt))

	// The stored status is no longer Processing.
	stale := order
	stale.ApplyStatus(domain.StatusCancelled, time.Now().UTC())
	assert.ErrorIs(t, repo.UpdateStatus(ctx, stale, domain.StatusProcessing), domain.ErrStatusConflict)

	missing := randomOrder(gofakeit.UUID(), time.Now().UTC())
	assert.ErrorIs(t, repo.UpdateStatus(ctx, missing, domain.StatusProcessing), domain.ErrOrderNotFound)
}

func (suite *storeSuite) TestCarts() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Carts()
	userID := gofakeit.UUID()

	empty, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, userID, empty.UserID)

	first, second := domain.NewID(), domain.NewID()
	require.NoError(t, repo.AddItem(ctx, userID, first, 2))
	require.NoError(t, repo.AddItem(ctx, userID, second, 1))
	require.NoError(t, repo.AddItem(ctx, userID, first, 3))
	assert.ErrorIs(t, repo.AddItem(ctx, userID, first, 0), domain.ErrInvalidQuantity)

	cart, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartItem{
		{ProductID: first, Quantity: 5},
		{ProductID: second, Quantity: 1},
	}, cart.Items)

	found, err := repo.SetQuantity(ctx, userID, second, 4)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.SetQuantity(ctx, userID, domain.NewID(), 4)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.SetQuantity(ctx, userID, first, 0)
	require.NoError(t, err)
	assert.True(t, found, "zero quantity removes the entry")

	cart, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CartItem{{ProductID: second, Quantity: 4}}, cart.Items)

	removed, err := repo.RemoveItem(ctx, userID, first)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Clear(ctx, userID))
	cart, err = repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func (suite *storeSuite) TestNotifications() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.Notifications()

	base := time.Now().UTC()
	userID, stranger := gofakeit.UUID(), gofakeit.UUID()
	older := randomNotification(userID, base)
	newer := randomNotification(userID, base.Add(time.Second))
	foreign := randomNotification(stranger, base)
	for _, n := range []domain.Notification{older, newer, foreign} {
		require.NoError(t, repo.Create(ctx, n))
	}

	list, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assertEqual(t, []domain.Notification{newer, older}, list)

	ok, err := repo.MarkRead(ctx, stranger, older.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cannot touch another user's notification")

	ok, err = repo.MarkRead(ctx, userID, older.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err = repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, list[1].Read)

	ok, err = repo.Delete(ctx, userID, newer.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.DeleteAll(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err = repo.ListByUser(ctx, stranger)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func (suite *storeSuite) TestHistory() {
	t := suite.T()
	ctx := t.Context()
	repo := suite.store.History()
	orderID := domain.NewID()

	at := time.Now().UTC()
	changes := []domain.StatusChange{
		{OrderID: orderID, From: domain.StatusProcessing, To: domain.StatusShipped, Actor: "admin", At: at},
		{OrderID: orderID, From: domain.StatusShipped, To: domain.StatusDelivered, Actor: "admin", TraceID: "abc", SpanID: "def", At: at},
	}
	for _, c := range changes {
		require.NoError(t, repo.Append(ctx, c))
	}

	got, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	assertEqual(t, changes, got)
}

func (suite *storeSuite) TestDeleteManyRemovesHistory() {
	t := suite.T()
	ctx := t.Context()

	order := randomOrder(gofakeit.UUID(), time.Now().UTC())
	require.NoError(t, suite.store.Orders().Create(ctx, order))
	require.NoError(t, suite.store.History().Append(ctx, domain.StatusChange{
		OrderID: order.ID,
		From:    domain.StatusProcessing,
		To:      domain.StatusShipped,
		Actor:   "admin",
		At:      time.Now().UTC(),
	}))

	deleted, err := suite.store.Orders().DeleteMany(ctx, []string{order.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	got, err := suite.store.History().ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func (suite *storeSuite) TestWithTxRollsBack() {
	t := suite.T()
	ctx := t.Context()
	boom := errors.New("boom")

	p := randomProduct(time.Now().UTC())
	err := suite.store.WithTx(ctx, func(tx ports.Store) error {
		if err := tx.Products().Create(ctx, p); err != nil {
			return err
		}
		// Nested calls join the open transaction.
		return tx.WithTx(ctx, func(ports.Store) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	_, err = suite.store.Products().Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func assertEqual(t *testing.T, want, got any) {
	t.Helper()

	opts := cmp.Options{
		cmp.Comparer(func(a, b currency.Unit) bool { return a == b }),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func orderIDs(orders []domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func randomPrice() decimal.Decimal {
	return decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2)
}

func randomProduct(at time.Time) domain.Product {
	return domain.Product{
		ID:          domain.NewID(),
		Name:        gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Price:       randomPrice(),
		Stock:       gofakeit.Number(0, 100),
		Category:    gofakeit.ProductCategory(),
		Image:       gofakeit.URL(),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func randomOrder(userID string, at time.Time) domain.Order {
	items := make([]domain.OrderItem, gofakeit.Number(1, 3))
	for i := range items {
		items[i] = domain.OrderItem{
			ProductID: domain.NewID(),
			Name:      gofakeit.ProductName(),
			Image:     gofakeit.URL(),
			Price:     randomPrice(),
			Quantity:  gofakeit.Number(1, 5),
		}
	}

	prices := domain.DefaultPricing().Price(items)
	return domain.Order{
		ID:     domain.NewID(),
		UserID: userID,
		Items:  items,
		ShippingInfo: domain.ShippingInfo{
			Address: gofakeit.Street(),
			City:    gofakeit.City(),
			State:   gofakeit.State(),
			Country: gofakeit.Country(),
			PinCode: gofakeit.Zip(),
			PhoneNo: gofakeit.Phone(),
		},
		PaymentInfo:   domain.PaymentInfo{ID: "pi_" + gofakeit.UUID(), Status: "succeeded"},
		ItemsPrice:    prices.Items,
		TaxPrice:      prices.Tax,
		ShippingPrice: prices.Shipping,
		TotalPrice:    prices.Total,
		Currency:      currency.USD,
		Status:        domain.StatusProcessing,
		PaidAt:        at,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func randomNotification(userID string, at time.Time) domain.Notification {
	return domain.Notification{
		ID:        domain.NewID(),
		UserID:    userID,
		Type:      domain.NotificationOrder,
		Title:     gofakeit.ProductName(),
		Message:   gofakeit.ProductDescription(),
		OrderID:   domain.NewID(),
		CreatedAt: at,
	}
}
