package cache_test

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
)

func TestGenerateKey(t *testing.T) {
	c := cache.Nop{Namespace: "storefront"}
	assert.Equal(t, "storefront:checkout:u1:pi_1", c.GenerateKey("checkout", "u1", "pi_1"))
	assert.Equal(t, "storefront:health", c.GenerateKey("health"))
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := t.Context()
	c := cache.Nop{}

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	ctx := t.Context()

	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := cache.Connect(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewRedisCache(client, "storefront")
	key := c.GenerateKey("checkout", gofakeit.UUID())

	val, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, val, "miss is not an error")

	require.NoError(t, c.Set(ctx, key, "order-1", time.Minute))
	val, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "order-1", val)

	require.NoError(t, c.Set(ctx, key, "order-2", time.Millisecond))
	assert.Eventually(t, func() bool {
		v, err := c.Get(ctx, key)
		return err == nil && v == ""
	}, 5*time.Second, 50*time.Millisecond)
}
