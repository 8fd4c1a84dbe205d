package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Alturino/storefront/cart/internal/cache"
	"github.com/Alturino/storefront/cart/pkg/response"
)

func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	c := context.Background()

	container, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	connStr, err := container.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(c).Err(); err != nil {
		t.Fatalf("failed pinging redis with error: %s", err)
	}

	return client, func() {
		if err := client.Close(); err != nil {
			t.Errorf("failed closing redis client with error: %s", err)
		}
		if err := container.Terminate(c); err != nil {
			t.Errorf("failed terminating redis container with error: %s", err)
		}
	}
}

func TestRedisStore(t *testing.T) {
	client, teardown := setupRedis(t)
	defer teardown()

	c := context.Background()
	store := NewRedisStore(client)
	repository := NewCartRepository(store, WithTTL(time.Hour), WithMaxRetries(100))

	t.Run("given absent key should return key not found", func(t *testing.T) {
		_, err := store.Get(c, "missing")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("given saved cart should set store ttl", func(t *testing.T) {
		_, err := repository.Save(c, response.Cart{OwnerID: "ttl", Items: []response.CartItem{item("p1", "", 1)}})
		require.NoError(t, err)

		ttl, err := client.TTL(c, cache.CartKey("ttl")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("given concurrent updates should not lose any increment", func(t *testing.T) {
		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repository.Update(c, "concurrent", func(cart response.Cart) (response.Cart, error) {
					if i := cart.IndexOf("p1", ""); i >= 0 {
						cart.Items[i].Quantity++
						return cart, nil
					}
					cart.Items = append(cart.Items, item("p1", "", 1))
					return cart, nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		cart, err := repository.Load(c, "concurrent")
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, writers, cart.Items[0].Quantity)
	})

	t.Run("given cleared cart should persist empty document", func(t *testing.T) {
		_, err := repository.Clear(c, "concurrent")
		require.NoError(t, err)

		cart, err := repository.Load(c, "concurrent")
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.NoError(t, store.Ping(c))
	})
}
