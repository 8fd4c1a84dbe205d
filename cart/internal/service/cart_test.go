package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/errors"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) CartService {
	t.Helper()
	now := func() time.Time { return fixedNow }
	store := repository.NewMemoryStore(now)
	return NewCartService(repository.NewCartRepository(store, repository.WithClock(now)), "usd")
}

func quantity(n int) *int {
	return &n
}

func product(id, variant string) request.Product {
	return request.Product{
		ID:       id,
		Name:     "product " + id,
		Slug:     "slug-" + id,
		Category: "tees",
		Images:   []string{"https://cdn.example.com/" + id + ".png"},
		Price:    decimal.RequireFromString("12.50"),
		Variant:  variant,
	}
}

func TestOwnerScenario(t *testing.T) {
	c := context.Background()
	svc := newService(t)

	cart, err := svc.GetCart(c, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.OwnerID)
	assert.Empty(t, cart.Items)

	cart, count, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", ""), Quantity: quantity(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	cart, count, err = svc.AddItem(c, "u1", request.AddItem{Product: product("p1", ""), Quantity: quantity(2)})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, action, err := svc.UpdateQuantity(c, "u1", request.UpdateQuantity{ProductID: "p1", Quantity: quantity(0)})
	require.NoError(t, err)
	assert.Equal(t, response.ACTION_REMOVED, action)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(c, "u1", request.RemoveItem{ProductID: "p1"})
	assert.ErrorIs(t, err, errors.ErrItemNotFound)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, svc CartService)
		param         request.AddItem
		expected      func(t *testing.T, cart response.Cart)
		expectedCount int
		expectedErr   error
	}{
		{
			name:  "given omitted quantity should default to one",
			setup: func(t *testing.T, svc CartService) {},
			param: request.AddItem{Product: product("p1", "")},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 1)
				assert.Equal(t, 1, cart.Items[0].Quantity)
				assert.Equal(t, fixedNow, cart.Items[0].AddedAt)
				assert.Equal(t, "slug-p1", cart.Items[0].Slug)
			},
			expectedCount: 1,
		},
		{
			name: "given existing line should merge quantities",
			setup: func(t *testing.T, svc CartService) {
				_, _, err := svc.AddItem(context.Background(), "u1", request.AddItem{Product: product("p1", "M"), Quantity: quantity(2)})
				require.NoError(t, err)
			},
			param: request.AddItem{Product: product("p1", "M"), Quantity: quantity(3)},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 1)
				assert.Equal(t, 5, cart.Items[0].Quantity)
			},
			expectedCount: 1,
		},
		{
			name: "given different variant should append a line",
			setup: func(t *testing.T, svc CartService) {
				_, _, err := svc.AddItem(context.Background(), "u1", request.AddItem{Product: product("p1", "M")})
				require.NoError(t, err)
			},
			param: request.AddItem{Product: product("p1", "L"), Quantity: quantity(2)},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 2)
				assert.Equal(t, "M", cart.Items[0].Variant)
				assert.Equal(t, 1, cart.Items[0].Quantity)
				assert.Equal(t, "L", cart.Items[1].Variant)
				assert.Equal(t, 2, cart.Items[1].Quantity)
			},
			expectedCount: 2,
		},
		{
			name: "given variant-less line should not merge into a variant",
			setup: func(t *testing.T, svc CartService) {
				_, _, err := svc.AddItem(context.Background(), "u1", request.AddItem{Product: product("p1", "")})
				require.NoError(t, err)
			},
			param: request.AddItem{Product: product("p1", "M")},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 2)
			},
			expectedCount: 2,
		},
		{
			name: "given merge overflowing int should return invalid argument",
			setup: func(t *testing.T, svc CartService) {
				_, _, err := svc.AddItem(context.Background(), "u1", request.AddItem{Product: product("p1", ""), Quantity: quantity(math.MaxInt)})
				require.NoError(t, err)
			},
			param:       request.AddItem{Product: product("p1", ""), Quantity: quantity(2)},
			expectedErr: errors.ErrInvalidArgument,
		},
		{
			name:        "given zero quantity should return invalid argument",
			setup:       func(t *testing.T, svc CartService) {},
			param:       request.AddItem{Product: product("p1", ""), Quantity: quantity(0)},
			expectedErr: errors.ErrInvalidArgument,
		},
		{
			name:        "given missing product id should return invalid argument",
			setup:       func(t *testing.T, svc CartService) {},
			param:       request.AddItem{Product: request.Product{Name: "nameless"}},
			expectedErr: errors.ErrInvalidArgument,
		},
		{
			name:  "given negative price should return invalid argument",
			setup: func(t *testing.T, svc CartService) {},
			param: request.AddItem{Product: request.Product{
				ID:    "p1",
				Price: decimal.RequireFromString("-1"),
			}},
			expectedErr: errors.ErrInvalidArgument,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := context.Background()
			svc := newService(t)
			test.setup(t, svc)

			before, err := svc.GetCart(c, "u1")
			require.NoError(t, err)

			cart, count, err := svc.AddItem(c, "u1", test.param)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				after, err := svc.GetCart(c, "u1")
				require.NoError(t, err)
				assert.Equal(t, before.Quantity(), after.Quantity())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expectedCount, count)
			test.expected(t, cart)

			loaded, err := svc.GetCart(c, "u1")
			require.NoError(t, err)
			assert.Equal(t, cart.ItemCount(), loaded.ItemCount())
			assert.Equal(t, cart.Quantity(), loaded.Quantity())
			assert.Equal(t, cart.ExpiresAt, loaded.ExpiresAt)
		})
	}
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name           string
		param          request.UpdateQuantity
		expected       func(t *testing.T, cart response.Cart)
		expectedAction string
		expectedErr    error
	}{
		{
			name:  "given positive quantity should replace it",
			param: request.UpdateQuantity{ProductID: "p1", Variant: "M", Quantity: quantity(7)},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 2)
				assert.Equal(t, 7, cart.Items[0].Quantity)
				assert.Equal(t, 1, cart.Items[1].Quantity)
			},
			expectedAction: response.ACTION_UPDATED,
		},
		{
			name:  "given zero quantity should remove only the addressed variant",
			param: request.UpdateQuantity{ProductID: "p1", Variant: "M", Quantity: quantity(0)},
			expected: func(t *testing.T, cart response.Cart) {
				require.Len(t, cart.Items, 1)
				assert.Equal(t, "L", cart.Items[0].Variant)
			},
			expectedAction: response.ACTION_REMOVED,
		},
		{
			name:        "given omitted variant should not address a variant line",
			param:       request.UpdateQuantity{ProductID: "p1", Quantity: quantity(3)},
			expectedErr: errors.ErrItemNotFound,
		},
		{
			name:        "given unknown item should return item not found",
			param:       request.UpdateQuantity{ProductID: "p9", Variant: "M", Quantity: quantity(3)},
			expectedErr: errors.ErrItemNotFound,
		},
		{
			name:        "given negative quantity should return invalid argument",
			param:       request.UpdateQuantity{ProductID: "p1", Variant: "M", Quantity: quantity(-1)},
			expectedErr: errors.ErrInvalidArgument,
		},
		{
			name:        "given missing quantity should return invalid argument",
			param:       request.UpdateQuantity{ProductID: "p1", Variant: "M"},
			expectedErr: errors.ErrInvalidArgument,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := context.Background()
			svc := newService(t)
			_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "M")})
			require.NoError(t, err)
			_, _, err = svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "L")})
			require.NoError(t, err)

			cart, action, err := svc.UpdateQuantity(c, "u1", test.param)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				loaded, err := svc.GetCart(c, "u1")
				require.NoError(t, err)
				assert.Len(t, loaded.Items, 2)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expectedAction, action)
			test.expected(t, cart)
		})
	}
}

func TestRemoveItem(t *testing.T) {
	c := context.Background()
	svc := newService(t)
	_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "")})
	require.NoError(t, err)
	_, _, err = svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "XL")})
	require.NoError(t, err)

	cart, err := svc.RemoveItem(c, "u1", request.RemoveItem{ProductID: "p1", Variant: "XL"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "", cart.Items[0].Variant)

	_, err = svc.RemoveItem(c, "u1", request.RemoveItem{ProductID: "p1", Variant: "XL"})
	assert.ErrorIs(t, err, errors.ErrItemNotFound)

	_, err = svc.RemoveItem(c, "u1", request.RemoveItem{})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestClearCart(t *testing.T) {
	c := context.Background()
	svc := newService(t)
	_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", ""), Quantity: quantity(4)})
	require.NoError(t, err)

	first, err := svc.ClearCart(c, "u1")
	require.NoError(t, err)
	second, err := svc.ClearCart(c, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Empty(t, second.Items)

	count, err := svc.Count(c, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCountsAndTotal(t *testing.T) {
	c := context.Background()
	svc := newService(t)
	_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "M"), Quantity: quantity(2)})
	require.NoError(t, err)
	_, _, err = svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "L"), Quantity: quantity(1)})
	require.NoError(t, err)
	_, _, err = svc.AddItem(c, "u1", request.AddItem{Product: product("p2", ""), Quantity: quantity(4)})
	require.NoError(t, err)

	count, err := svc.Count(c, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	count, err = svc.CountForProduct(c, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = svc.CountForProduct(c, "u1", "slug-p2")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = svc.CountForProduct(c, "u2", "p1")
	require.NoError(t, err)
	assert.Zero(t, count)

	total, err := svc.Total(c, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("87.50").Equal(total.Total))
	assert.Equal(t, int64(8750), total.TotalMinorUnits)
	assert.Equal(t, "usd", total.Currency)
}

func TestSnapshotIsNotResynced(t *testing.T) {
	c := context.Background()
	svc := newService(t)
	_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "")})
	require.NoError(t, err)

	repriced := product("p1", "")
	repriced.Name = "renamed"
	repriced.Price = decimal.RequireFromString("99.99")
	cart, _, err := svc.AddItem(c, "u1", request.AddItem{Product: repriced})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "product p1", cart.Items[0].Name)
	assert.True(t, decimal.RequireFromString("12.50").Equal(cart.Items[0].Price))
}

func TestConcurrentAddItemLosesNothing(t *testing.T) {
	c := context.Background()
	svc := newService(t)

	const writers = 50
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddItem(c, "u1", request.AddItem{Product: product("p1", "")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := svc.Count(c, "u1")
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}
