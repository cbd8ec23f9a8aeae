package engine

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_DoesNotModifyInput(t *testing.T) {
	orig := decimal.NewFromInt(12)
	s := State{
		Items: []domain.CartItem{
			{ProductID: "a", Quantity: 1, UnitPrice: decimal.NewFromInt(10), OriginalPrice: &orig},
			{ProductID: "b", Quantity: 2, UnitPrice: decimal.NewFromInt(5)},
		},
		AppliedCoupon: &domain.Coupon{Code: "X", DiscountPercent: decimal.NewFromInt(5)},
	}

	next := reduce(s, addItem{item: domain.CartItem{ProductID: "a"}, quantity: 3})
	next = reduce(next, removeItem{key: domain.ItemKey{ProductID: "b"}})
	next = reduce(next, clearCart{})

	require.Len(t, s.Items, 2)
	assert.Equal(t, 1, s.Items[0].Quantity)
	assert.Equal(t, 2, s.Items[1].Quantity)
	assert.NotNil(t, s.AppliedCoupon)
	assert.Empty(t, next.Items)
}

func TestReduce_ClonesPointers(t *testing.T) {
	addr := &domain.Address{City: "Oslo"}
	next := reduce(State{}, setShippingAddress{address: addr})

	addr.City = "Bergen"
	assert.Equal(t, "Oslo", next.ShippingAddress.City)
}

func TestReduce_ResetKeepsOpenFlag(t *testing.T) {
	s := State{IsOpen: true, Items: []domain.CartItem{{ProductID: "a", Quantity: 1}}}

	next := reduce(s, reset{})
	assert.True(t, next.IsOpen)
	assert.Empty(t, next.Items)
}

func TestPushRecentlyViewed(t *testing.T) {
	var viewed []domain.Product
	viewed = pushRecentlyViewed(viewed, domain.Product{ID: "a"})
	viewed = pushRecentlyViewed(viewed, domain.Product{ID: "b"})
	viewed = pushRecentlyViewed(viewed, domain.Product{ID: "a", VariantID: "red"})
	viewed = pushRecentlyViewed(viewed, domain.Product{ID: "a"})

	ids := make([]string, 0, len(viewed))
	for _, p := range viewed {
		ids = append(ids, p.Key().String())
	}
	assert.Equal(t, []string{"a", "a:red", "b"}, ids)
}

func TestWithout(t *testing.T) {
	items := []domain.CartItem{{ProductID: "a"}, {ProductID: "b"}, {ProductID: "c"}}

	out := without(items, domain.ItemKey{ProductID: "b"})
	assert.Len(t, out, 2)
	assert.Equal(t, "b", items[1].ProductID)
	assert.Equal(t, items, without(items, domain.ItemKey{ProductID: "z"}))
}
