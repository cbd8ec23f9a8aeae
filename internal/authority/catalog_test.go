package authority

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Coupon(t *testing.T) {
	c := DefaultCatalog()

	coupon, err := c.Coupon(" welcome20 ")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME20", coupon.Code)
	assert.True(t, decimal.NewFromInt(20).Equal(coupon.DiscountPercent))

	_, err = c.Coupon("SUMMER15")
	assert.ErrorIs(t, err, ErrExpiredCode)

	_, err = c.Coupon("FREE")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestCatalog_GiftCard(t *testing.T) {
	c := DefaultCatalog()

	gc, err := c.GiftCard("gift50")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(gc.Balance))

	_, err = c.GiftCard("EMPTY")
	assert.ErrorIs(t, err, ErrEmptyBalance)
}

func TestCatalog_ShippingQuote(t *testing.T) {
	c := DefaultCatalog()
	small := []domain.CartItem{{ProductID: "mug", Quantity: 1, UnitPrice: decimal.NewFromInt(12)}}
	large := []domain.CartItem{{ProductID: "hoodie", Quantity: 2, UnitPrice: decimal.NewFromInt(54)}}

	quote, err := c.ShippingQuote(domain.Address{Country: "us"}, small)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(quote.Cost))

	quote, err = c.ShippingQuote(domain.Address{Country: "US"}, large)
	require.NoError(t, err)
	assert.True(t, quote.Cost.IsZero())

	quote, err = c.ShippingQuote(domain.Address{Country: "JP"}, large)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(quote.Cost))
	assert.Equal(t, "7-14 business days", quote.EstimatedDelivery)

	_, err = c.ShippingQuote(domain.Address{}, small)
	assert.ErrorIs(t, err, ErrMissingRegion)
}

func TestCatalog_Recommendations(t *testing.T) {
	c := DefaultCatalog()

	products := c.Recommendations([]string{"tee-classic", "mug"}, []string{"hoodie"})

	require.Len(t, products, 3)
	ids := []string{products[0].ID, products[1].ID, products[2].ID}
	assert.Equal(t, []string{"cap", "tote", "socks"}, ids)

	assert.Len(t, c.Recommendations(nil, nil), maxRecommendations)
}
