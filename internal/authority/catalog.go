package authority

import (
	"errors"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCode   = errors.New("unknown code")
	ErrExpiredCode   = errors.New("code has expired")
	ErrEmptyBalance  = errors.New("gift card has no balance")
	ErrMissingRegion = errors.New("address country is required")
)

const maxRecommendations = 4

type couponRule struct {
	percent decimal.Decimal
	expired bool
}

// Catalog is the static promotion and product data the development authority serves.
type Catalog struct {
	HomeCountry string
	coupons     map[string]couponRule
	giftCards   map[string]decimal.Decimal
	products    []domain.Product
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		HomeCountry: "US",
		coupons: map[string]couponRule{
			"SAVE10":    {percent: decimal.NewFromInt(10)},
			"WELCOME20": {percent: decimal.NewFromInt(20)},
			"SUMMER15":  {percent: decimal.NewFromInt(15), expired: true},
		},
		giftCards: map[string]decimal.Decimal{
			"GIFT25": decimal.NewFromInt(25),
			"GIFT50": decimal.NewFromInt(50),
			"EMPTY":  decimal.Zero,
		},
		products: []domain.Product{
			{ID: "tee-classic", Name: "Classic Tee", Price: decimal.RequireFromString("19.99"), Brand: "Northwind", Category: "apparel"},
			{ID: "hoodie", Name: "Zip Hoodie", Price: decimal.RequireFromString("54.00"), Brand: "Northwind", Category: "apparel"},
			{ID: "cap", Name: "Logo Cap", Price: decimal.RequireFromString("15.00"), Brand: "Northwind", Category: "accessories"},
			{ID: "mug", Name: "Enamel Mug", Price: decimal.RequireFromString("12.50"), Brand: "Fieldhouse", Category: "home"},
			{ID: "tote", Name: "Canvas Tote", Price: decimal.RequireFromString("24.00"), Brand: "Fieldhouse", Category: "accessories"},
			{ID: "socks", Name: "Wool Socks", Price: decimal.RequireFromString("9.00"), Brand: "Northwind", Category: "apparel"},
		},
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Catalog) Coupon(code string) (domain.Coupon, error) {
	code = normalizeCode(code)
	rule, ok := c.coupons[code]
	if !ok {
		return domain.Coupon{}, ErrUnknownCode
	}
	if rule.expired {
		return domain.Coupon{}, ErrExpiredCode
	}
	return domain.Coupon{Code: code, DiscountPercent: rule.percent}, nil
}

func (c *Catalog) GiftCard(code string) (domain.GiftCard, error) {
	code = normalizeCode(code)
	balance, ok := c.giftCards[code]
	if !ok {
		return domain.GiftCard{}, ErrUnknownCode
	}
	if !balance.IsPositive() {
		return domain.GiftCard{}, ErrEmptyBalance
	}
	return domain.GiftCard{Code: code, Balance: balance}, nil
}

// ShippingQuote uses the flat-rate rule at home and a fixed international rate elsewhere.
func (c *Catalog) ShippingQuote(address domain.Address, items []domain.CartItem) (domain.ShippingQuote, error) {
	country := strings.ToUpper(strings.TrimSpace(address.Country))
	if country == "" {
		return domain.ShippingQuote{}, ErrMissingRegion
	}
	if country != c.HomeCountry {
		return domain.ShippingQuote{Cost: decimal.NewFromInt(25), EstimatedDelivery: "7-14 business days"}, nil
	}
	totals := pricing.Calculate(items, nil, nil)
	return domain.ShippingQuote{Cost: totals.Shipping, EstimatedDelivery: "3-5 business days"}, nil
}

// Recommendations returns catalog products that are neither in the cart nor recently viewed.
func (c *Catalog) Recommendations(cartProductIDs, recentlyViewedIDs []string) []domain.Product {
	exclude := make(map[string]bool, len(cartProductIDs)+len(recentlyViewedIDs))
	for _, id := range cartProductIDs {
		exclude[id] = true
	}
	for _, id := range recentlyViewedIDs {
		exclude[id] = true
	}

	out := make([]domain.Product, 0, maxRecommendations)
	for _, p := range c.products {
		if len(out) == maxRecommendations {
			break
		}
		if !exclude[p.ID] {
			out = append(out, p)
		}
	}
	return out
}
