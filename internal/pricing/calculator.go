package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.15")
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
)

var hundred = decimal.NewFromInt(100)

// Calculate derives the cart totals from the active items and applied promotions.
// Coupon is a percentage of the subtotal, gift card a flat amount; both come off the same
// base and the total never drops below zero. Amounts are exact; rounding to cents is left to display.
func Calculate(items []domain.CartItem, coupon *domain.Coupon, giftCard *domain.GiftCard) domain.Totals {
	subtotal := decimal.Zero
	totalItems := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		totalItems += item.Quantity
	}

	tax := subtotal.Mul(TaxRate)

	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = subtotal.Mul(coupon.DiscountPercent).Div(hundred)
	}

	giftCardAmount := decimal.Zero
	if giftCard != nil {
		giftCardAmount = giftCard.Balance
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount).Sub(giftCardAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.Totals{
		Subtotal:       subtotal,
		Tax:            tax,
		Shipping:       shipping,
		Discount:       discount,
		GiftCardAmount: giftCardAmount,
		Total:          total,
		TotalItems:     totalItems,
	}
}
