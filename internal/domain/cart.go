package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKey is the identity of a cart line: one line per product/variant pair.
type ItemKey struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
}

const keySeparator = ":"

func (k ItemKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + keySeparator + k.VariantID
}

// Validate reports whether the key survives a String/ParseItemKey round trip.
func (k ItemKey) Validate() error {
	if k.ProductID == "" {
		return fmt.Errorf("item key: product id is required")
	}
	if strings.Contains(k.ProductID, keySeparator) || strings.Contains(k.VariantID, keySeparator) {
		return fmt.Errorf("item key %q: ids must not contain %q", k.String(), keySeparator)
	}
	return nil
}

// ParseItemKey is the inverse of ItemKey.String.
func ParseItemKey(s string) (ItemKey, error) {
	productID, variantID, _ := strings.Cut(s, keySeparator)
	if productID == "" {
		return ItemKey{}, fmt.Errorf("invalid item key %q", s)
	}
	return ItemKey{ProductID: productID, VariantID: variantID}, nil
}

type CartItem struct {
	ProductID      string           `json:"productId"`
	VariantID      string           `json:"variantId,omitempty"`
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unitPrice"`
	OriginalPrice  *decimal.Decimal `json:"originalPrice,omitempty"`
	Name           string           `json:"name"`
	Image          string           `json:"image,omitempty"`
	StockAvailable bool             `json:"stockAvailable"`
	MaxQuantity    int              `json:"maxQuantity"`
	Brand          string           `json:"brand,omitempty"`
	Category       string           `json:"category,omitempty"`
}

func (i CartItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is the catalog view used for recently viewed entries and recommendations.
type Product struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	Category  string          `json:"category,omitempty"`
}

func (p Product) Key() ItemKey {
	return ItemKey{ProductID: p.ID, VariantID: p.VariantID}
}

// ProductOf derives the catalog view of a cart line.
func ProductOf(item CartItem) Product {
	return Product{
		ID:        item.ProductID,
		VariantID: item.VariantID,
		Name:      item.Name,
		Price:     item.UnitPrice,
		Image:     item.Image,
		Brand:     item.Brand,
		Category:  item.Category,
	}
}

type Coupon struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type GiftCard struct {
	Code    string          `json:"code"`
	Balance decimal.Decimal `json:"balance"`
}

type Address struct {
	FullName   string `json:"fullName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type PaymentMethod struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	Discount       decimal.Decimal `json:"discount"`
	GiftCardAmount decimal.Decimal `json:"giftCardAmount"`
	Total          decimal.Decimal `json:"total"`
	TotalItems     int             `json:"totalItems"`
}

// ShippingQuote is a server-side estimate. It is shown to the user but does not replace the
// flat-rate shipping used in Totals.
type ShippingQuote struct {
	Cost              decimal.Decimal `json:"cost"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
}

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	Items           []CartItem `json:"items"`
	SavedForLater   []CartItem `json:"savedForLater"`
	RecentlyViewed  []Product  `json:"recentlyViewed"`
	AppliedCoupon   *Coupon    `json:"appliedCoupon"`
	AppliedGiftCard *GiftCard  `json:"appliedGiftCard"`
	ShippingAddress *Address   `json:"shippingAddress"`
	BillingAddress  *Address   `json:"billingAddress"`
	LastUpdated     time.Time  `json:"lastUpdated"`
}

// IsEmpty reports whether there is nothing worth persisting.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0 && len(s.SavedForLater) == 0
}

// SyncPayload is what gets pushed to the remote authority.
type SyncPayload struct {
	Items           []CartItem `json:"items"`
	AppliedCoupon   *Coupon    `json:"appliedCoupon"`
	AppliedGiftCard *GiftCard  `json:"appliedGiftCard"`
}
