package engine

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MaxRecentlyViewed bounds the recently viewed list.
const MaxRecentlyViewed = 10

// State is the full cart as seen by consumers. Totals are derived and recomputed on every change.
type State struct {
	Items           []domain.CartItem     `json:"items"`
	SavedForLater   []domain.CartItem     `json:"savedForLater"`
	RecentlyViewed  []domain.Product      `json:"recentlyViewed"`
	AppliedCoupon   *domain.Coupon        `json:"appliedCoupon"`
	AppliedGiftCard *domain.GiftCard      `json:"appliedGiftCard"`
	ShippingAddress *domain.Address       `json:"shippingAddress"`
	BillingAddress  *domain.Address       `json:"billingAddress"`
	PaymentMethod   *domain.PaymentMethod `json:"paymentMethod"`
	ShippingQuote   *domain.ShippingQuote `json:"shippingQuote"`
	Totals          domain.Totals         `json:"totals"`
	LastUpdated     time.Time             `json:"lastUpdated"`
	IsLoading       bool                  `json:"isLoading"`
	IsUpdating      bool                  `json:"isUpdating"`
	IsOpen          bool                  `json:"isOpen"`
}

// Item returns the active line with the given identity.
func (s State) Item(key domain.ItemKey) (domain.CartItem, bool) {
	if i := indexOf(s.Items, key); i >= 0 {
		return s.Items[i], true
	}
	return domain.CartItem{}, false
}

func (s State) snapshot() domain.Snapshot {
	c := s.clone()
	return domain.Snapshot{
		Items:           c.Items,
		SavedForLater:   c.SavedForLater,
		RecentlyViewed:  c.RecentlyViewed,
		AppliedCoupon:   c.AppliedCoupon,
		AppliedGiftCard: c.AppliedGiftCard,
		ShippingAddress: c.ShippingAddress,
		BillingAddress:  c.BillingAddress,
		LastUpdated:     c.LastUpdated,
	}
}

func (s State) syncPayload() domain.SyncPayload {
	c := s.clone()
	return domain.SyncPayload{
		Items:           c.Items,
		AppliedCoupon:   c.AppliedCoupon,
		AppliedGiftCard: c.AppliedGiftCard,
	}
}

func (s State) productIDs() (cart, viewed []string) {
	for _, item := range s.Items {
		cart = append(cart, item.ProductID)
	}
	for _, p := range s.RecentlyViewed {
		viewed = append(viewed, p.ID)
	}
	return cart, viewed
}

// clone deep-copies everything a consumer could mutate.
func (s State) clone() State {
	c := s
	c.Items = cloneItems(s.Items)
	c.SavedForLater = cloneItems(s.SavedForLater)
	if s.RecentlyViewed != nil {
		c.RecentlyViewed = append([]domain.Product(nil), s.RecentlyViewed...)
	}
	c.AppliedCoupon = clonePtr(s.AppliedCoupon)
	c.AppliedGiftCard = clonePtr(s.AppliedGiftCard)
	c.ShippingAddress = clonePtr(s.ShippingAddress)
	c.BillingAddress = clonePtr(s.BillingAddress)
	c.PaymentMethod = clonePtr(s.PaymentMethod)
	c.ShippingQuote = clonePtr(s.ShippingQuote)
	return c
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	if items == nil {
		return nil
	}
	out := make([]domain.CartItem, len(items))
	for i, item := range items {
		item.OriginalPrice = clonePtr(item.OriginalPrice)
		out[i] = item
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
