package engine

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type action interface {
	isAction()
}

// viewAction marks actions that only touch UI flags: they are neither persisted nor synced.
type viewAction interface {
	action
	viewOnly()
}

type addItem struct {
	item     domain.CartItem
	quantity int
}

type updateQuantity struct {
	key      domain.ItemKey
	quantity int
}

type removeItem struct{ key domain.ItemKey }

type clearCart struct{}

type setCoupon struct{ coupon *domain.Coupon }

type setGiftCard struct{ giftCard *domain.GiftCard }

type saveForLater struct{ key domain.ItemKey }

type moveToCart struct{ key domain.ItemKey }

type setShippingAddress struct{ address *domain.Address }

type setBillingAddress struct{ address *domain.Address }

type setPaymentMethod struct{ method *domain.PaymentMethod }

type viewProduct struct{ product domain.Product }

type restoreSnapshot struct{ snapshot domain.Snapshot }

type reset struct{}

type setCartOpen struct{ open bool }

type toggleCartOpen struct{}

type setShippingQuote struct{ quote *domain.ShippingQuote }

func (addItem) isAction()            {}
func (updateQuantity) isAction()     {}
func (removeItem) isAction()         {}
func (clearCart) isAction()          {}
func (setCoupon) isAction()          {}
func (setGiftCard) isAction()        {}
func (saveForLater) isAction()       {}
func (moveToCart) isAction()         {}
func (setShippingAddress) isAction() {}
func (setBillingAddress) isAction()  {}
func (setPaymentMethod) isAction()   {}
func (viewProduct) isAction()        {}
func (restoreSnapshot) isAction()    {}
func (reset) isAction()              {}
func (setCartOpen) isAction()        {}
func (toggleCartOpen) isAction()     {}
func (setShippingQuote) isAction()   {}

func (setCartOpen) viewOnly()      {}
func (toggleCartOpen) viewOnly()   {}
func (setShippingQuote) viewOnly() {}

// reduce returns the state that results from applying a to s. It never modifies s.
// Totals are not touched here; the engine recomputes them after every reduction.
func reduce(s State, a action) State {
	next := s.clone()

	switch a := a.(type) {
	case addItem:
		qty := a.quantity
		if qty < 1 {
			qty = 1
		}
		next.Items = mergeItem(next.Items, a.item, qty)
		next.RecentlyViewed = pushRecentlyViewed(next.RecentlyViewed, domain.ProductOf(a.item))

	case updateQuantity:
		if a.quantity <= 0 {
			next.Items = without(next.Items, a.key)
			break
		}
		if i := indexOf(next.Items, a.key); i >= 0 {
			next.Items[i].Quantity = a.quantity
		}

	case removeItem:
		next.Items = without(next.Items, a.key)

	case clearCart:
		next.Items = nil
		next.AppliedCoupon = nil
		next.AppliedGiftCard = nil

	case setCoupon:
		next.AppliedCoupon = clonePtr(a.coupon)

	case setGiftCard:
		next.AppliedGiftCard = clonePtr(a.giftCard)

	case saveForLater:
		i := indexOf(next.Items, a.key)
		if i < 0 {
			break
		}
		item := next.Items[i]
		next.Items = without(next.Items, a.key)
		next.SavedForLater = append(without(next.SavedForLater, a.key), item)

	case moveToCart:
		i := indexOf(next.SavedForLater, a.key)
		if i < 0 {
			break
		}
		item := next.SavedForLater[i]
		next.SavedForLater = without(next.SavedForLater, a.key)
		next.Items = mergeItem(next.Items, item, item.Quantity)

	case setShippingAddress:
		next.ShippingAddress = clonePtr(a.address)

	case setBillingAddress:
		next.BillingAddress = clonePtr(a.address)

	case setPaymentMethod:
		next.PaymentMethod = clonePtr(a.method)

	case viewProduct:
		next.RecentlyViewed = pushRecentlyViewed(next.RecentlyViewed, a.product)

	case restoreSnapshot:
		snap := a.snapshot
		next.Items = nil
		for _, item := range snap.Items {
			next.Items = mergeItem(next.Items, item, item.Quantity)
		}
		next.SavedForLater = nil
		for _, item := range snap.SavedForLater {
			next.SavedForLater = append(without(next.SavedForLater, item.Key()), item)
		}
		next.RecentlyViewed = nil
		for i := len(snap.RecentlyViewed) - 1; i >= 0; i-- {
			next.RecentlyViewed = pushRecentlyViewed(next.RecentlyViewed, snap.RecentlyViewed[i])
		}
		next.AppliedCoupon = clonePtr(snap.AppliedCoupon)
		next.AppliedGiftCard = clonePtr(snap.AppliedGiftCard)
		next.ShippingAddress = clonePtr(snap.ShippingAddress)
		next.BillingAddress = clonePtr(snap.BillingAddress)
		next.LastUpdated = snap.LastUpdated

	case reset:
		next = State{IsOpen: s.IsOpen}

	case setCartOpen:
		next.IsOpen = a.open

	case toggleCartOpen:
		next.IsOpen = !next.IsOpen

	case setShippingQuote:
		next.ShippingQuote = clonePtr(a.quote)
	}

	return next
}

// mergeItem increments the quantity of an existing line with the same identity, or appends item.
func mergeItem(items []domain.CartItem, item domain.CartItem, qty int) []domain.CartItem {
	if i := indexOf(items, item.Key()); i >= 0 {
		items[i].Quantity += qty
		return items
	}
	item.Quantity = qty
	return append(items, item)
}

// pushRecentlyViewed puts p first, dropping an older entry with the same identity and anything
// past MaxRecentlyViewed.
func pushRecentlyViewed(viewed []domain.Product, p domain.Product) []domain.Product {
	out := make([]domain.Product, 0, MaxRecentlyViewed)
	out = append(out, p)
	for _, v := range viewed {
		if len(out) == MaxRecentlyViewed {
			break
		}
		if v.Key() == p.Key() {
			continue
		}
		out = append(out, v)
	}
	return out
}

func indexOf(items []domain.CartItem, key domain.ItemKey) int {
	for i, item := range items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func without(items []domain.CartItem, key domain.ItemKey) []domain.CartItem {
	i := indexOf(items, key)
	if i < 0 {
		return items
	}
	out := make([]domain.CartItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
