package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

const persistTimeout = 2 * time.Second

// Persister stores the local cart snapshot.
type Persister interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, bool)
	Clear(ctx context.Context) error
}

// Syncer pushes cart state to the authority in the background.
type Syncer interface {
	Schedule(payload domain.SyncPayload)
	Flush()
	Stop()
}

// Authority answers the questions only the server can: promotions, shipping quotes, recommendations.
type Authority interface {
	ApplyCoupon(ctx context.Context, code string) (domain.Coupon, error)
	ApplyGiftCard(ctx context.Context, code string) (domain.GiftCard, error)
	CalculateShipping(ctx context.Context, address domain.Address, items []domain.CartItem) (domain.ShippingQuote, error)
	Recommendations(ctx context.Context, cartProductIDs, recentlyViewedIDs []string) ([]domain.Product, error)
}

// Engine owns the cart state. Every change goes through dispatch, which serializes mutations,
// recomputes totals, persists and schedules a sync.
type Engine struct {
	mu       sync.RWMutex
	state    State
	updating int

	persister Persister
	syncer    Syncer
	authority Authority
	session   session.Provider
	logger    *zap.Logger
	now       func() time.Time

	ready     chan struct{}
	readyOnce sync.Once
}

func New(persister Persister, syncer Syncer, authority Authority, sess session.Provider, logger *zap.Logger) *Engine {
	e := &Engine{
		persister: persister,
		syncer:    syncer,
		authority: authority,
		session:   sess,
		logger:    logger,
		now:       time.Now,
		ready:     make(chan struct{}),
	}
	e.state.IsLoading = true
	e.state.Totals = pricing.Calculate(nil, nil, nil)
	return e
}

// Restore loads the persisted snapshot, if any, and marks the engine ready.
// Commands issued before Restore block until it completes.
func (e *Engine) Restore(ctx context.Context) bool {
	snap, ok := e.persister.Load(ctx)

	e.mu.Lock()
	if ok {
		e.state = reduce(e.state, restoreSnapshot{snapshot: snap})
		e.state.Totals = e.totals(e.state)
	}
	e.state.IsLoading = false
	e.mu.Unlock()

	e.readyOnce.Do(func() { close(e.ready) })

	if ok {
		e.logger.Info("cart restored",
			zap.Int("items", len(snap.Items)),
			zap.Int("saved_for_later", len(snap.SavedForLater)),
		)
	}
	return ok
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state.clone()
	s.IsUpdating = e.updating > 0
	return s
}

func (e *Engine) AddItem(item domain.CartItem, quantity int) State {
	return e.dispatch(addItem{item: item, quantity: quantity})
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less removes it.
func (e *Engine) UpdateQuantity(key domain.ItemKey, quantity int) State {
	return e.dispatch(updateQuantity{key: key, quantity: quantity})
}

func (e *Engine) RemoveItem(key domain.ItemKey) State {
	return e.dispatch(removeItem{key: key})
}

// ClearCart empties the active lines and drops any promotions. Saved and recently viewed items stay.
func (e *Engine) ClearCart() State {
	return e.dispatch(clearCart{})
}

func (e *Engine) RemoveCoupon() State {
	return e.dispatch(setCoupon{})
}

func (e *Engine) RemoveGiftCard() State {
	return e.dispatch(setGiftCard{})
}

func (e *Engine) SaveForLater(key domain.ItemKey) State {
	return e.dispatch(saveForLater{key: key})
}

func (e *Engine) MoveToCart(key domain.ItemKey) State {
	return e.dispatch(moveToCart{key: key})
}

func (e *Engine) SetShippingAddress(address domain.Address) State {
	return e.dispatch(setShippingAddress{address: &address})
}

func (e *Engine) SetBillingAddress(address domain.Address) State {
	return e.dispatch(setBillingAddress{address: &address})
}

func (e *Engine) SetPaymentMethod(method domain.PaymentMethod) State {
	return e.dispatch(setPaymentMethod{method: &method})
}

func (e *Engine) ViewProduct(product domain.Product) State {
	return e.dispatch(viewProduct{product: product})
}

func (e *Engine) SetCartOpen(open bool) State {
	return e.dispatch(setCartOpen{open: open})
}

func (e *Engine) ToggleCartOpen() State {
	return e.dispatch(toggleCartOpen{})
}

// ApplyCoupon asks the authority to validate code and, if it is accepted, applies the coupon.
// A rejection leaves the cart untouched and is returned to the caller.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) (State, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return e.Snapshot(), ErrCodeRequired
	}
	if err := e.requireSession(); err != nil {
		return e.Snapshot(), err
	}
	e.awaitReady()

	e.beginUpdate()
	coupon, err := e.authority.ApplyCoupon(ctx, code)
	e.endUpdate()
	if err != nil {
		e.logger.Info("coupon not applied", zap.String("code", code), zap.Error(err))
		return e.Snapshot(), fmt.Errorf("apply coupon %q: %w", code, err)
	}

	return e.dispatch(setCoupon{coupon: &coupon}), nil
}

// ApplyGiftCard is the gift card counterpart of ApplyCoupon.
func (e *Engine) ApplyGiftCard(ctx context.Context, code string) (State, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return e.Snapshot(), ErrCodeRequired
	}
	if err := e.requireSession(); err != nil {
		return e.Snapshot(), err
	}
	e.awaitReady()

	e.beginUpdate()
	giftCard, err := e.authority.ApplyGiftCard(ctx, code)
	e.endUpdate()
	if err != nil {
		e.logger.Info("gift card not applied", zap.String("code", code), zap.Error(err))
		return e.Snapshot(), fmt.Errorf("apply gift card %q: %w", code, err)
	}

	return e.dispatch(setGiftCard{giftCard: &giftCard}), nil
}

// EstimateShipping fetches a carrier quote for the current cart. The quote is informational;
// Totals keep using the flat-rate shipping rule.
func (e *Engine) EstimateShipping(ctx context.Context, address *domain.Address) (domain.ShippingQuote, error) {
	if err := e.requireSession(); err != nil {
		return domain.ShippingQuote{}, err
	}
	e.awaitReady()

	current := e.Snapshot()
	if address == nil {
		address = current.ShippingAddress
	}
	if address == nil {
		return domain.ShippingQuote{}, ErrAddressRequired
	}

	e.beginUpdate()
	quote, err := e.authority.CalculateShipping(ctx, *address, current.Items)
	e.endUpdate()
	if err != nil {
		return domain.ShippingQuote{}, fmt.Errorf("estimate shipping: %w", err)
	}

	e.dispatch(setShippingQuote{quote: &quote})
	return quote, nil
}

func (e *Engine) Recommendations(ctx context.Context) ([]domain.Product, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}
	e.awaitReady()

	cartIDs, viewedIDs := e.Snapshot().productIDs()
	products, err := e.authority.Recommendations(ctx, cartIDs, viewedIDs)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return products, nil
}

// Reset drops all cart data for the current user and removes the local snapshot, as on logout.
// Pending syncs are cancelled.
func (e *Engine) Reset(ctx context.Context) State {
	e.awaitReady()
	e.syncer.Stop()

	e.mu.Lock()
	e.state = reduce(e.state, reset{})
	e.state.Totals = e.totals(e.state)
	s := e.state.clone()
	e.mu.Unlock()

	if err := e.persister.Clear(ctx); err != nil {
		e.logger.Warn("failed to clear cart snapshot", zap.Error(err))
	}
	return s
}

// Close pushes any pending sync immediately.
func (e *Engine) Close() {
	e.syncer.Flush()
}

func (e *Engine) dispatch(a action) State {
	e.awaitReady()

	e.mu.Lock()
	defer e.mu.Unlock()

	next := reduce(e.state, a)
	next.Totals = e.totals(next)

	if _, viewOnly := a.(viewAction); !viewOnly {
		next.LastUpdated = e.now().UTC()
		e.persist(next)
		e.syncer.Schedule(next.syncPayload())
	}

	e.state = next
	s := next.clone()
	s.IsUpdating = e.updating > 0
	return s
}

func (e *Engine) persist(s State) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.persister.Save(ctx, s.snapshot()); err != nil {
		e.logger.Warn("failed to persist cart snapshot", zap.Error(err))
	}
}

func (e *Engine) totals(s State) domain.Totals {
	return pricing.Calculate(s.Items, s.AppliedCoupon, s.AppliedGiftCard)
}

func (e *Engine) requireSession() error {
	if _, ok := e.session.Token(); !ok {
		return ErrSessionRequired
	}
	return nil
}

func (e *Engine) awaitReady() {
	<-e.ready
}

func (e *Engine) beginUpdate() {
	e.mu.Lock()
	e.updating++
	e.mu.Unlock()
}

func (e *Engine) endUpdate() {
	e.mu.Lock()
	e.updating--
	e.mu.Unlock()
}
