package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error   { return f.err }
func (f failingStore) Delete(context.Context, string) error        { return f.err }

func sampleSnapshot() domain.Snapshot {
	original := decimal.RequireFromString("59.99")
	return domain.Snapshot{
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("50"), Name: "Mug", StockAvailable: true, MaxQuantity: 10},
			{ProductID: "p2", VariantID: "blue", Quantity: 1, UnitPrice: decimal.RequireFromString("60"), OriginalPrice: &original, Name: "Shirt"},
		},
		SavedForLater:   []domain.CartItem{{ProductID: "p3", Quantity: 1, UnitPrice: decimal.RequireFromString("5")}},
		RecentlyViewed:  []domain.Product{{ID: "p2", VariantID: "blue", Name: "Shirt"}},
		AppliedCoupon:   &domain.Coupon{Code: "TEN", DiscountPercent: decimal.NewFromInt(10)},
		AppliedGiftCard: &domain.GiftCard{Code: "GC-1", Balance: decimal.RequireFromString("20.50")},
		ShippingAddress: &domain.Address{FullName: "Ann", Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		BillingAddress:  &domain.Address{FullName: "Ann", Street: "2 Side St", City: "Springfield", PostalCode: "12345", Country: "US"},
		LastUpdated:     time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	a := NewAdapter(s, "", zap.NewNop())
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, a.Save(ctx, want))

	got, ok := a.Load(ctx)
	require.True(t, ok)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, want.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice))
	require.NotNil(t, got.Items[1].OriginalPrice)
	assert.True(t, want.Items[1].OriginalPrice.Equal(*got.Items[1].OriginalPrice))
	assert.Equal(t, "blue", got.Items[1].VariantID)
	require.Len(t, got.SavedForLater, 1)
	require.Len(t, got.RecentlyViewed, 1)
	require.NotNil(t, got.AppliedCoupon)
	assert.Equal(t, "TEN", got.AppliedCoupon.Code)
	require.NotNil(t, got.AppliedGiftCard)
	assert.True(t, want.AppliedGiftCard.Balance.Equal(got.AppliedGiftCard.Balance))
	assert.Equal(t, want.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, want.BillingAddress, got.BillingAddress)
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
}

func TestAdapter_UsesFixedKey(t *testing.T) {
	s := store.NewMemoryStore()
	a := NewAdapter(s, "storefront-cart", zap.NewNop())

	require.NoError(t, a.Save(context.Background(), sampleSnapshot()))

	data, err := s.Get(context.Background(), "storefront-cart")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastUpdated":"2026-10-17T12:00:00Z"`)
	assert.Contains(t, string(data), `"appliedCoupon":{"code":"TEN"`)
}

func TestAdapter_EmptySnapshotDeletesKey(t *testing.T) {
	s := store.NewMemoryStore()
	a := NewAdapter(s, "", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, sampleSnapshot()))

	empty := domain.Snapshot{RecentlyViewed: []domain.Product{{ID: "p1"}}}
	require.NoError(t, a.Save(ctx, empty))

	_, err := s.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdapter_LoadMissing(t *testing.T) {
	a := NewAdapter(store.NewMemoryStore(), "", zap.NewNop())

	_, ok := a.Load(context.Background())
	assert.False(t, ok)
}

func TestAdapter_LoadCorruptedDiscards(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, DefaultKey, []byte(`{"items":[{"productId":`)))
	a := NewAdapter(s, "", zap.NewNop())

	snap, ok := a.Load(ctx)
	assert.False(t, ok)
	assert.Empty(t, snap.Items)

	_, err := s.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdapter_LoadWrongShapeDiscards(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, DefaultKey, []byte(`{"items":"not-a-list"}`)))
	a := NewAdapter(s, "", zap.NewNop())

	_, ok := a.Load(ctx)
	assert.False(t, ok)
}

func TestAdapter_LoadDropsInvalidLines(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	raw := `{"items":[{"productId":"p1","quantity":0,"unitPrice":"1"},{"productId":"p2","quantity":1,"unitPrice":"2"},{"productId":"","quantity":3,"unitPrice":"1"}]}`
	require.NoError(t, s.Set(ctx, DefaultKey, []byte(raw)))
	a := NewAdapter(s, "", zap.NewNop())

	snap, ok := a.Load(ctx)
	require.True(t, ok)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "p2", snap.Items[0].ProductID)
}

func TestAdapter_LoadStoreError(t *testing.T) {
	a := NewAdapter(failingStore{err: errors.New("disk gone")}, "", zap.NewNop())

	_, ok := a.Load(context.Background())
	assert.False(t, ok)
}

func TestAdapter_SaveStoreError(t *testing.T) {
	a := NewAdapter(failingStore{err: errors.New("disk gone")}, "", zap.NewNop())

	err := a.Save(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write snapshot failed")
}
