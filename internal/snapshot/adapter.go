package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
	"go.uber.org/zap"
)

const DefaultKey = "cart"

// Adapter reads and writes the cart snapshot under a single fixed key.
type Adapter struct {
	store  store.Store
	key    string
	logger *zap.Logger
}

func NewAdapter(s store.Store, key string, logger *zap.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{
		store:  s,
		key:    key,
		logger: logger,
	}
}

// Save writes the snapshot, or deletes the key when there are neither items nor saved-for-later entries.
func (a *Adapter) Save(ctx context.Context, snap domain.Snapshot) error {
	if snap.IsEmpty() {
		if err := a.store.Delete(ctx, a.key); err != nil {
			return fmt.Errorf("delete empty snapshot failed: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}
	if err := a.store.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("write snapshot failed: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. It never fails: a missing, unreadable or corrupted entry
// yields ok == false, and a corrupted entry is removed.
func (a *Adapter) Load(ctx context.Context) (domain.Snapshot, bool) {
	data, err := a.store.Get(ctx, a.key)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Snapshot{}, false
	}
	if err != nil {
		a.logger.Warn("snapshot read failed, starting empty", zap.String("key", a.key), zap.Error(err))
		return domain.Snapshot{}, false
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		a.logger.Warn("discarding corrupted snapshot", zap.String("key", a.key), zap.Error(err))
		if errDelete := a.store.Delete(ctx, a.key); errDelete != nil {
			a.logger.Warn("corrupted snapshot delete failed", zap.String("key", a.key), zap.Error(errDelete))
		}
		return domain.Snapshot{}, false
	}

	return sanitize(snap), true
}

// Clear removes the stored snapshot.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.store.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("delete snapshot failed: %w", err)
	}
	return nil
}

// sanitize drops lines that could not have been written by the engine.
func sanitize(snap domain.Snapshot) domain.Snapshot {
	snap.Items = validItems(snap.Items)
	snap.SavedForLater = validItems(snap.SavedForLater)
	return snap
}

func validItems(items []domain.CartItem) []domain.CartItem {
	out := items[:0]
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			continue
		}
		out = append(out, item)
	}
	return out
}
