package remote

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

// DefaultSyncWindow is the quiet period after the last mutation before the cart is pushed.
const DefaultSyncWindow = 2 * time.Second

type Pusher interface {
	SyncCart(ctx context.Context, payload domain.SyncPayload) error
}

// Syncer pushes the cart to the authority in the background. Pushes are best effort: a failure is
// logged and forgotten, never retried and never reflected in local state.
type Syncer struct {
	pusher    Pusher
	session   session.Provider
	debouncer *Debouncer
	timeout   time.Duration
	logger    *zap.Logger
}

func NewSyncer(pusher Pusher, sess session.Provider, window, timeout time.Duration, logger *zap.Logger) *Syncer {
	if window <= 0 {
		window = DefaultSyncWindow
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Syncer{
		pusher:    pusher,
		session:   sess,
		debouncer: NewDebouncer(window),
		timeout:   timeout,
		logger:    logger,
	}
}

// Schedule queues a push of payload, replacing any push still waiting for its window.
// Without a session credential it does nothing. The push is dropped if the credential has
// changed by the time it fires.
func (s *Syncer) Schedule(payload domain.SyncPayload) {
	token, ok := s.session.Token()
	if !ok {
		return
	}
	s.debouncer.Schedule(func() { s.push(token, payload) })
}

// Flush sends a waiting push immediately.
func (s *Syncer) Flush() {
	s.debouncer.Flush()
}

// Stop discards a waiting push.
func (s *Syncer) Stop() {
	s.debouncer.Stop()
}

func (s *Syncer) push(token string, payload domain.SyncPayload) {
	if current, ok := s.session.Token(); !ok || current != token {
		s.logger.Debug("session changed, dropping cart sync", zap.Int("items", len(payload.Items)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.pusher.SyncCart(ctx, payload); err != nil {
		s.logger.Warn("cart sync failed", zap.Int("items", len(payload.Items)), zap.Error(err))
		return
	}
	s.logger.Debug("cart synced", zap.Int("items", len(payload.Items)))
}
