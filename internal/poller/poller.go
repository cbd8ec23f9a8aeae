package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/fjod/go_cart/storefront/internal/engine"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "storefront-cart"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type CartClearer interface {
	ClearCart() engine.State
}

type checkoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Poller empties the local cart once a checkout for the signed-in user completes.
type Poller struct {
	reader MessageReader
	cart    CartClearer
	session session.Provider
	logger  *zap.Logger

	retryDelay time.Duration
}

// NewPoller matches events against whoever holds the session when the event arrives.
func NewPoller(cart CartClearer, sess session.Provider, topic, groupID string, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(reader, cart, sess, logger)
}

func newPoller(reader MessageReader, cart CartClearer, sess session.Provider, logger *zap.Logger) *Poller {
	return &Poller{
		reader:  reader,
		cart:    cart,
		session: sess,
		logger:  logger,

		retryDelay: time.Second,
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		p.handle(m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handle(m kafka.Message) {
	var event checkoutCompleted
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return
	}
	if event.UserID == "" {
		p.logger.Warn("missing or invalid user_id", zap.Int64("offset", m.Offset))
		return
	}
	current, ok := p.session.Token()
	if !ok || event.UserID != current {
		return
	}

	p.cart.ClearCart()
	p.logger.Info("cart cleared after checkout",
		zap.String("checkout_id", event.CheckoutID),
		zap.String("user_id", event.UserID),
	)
}
