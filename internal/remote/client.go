package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	syncPath            = "/api/v1/cart"
	applyCouponPath     = "/api/v1/coupons/apply"
	applyGiftCardPath   = "/api/v1/gift-cards/apply"
	shippingPath        = "/api/v1/shipping/calculate"
	recommendationsPath = "/api/v1/recommendations"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// consecutive failures before the breaker opens
	MaxFailures uint32
	// how long the breaker stays open
	OpenTimeout time.Duration
}

// Client talks to the remote authority over its REST contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    session.Provider
	breaker    *gobreaker.CircuitBreaker[[]byte]
	sfg        singleflight.Group // collapses identical recommendation fetches
	logger     *zap.Logger
}

func NewClient(cfg Config, sess session.Provider, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "authority",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsRejection(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		session: sess,
		breaker: breaker,
		logger:  logger,
	}
}

type codeRequest struct {
	Code string `json:"code"`
}

type shippingRequest struct {
	Address domain.Address    `json:"address"`
	Items   []domain.CartItem `json:"items"`
}

type recommendationsRequest struct {
	CartProductIDs    []string `json:"cartProductIds"`
	RecentlyViewedIDs []string `json:"recentlyViewedIds"`
}

type recommendationsResponse struct {
	Products []domain.Product `json:"products"`
}

// SyncCart overwrites the authority's copy of the session cart.
func (c *Client) SyncCart(ctx context.Context, payload domain.SyncPayload) error {
	return c.do(ctx, http.MethodPut, syncPath, payload, nil)
}

func (c *Client) ApplyCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	var coupon domain.Coupon
	if err := c.do(ctx, http.MethodPost, applyCouponPath, codeRequest{Code: code}, &coupon); err != nil {
		return domain.Coupon{}, err
	}
	if coupon.Code == "" {
		coupon.Code = code
	}
	if coupon.DiscountPercent.IsNegative() || coupon.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return domain.Coupon{}, fmt.Errorf("%w: coupon discount %s out of range", ErrInvalidResponse, coupon.DiscountPercent)
	}
	return coupon, nil
}

func (c *Client) ApplyGiftCard(ctx context.Context, code string) (domain.GiftCard, error) {
	var giftCard domain.GiftCard
	if err := c.do(ctx, http.MethodPost, applyGiftCardPath, codeRequest{Code: code}, &giftCard); err != nil {
		return domain.GiftCard{}, err
	}
	if giftCard.Code == "" {
		giftCard.Code = code
	}
	if giftCard.Balance.IsNegative() {
		return domain.GiftCard{}, fmt.Errorf("%w: negative gift card balance %s", ErrInvalidResponse, giftCard.Balance)
	}
	return giftCard, nil
}

func (c *Client) CalculateShipping(ctx context.Context, address domain.Address, items []domain.CartItem) (domain.ShippingQuote, error) {
	var quote domain.ShippingQuote
	if err := c.do(ctx, http.MethodPost, shippingPath, shippingRequest{Address: address, Items: items}, &quote); err != nil {
		return domain.ShippingQuote{}, err
	}
	return quote, nil
}

// Recommendations shares one in-flight fetch between identical callers. The fetch is detached from
// any single caller's context, so one caller giving up does not fail the others; the HTTP client
// timeout still bounds it.
func (c *Client) Recommendations(ctx context.Context, cartProductIDs, recentlyViewedIDs []string) ([]domain.Product, error) {
	key := strings.Join(cartProductIDs, ",") + "|" + strings.Join(recentlyViewedIDs, ",")
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(key, func() (interface{}, error) {
		var resp recommendationsResponse
		req := recommendationsRequest{CartProductIDs: cartProductIDs, RecentlyViewedIDs: recentlyViewedIDs}
		if err := c.do(fetchCtx, http.MethodPost, recommendationsPath, req, &resp); err != nil {
			return nil, err
		}
		return resp.Products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Product), nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	token, ok := c.session.Token()
	if !ok {
		return ErrNoSession
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, token, payload)
	})
	if err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("authority error: status %d, body: %s", resp.StatusCode, string(body))
	case resp.StatusCode >= 400:
		return nil, rejection(resp.StatusCode, body)
	}
	return body, nil
}

func rejection(status int, body []byte) *RejectionError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &RejectionError{Status: status, Message: http.StatusText(status)}
	}
	return &RejectionError{Status: status, Code: errResp.Code, Message: errResp.Error}
}
