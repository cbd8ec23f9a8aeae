package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, sess session.Provider) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, MaxFailures: 2, OpenTimeout: time.Minute}, sess, zap.NewNop())
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestApplyCoupon_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, applyCouponPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req codeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SAVE10", req.Code)

		writeJSON(w, http.StatusOK, map[string]interface{}{"code": "SAVE10", "discountPercent": 10, "extra": "ignored"})
	}, session.Static("tok"))

	coupon, err := c.ApplyCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", coupon.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(coupon.DiscountPercent))
}

func TestApplyCoupon_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "Coupon has expired", Code: "coupon_expired"})
	}, session.Static("tok"))

	_, err := c.ApplyCoupon(context.Background(), "OLD")
	require.Error(t, err)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, http.StatusUnprocessableEntity, rejection.Status)
	assert.Equal(t, "coupon_expired", rejection.Code)
	assert.Equal(t, "Coupon has expired", rejection.Message)
}

func TestApplyCoupon_RejectedWithoutBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, session.Static("tok"))

	_, err := c.ApplyCoupon(context.Background(), "NOPE")

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "Not Found", rejection.Message)
}

func TestApplyCoupon_OutOfRange(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": "X", "discountPercent": 150})
	}, session.Static("tok"))

	_, err := c.ApplyCoupon(context.Background(), "X")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestApplyGiftCard_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, applyGiftCardPath, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"balance": "25.50"})
	}, session.Static("tok"))

	giftCard, err := c.ApplyGiftCard(context.Background(), "GC-1")
	require.NoError(t, err)
	assert.Equal(t, "GC-1", giftCard.Code)
	assert.True(t, decimal.RequireFromString("25.50").Equal(giftCard.Balance))
}

func TestApplyGiftCard_NegativeBalance(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": "GC", "balance": "-1"})
	}, session.Static("tok"))

	_, err := c.ApplyGiftCard(context.Background(), "GC")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDo_NoSession(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, session.Static(""))

	err := c.SyncCart(context.Background(), domain.SyncPayload{})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestSyncCart_SendsPayload(t *testing.T) {
	var got domain.SyncPayload
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, syncPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}, session.Static("tok"))

	payload := domain.SyncPayload{
		Items:         []domain.CartItem{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(5)}},
		AppliedCoupon: &domain.Coupon{Code: "TEN", DiscountPercent: decimal.NewFromInt(10)},
	}
	require.NoError(t, c.SyncCart(context.Background(), payload))

	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	require.NotNil(t, got.AppliedCoupon)
	assert.Nil(t, got.AppliedGiftCard)
}

func TestServerError_OpensBreaker(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, session.Static("tok"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := c.SyncCart(ctx, domain.SyncPayload{})
		require.Error(t, err)
		assert.False(t, IsRejection(err))
		assert.Contains(t, err.Error(), "status 502")
	}

	err := c.SyncCart(ctx, domain.SyncPayload{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRejections_DoNotOpenBreaker(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid code"})
	}, session.Static("tok"))

	for i := 0; i < 5; i++ {
		_, err := c.ApplyCoupon(context.Background(), "BAD")
		assert.True(t, IsRejection(err))
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}

func TestCalculateShipping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req shippingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DE", req.Address.Country)
		writeJSON(w, http.StatusOK, domain.ShippingQuote{Cost: decimal.NewFromInt(25), EstimatedDelivery: "5-7 business days"})
	}, session.Static("tok"))

	quote, err := c.CalculateShipping(context.Background(), domain.Address{Country: "DE"}, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(quote.Cost))
	assert.Equal(t, "5-7 business days", quote.EstimatedDelivery)
}

func TestRecommendations(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req recommendationsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"p1"}, req.CartProductIDs)
		assert.Equal(t, []string{"p2"}, req.RecentlyViewedIDs)
		writeJSON(w, http.StatusOK, recommendationsResponse{Products: []domain.Product{{ID: "p9", Name: "Socks"}}})
	}, session.Static("tok"))

	products, err := c.Recommendations(context.Background(), []string{"p1"}, []string{"p2"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p9", products[0].ID)
}

func TestRecommendations_CallerCancelDoesNotFailOthers(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		entered <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, recommendationsResponse{Products: []domain.Product{{ID: "p9"}}})
	}, session.Static("tok"))
	defer close(release)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Recommendations(firstCtx, []string{"p1"}, nil)
		firstErr <- err
	}()
	<-entered

	type result struct {
		products []domain.Product
		err      error
	}
	second := make(chan result, 1)
	go func() {
		products, err := c.Recommendations(context.Background(), []string{"p1"}, nil)
		second <- result{products, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	release <- struct{}{}
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.products, 1)
	assert.Equal(t, "p9", res.products[0].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestInvalidJSONResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	}, session.Static("tok"))

	_, err := c.ApplyGiftCard(context.Background(), "GC")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}
