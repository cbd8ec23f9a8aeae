package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Server implements the REST contract cart clients sync against.
type Server struct {
	repo      CartRepository
	catalog   *Catalog
	publisher EventPublisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewServer builds the authority. publisher may be nil, in which case checkouts are not announced.
func NewServer(repo CartRepository, catalog *Catalog, publisher EventPublisher, timeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

type codeRequestDTO struct {
	Code string `json:"code"`
}

type shippingRequestDTO struct {
	Address domain.Address    `json:"address"`
	Items   []domain.CartItem `json:"items"`
}

type recommendationsRequestDTO struct {
	CartProductIDs    []string `json:"cartProductIds"`
	RecentlyViewedIDs []string `json:"recentlyViewedIds"`
}

type recommendationsResponseDTO struct {
	Products []domain.Product `json:"products"`
}

type checkoutResponseDTO struct {
	CheckoutID  string          `json:"checkoutId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth)

		r.Get("/cart", s.GetCart)
		r.Put("/cart", s.SyncCart)
		r.Post("/coupons/apply", s.ApplyCoupon)
		r.Post("/gift-cards/apply", s.ApplyGiftCard)
		r.Post("/shipping/calculate", s.CalculateShipping)
		r.Post("/recommendations", s.Recommendations)
		r.Post("/checkout", s.Checkout)
	})

	return otelhttp.NewHandler(r, "authority")
}

// BearerAuth treats the bearer token as the user id.
func BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	cart, err := s.repo.GetCart(ctx, getUserID(r.Context()))
	if errors.Is(err, ErrCartNotFound) {
		respondJSON(w, http.StatusOK, domain.SyncPayload{Items: []domain.CartItem{}})
		return
	}
	if err != nil {
		s.internalError(w, "get cart", err)
		return
	}

	respondJSON(w, http.StatusOK, cart.Payload())
}

func (s *Server) SyncCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var payload domain.SyncPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	for _, item := range payload.Items {
		if item.ProductID == "" || item.Quantity < 1 {
			respondError(w, http.StatusBadRequest, "invalid_item", "every item needs a productId and a positive quantity")
			return
		}
	}

	if err := s.repo.UpsertCart(ctx, recordFromPayload(getUserID(r.Context()), payload)); err != nil {
		s.internalError(w, "sync cart", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req codeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "code_required", "code is required")
		return
	}

	coupon, err := s.catalog.Coupon(req.Code)
	switch {
	case errors.Is(err, ErrUnknownCode):
		respondError(w, http.StatusNotFound, "coupon_not_found", "Invalid coupon code")
	case errors.Is(err, ErrExpiredCode):
		respondError(w, http.StatusUnprocessableEntity, "coupon_expired", "Coupon has expired")
	case err != nil:
		s.internalError(w, "apply coupon", err)
	default:
		respondJSON(w, http.StatusOK, coupon)
	}
}

func (s *Server) ApplyGiftCard(w http.ResponseWriter, r *http.Request) {
	var req codeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "code_required", "code is required")
		return
	}

	giftCard, err := s.catalog.GiftCard(req.Code)
	switch {
	case errors.Is(err, ErrUnknownCode):
		respondError(w, http.StatusNotFound, "gift_card_not_found", "Gift card not found")
	case errors.Is(err, ErrEmptyBalance):
		respondError(w, http.StatusUnprocessableEntity, "gift_card_empty", "Gift card has no remaining balance")
	case err != nil:
		s.internalError(w, "apply gift card", err)
	default:
		respondJSON(w, http.StatusOK, giftCard)
	}
}

func (s *Server) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	quote, err := s.catalog.ShippingQuote(req.Address, req.Items)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	respondJSON(w, http.StatusOK, recommendationsResponseDTO{
		Products: s.catalog.Recommendations(req.CartProductIDs, req.RecentlyViewedIDs),
	})
}

// Checkout turns the stored cart into an order: it announces the checkout and deletes the cart.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	userID := getUserID(r.Context())

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		s.internalError(w, "checkout", err)
		return
	}
	if cart == nil || len(cart.Items) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "cart_empty", "cart is empty")
		return
	}

	p := cart.Payload()
	totals := pricing.Calculate(p.Items, p.AppliedCoupon, p.AppliedGiftCard)
	amount := totals.Total.Round(2)
	checkoutID := uuid.NewString()

	if s.publisher != nil {
		event := map[string]interface{}{
			"checkout_id":  checkoutID,
			"user_id":      userID,
			"items":        p.Items,
			"total_amount": amount,
			"currency":     "USD",
			"completed_at": time.Now().UTC(),
		}
		payloadJSON, err := json.Marshal(event)
		if err != nil {
			s.internalError(w, "marshal checkout event", err)
			return
		}
		if err := s.publisher.Publish(ctx, checkoutID, payloadJSON); err != nil {
			s.logger.Error("failed to publish checkout", zap.String("checkout_id", checkoutID), zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "publish_failed", "checkout could not be completed")
			return
		}
	}

	if err := s.repo.DeleteCart(ctx, userID); err != nil && !errors.Is(err, ErrCartNotFound) {
		s.logger.Warn("failed to delete cart after checkout", zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("checkout completed",
		zap.String("checkout_id", checkoutID),
		zap.String("user_id", userID),
		zap.String("total", amount.StringFixed(2)),
	)
	respondJSON(w, http.StatusCreated, checkoutResponseDTO{
		CheckoutID:  checkoutID,
		TotalAmount: amount,
		TotalItems:  totals.TotalItems,
	})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, remote.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
