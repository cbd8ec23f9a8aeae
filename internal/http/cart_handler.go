package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/engine"
	applog "github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CartEngine is the part of engine.Engine the HTTP layer drives.
type CartEngine interface {
	Snapshot() engine.State
	AddItem(item domain.CartItem, quantity int) engine.State
	UpdateQuantity(key domain.ItemKey, quantity int) engine.State
	RemoveItem(key domain.ItemKey) engine.State
	ClearCart() engine.State
	ApplyCoupon(ctx context.Context, code string) (engine.State, error)
	RemoveCoupon() engine.State
	ApplyGiftCard(ctx context.Context, code string) (engine.State, error)
	RemoveGiftCard() engine.State
	SaveForLater(key domain.ItemKey) engine.State
	MoveToCart(key domain.ItemKey) engine.State
	SetShippingAddress(address domain.Address) engine.State
	SetBillingAddress(address domain.Address) engine.State
	SetPaymentMethod(method domain.PaymentMethod) engine.State
	SetCartOpen(open bool) engine.State
	ToggleCartOpen() engine.State
	ViewProduct(product domain.Product) engine.State
	EstimateShipping(ctx context.Context, address *domain.Address) (domain.ShippingQuote, error)
	Recommendations(ctx context.Context) ([]domain.Product, error)
	Reset(ctx context.Context) engine.State
}

type CartHandler struct {
	engine  CartEngine
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(e CartEngine, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		engine:  e,
		timeout: timeout,
		logger:  logger,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CodeRequestDTO struct {
	Code string `json:"code"`
}

type CartOpenRequestDTO struct {
	Open *bool `json:"open"`
}

type ShippingEstimateRequestDTO struct {
	Address *domain.Address `json:"address"`
}

type RecommendationsResponseDTO struct {
	Products []domain.Product `json:"products"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(item.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if err := item.Key().Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", err.Error())
		return
	}
	if item.UnitPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "unitPrice must not be negative")
		return
	}

	respondJSON(w, http.StatusCreated, h.engine.AddItem(item, item.Quantity))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKeyParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	respondJSON(w, http.StatusOK, h.engine.UpdateQuantity(key, req.Quantity))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKeyParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.engine.RemoveItem(key))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.ClearCart())
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	h.applyCode(w, r, h.engine.ApplyCoupon)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.RemoveCoupon())
}

func (h *CartHandler) ApplyGiftCard(w http.ResponseWriter, r *http.Request) {
	h.applyCode(w, r, h.engine.ApplyGiftCard)
}

func (h *CartHandler) RemoveGiftCard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.RemoveGiftCard())
}

func (h *CartHandler) applyCode(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (engine.State, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CodeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	state, err := apply(ctx, req.Code)
	if err != nil {
		applog.FromContext(ctx, h.logger).Debug("promotion not applied",
			zap.String("path", r.URL.Path),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err),
		)
		handleEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (h *CartHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKeyParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SaveForLater(key))
}

func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKeyParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.engine.MoveToCart(key))
}

func (h *CartHandler) SetShippingAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SetShippingAddress(addr))
}

func (h *CartHandler) SetBillingAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SetBillingAddress(addr))
}

func (h *CartHandler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var method domain.PaymentMethod
	if err := json.NewDecoder(r.Body).Decode(&method); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if method.Type == "" {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "type is required")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SetPaymentMethod(method))
}

// SetCartOpen sets the drawer flag from {"open": bool}, or toggles it when the body is empty.
func (h *CartHandler) SetCartOpen(w http.ResponseWriter, r *http.Request) {
	var req CartOpenRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	if req.Open == nil {
		respondJSON(w, http.StatusOK, h.engine.ToggleCartOpen())
		return
	}
	respondJSON(w, http.StatusOK, h.engine.SetCartOpen(*req.Open))
}

func (h *CartHandler) ViewProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id is required")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.ViewProduct(product))
}

func (h *CartHandler) EstimateShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ShippingEstimateRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	quote, err := h.engine.EstimateShipping(ctx, req.Address)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (h *CartHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.engine.Recommendations(ctx)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, http.StatusOK, RecommendationsResponseDTO{Products: products})
}

func itemKeyParam(w http.ResponseWriter, r *http.Request) (domain.ItemKey, bool) {
	key, err := domain.ParseItemKey(chi.URLParam(r, "item_key"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_item_key", "item key must be productId or productId:variantId")
		return domain.ItemKey{}, false
	}
	return key, true
}
