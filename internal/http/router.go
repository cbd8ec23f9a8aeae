package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// NewRouter wires the cart API. sessions may be nil when the credential is fixed by configuration.
func NewRouter(cart *CartHandler, sessions *SessionHandler, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)

			r.Post("/items", cart.AddItem)
			r.Put("/items/{item_key}", cart.UpdateQuantity)
			r.Delete("/items/{item_key}", cart.RemoveItem)

			r.Post("/coupon", cart.ApplyCoupon)
			r.Delete("/coupon", cart.RemoveCoupon)
			r.Post("/gift-card", cart.ApplyGiftCard)
			r.Delete("/gift-card", cart.RemoveGiftCard)

			r.Post("/saved/{item_key}", cart.SaveForLater)
			r.Post("/saved/{item_key}/move", cart.MoveToCart)

			r.Put("/shipping-address", cart.SetShippingAddress)
			r.Put("/billing-address", cart.SetBillingAddress)
			r.Put("/payment-method", cart.SetPaymentMethod)

			r.Post("/open", cart.SetCartOpen)
			r.Post("/viewed", cart.ViewProduct)
			r.Post("/shipping-estimate", cart.EstimateShipping)
			r.Get("/recommendations", cart.Recommendations)
		})

		if sessions != nil {
			r.Post("/session", sessions.SignIn)
			r.Delete("/session", sessions.SignOut)
		}
	})

	return otelhttp.NewHandler(r, "cartd")
}
