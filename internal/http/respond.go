package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/engine"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleEngineError maps engine and authority errors to HTTP responses.
func handleEngineError(w http.ResponseWriter, err error) {
	var rejection *remote.RejectionError

	switch {
	case errors.As(err, &rejection):
		code := rejection.Code
		if code == "" {
			code = "rejected"
		}
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   rejection.Message,
			Code:    code,
			Details: http.StatusText(rejection.Status),
		})
	case errors.Is(err, engine.ErrCodeRequired):
		respondError(w, http.StatusBadRequest, "code_required", err.Error())
	case errors.Is(err, engine.ErrAddressRequired):
		respondError(w, http.StatusBadRequest, "address_required", err.Error())
	case errors.Is(err, engine.ErrSessionRequired), errors.Is(err, remote.ErrNoSession):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "store service is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "store service did not respond in time")
	default:
		respondError(w, http.StatusBadGateway, "authority_error", err.Error())
	}
}
