package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/session"
	"go.uber.org/zap"
)

type SessionHandler struct {
	holder *session.Holder
	engine CartEngine
	logger *zap.Logger
}

func NewSessionHandler(holder *session.Holder, e CartEngine, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		holder: holder,
		engine: e,
		logger: logger,
	}
}

type SignInRequestDTO struct {
	Token string `json:"token"`
}

// SignIn stores the credential used for authority calls. Signing in as someone else first
// drops the previous shopper's local cart.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		respondError(w, http.StatusBadRequest, "invalid_token", "token is required")
		return
	}

	if current, ok := h.holder.Token(); ok && current != token {
		h.engine.Reset(r.Context())
		h.logger.Info("previous session replaced")
	}
	h.holder.Set(token)
	h.logger.Info("session started")
	w.WriteHeader(http.StatusNoContent)
}

// SignOut drops the credential and wipes the local cart.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	state := h.engine.Reset(r.Context())
	h.holder.Clear()
	h.logger.Info("session ended")
	respondJSON(w, http.StatusOK, state)
}
