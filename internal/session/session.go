package session

import "sync"

// Provider reports the current auth credential. ok is false when nobody is signed in, in which
// case the cart stays purely local.
type Provider interface {
	Token() (token string, ok bool)
}

// Static is a fixed credential, typically taken from configuration.
type Static string

func (s Static) Token() (string, bool) {
	return string(s), s != ""
}

// Holder is a credential that can change at runtime on sign-in and sign-out.
type Holder struct {
	mu    sync.RWMutex
	token string
}

func NewHolder(token string) *Holder {
	return &Holder{token: token}
}

func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

func (h *Holder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *Holder) Clear() {
	h.Set("")
}
