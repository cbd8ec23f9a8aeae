package remote

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession       = errors.New("no session credential")
	ErrInvalidResponse = errors.New("invalid response from authority")
)

// ErrorResponse is the error body returned by the authority.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RejectionError means the authority understood the request and declined it (4xx).
// Message is meant to be shown to the user.
type RejectionError struct {
	Status  int
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rejected (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Message)
}

// IsRejection reports whether err carries an authority rejection.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}
