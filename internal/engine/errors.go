package engine

import "errors"

var (
	ErrCodeRequired    = errors.New("promotion code is required")
	ErrSessionRequired = errors.New("sign in to use this feature")
	ErrAddressRequired = errors.New("shipping address is required")
)
