package core

import "errors"

var (
	ErrTokenExpired         = errors.New("token has expired")
	ErrInvalidToken         = errors.New("invalid token")
	ErrConfirmationConsumed = errors.New("confirmation has already been used")
	ErrMissingIdentity      = errors.New("web user id and session id are required")
)
