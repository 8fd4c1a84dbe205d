package errors

import (
	"errors"
)

var (
	ErrEmptyAuth          = errors.New("missing authorization")
	ErrEmptySubject       = errors.New("missing subject")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrStorageUnavailable = errors.New("cart storage unavailable")
	ErrConflict           = errors.New("cart was modified concurrently")
)
