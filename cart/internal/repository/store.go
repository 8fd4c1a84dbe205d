package repository

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrTxFailed    = errors.New("transaction aborted by a concurrent write")
)

// UpdateFunc receives the current value of a key, with found=false when it is
// absent, and returns the value to write in its place.
type UpdateFunc func(current []byte, found bool) (next []byte, err error)

// Store is the key-value collaborator of the cart repository.
type Store interface {
	Get(c context.Context, key string) ([]byte, error)
	Set(c context.Context, key string, value []byte, ttl time.Duration) error
	Del(c context.Context, key string) error
	// Update runs fn and writes its result only if key was not modified in
	// between, otherwise it returns ErrTxFailed without writing. An error
	// returned by fn aborts the update and is returned as is.
	Update(c context.Context, key string, ttl time.Duration, fn UpdateFunc) error
	Ping(c context.Context) error
}
