// Package storage persists small JSON documents under string keys. The
// account store keeps the account list and the selection pointer here.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("key not found")

// KV is a key-value store for serialized documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
