package core

import "context"

// KVStore is a durable key-value backend. Values are opaque bytes.
type KVStore interface {
	// Get returns ErrKeyNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
