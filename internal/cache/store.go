package cache

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrAlreadyExists = errors.New("key already exists")
)

// ResultStore holds write-once report snapshots. Put fails with
// ErrAlreadyExists when the key was written before; Get fails with
// ErrKeyNotFound for unknown keys.
type ResultStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}
