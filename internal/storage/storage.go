// Package storage is the durable persistence boundary: a flat
// key-to-blob store plus string sets used as secondary indexes.
// Feature repositories marshal their entities to JSON and never talk
// to a concrete backend directly.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent key. Repositories translate it into
// their own NotFound kinds.
var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
