// Package kv defines the small key-value storage interface the repositories
// are built on: records are addressed by (bucket, key) and read or written
// independently of each other. Concurrency and atomicity guarantees are
// implemented once here instead of per operation.
package kv

import "context"

// Store is a bucketed key-value store. Get returns common.ErrorNotFound for
// absent keys; all other failures are storage faults wrapped with their
// cause.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, value []byte) error
	Delete(ctx context.Context, bucket, key string) error

	// DeletePrefix removes every key in the bucket that starts with prefix.
	DeletePrefix(ctx context.Context, bucket, prefix string) error

	// ForEachPrefix visits every key in the bucket starting with prefix.
	// Returning an error from fn stops the walk and surfaces that error.
	ForEachPrefix(ctx context.Context, bucket, prefix string, fn func(key string, value []byte) error) error

	Close() error
}
