// Package storage keeps run transcripts in blob storage.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = errors.New("blob not found")

// BlobStore defines the contract for blob operations
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
