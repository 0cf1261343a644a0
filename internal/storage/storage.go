// Package storage holds the blob store the product service uses for
// images. The catalog only needs store/delete; Open and Exists exist so
// the image endpoint and tests can read blobs back.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobStore is the content store for product images. Delete is
// idempotent: deleting a missing key is not an error.
type BlobStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
