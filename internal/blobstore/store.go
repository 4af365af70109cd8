// Package blobstore uploads images to object storage and builds their public
// URLs.
package blobstore

import (
	"context"
	"errors"
)

// Buckets used by the app.
const (
	BucketProfileImages = "profile-images"
	BucketPostImages    = "post-images"
	BucketEventImages   = "event-images"
)

var (
	// ErrNotFound is returned by readers for missing objects.
	ErrNotFound = errors.New("object not found")
	// ErrExists is returned when a key is already taken.
	ErrExists = errors.New("object already exists")
)

// ObjectStore is a Store that can also read objects back.
type ObjectStore interface {
	Store
	Reader
}

// Store writes objects and derives their public URL.
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	PublicURL(bucket, key string) string
}

// Reader reads back stored objects.
type Reader interface {
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)
}
