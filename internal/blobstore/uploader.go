package blobstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mvp/internal/observability"
)

const jpegContentType = "image/jpeg"

// Uploader stores JPEG images under random names.
type Uploader struct {
	store   Store
	newName func() string
}

// NewUploader creates an Uploader on top of store.
func NewUploader(store Store) *Uploader {
	return &Uploader{
		store:   store,
		newName: func() string { return uuid.NewString() + ".jpg" },
	}
}

// UploadJPEG stores data in bucket and returns its public URL.
func (u *Uploader) UploadJPEG(ctx context.Context, bucket string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("upload to %s: empty image", bucket)
	}
	name := u.newName()
	if err := u.store.Put(ctx, bucket, name, data, jpegContentType); err != nil {
		return "", fmt.Errorf("upload to %s: %w", bucket, err)
	}
	observability.BlobUploadBytes.WithLabelValues(bucket).Observe(float64(len(data)))
	return u.store.PublicURL(bucket, name), nil
}
