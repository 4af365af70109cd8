package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// StorageClient uploads objects to storage buckets.
type StorageClient struct {
	client *Client
}

// Put uploads data as bucket/key. Existing objects are not overwritten.
func (s *StorageClient) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	headers := map[string]string{
		"Content-Type": contentType,
		"x-upsert":     "false",
	}
	_, err := s.client.do(ctx, "upload", bucket, http.MethodPost, s.objectURL("object", bucket, key), data, headers)
	return err
}

// PublicURL returns the public download URL of bucket/key. The URL is built
// locally; nothing is fetched.
func (s *StorageClient) PublicURL(bucket, key string) string {
	return s.objectURL("object/public", bucket, key)
}

func (s *StorageClient) objectURL(prefix, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.client.storageURL + "/" + prefix + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
