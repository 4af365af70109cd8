package blobstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Put(context.Context, string, string, []byte, string) error {
	return errors.New("bucket not found")
}
func (failingStore) PublicURL(bucket, key string) string { return bucket + "/" + key }

func TestUploader_UploadJPEG(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore("https://x.supabase.co/storage/v1/object/public")
	u := NewUploader(store)
	u.newName = func() string { return "fixed.jpg" }

	url, err := u.UploadJPEG(context.Background(), BucketPostImages, []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co/storage/v1/object/public/post-images/fixed.jpg", url)

	data, contentType, err := store.Get(context.Background(), BucketPostImages, "fixed.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestUploader_RandomNames(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore("")
	u := NewUploader(store)

	a, err := u.UploadJPEG(context.Background(), BucketEventImages, []byte{1})
	require.NoError(t, err)
	b, err := u.UploadJPEG(context.Background(), BucketEventImages, []byte{1})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^/event-images/[0-9a-f-]{36}\.jpg$`, a)
	assert.Equal(t, 2, store.Len())
}

func TestUploader_Errors(t *testing.T) {
	t.Parallel()
	_, err := NewUploader(NewMemoryStore("")).UploadJPEG(context.Background(), BucketPostImages, nil)
	assert.Error(t, err)

	_, err = NewUploader(failingStore{}).UploadJPEG(context.Background(), BucketPostImages, []byte{1})
	assert.ErrorContains(t, err, "bucket not found")
}

func TestDirStore_RoundTrip(t *testing.T) {
	t.Parallel()
	store, err := NewDirStore(t.TempDir(), "http://localhost:8080/storage/v1/object/public/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, BucketProfileImages, "a.jpg", []byte("img"), "image/jpeg"))
	err = store.Put(ctx, BucketProfileImages, "a.jpg", []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrExists)

	data, contentType, err := store.Get(ctx, BucketProfileImages, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
	assert.Equal(t, "image/jpeg", contentType)

	_, _, err = store.Get(ctx, BucketProfileImages, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Put(ctx, BucketProfileImages, "../../etc/passwd", []byte("x"), "text/plain"))
	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/profile-images/a.jpg", store.PublicURL(BucketProfileImages, "a.jpg"))
}

type s3Stub struct {
	putObjectFn func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

func (s *s3Stub) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return s.putObjectFn(ctx, in)
}

func TestS3Store_Put(t *testing.T) {
	t.Parallel()
	var got *s3.PutObjectInput
	var body []byte
	stub := &s3Stub{putObjectFn: func(_ context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		got = in
		body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}}
	store := newS3Store(stub, "https://x.supabase.co/storage/v1/object/public/")

	require.NoError(t, store.Put(context.Background(), BucketPostImages, "k.jpg", []byte("jpeg"), "image/jpeg"))
	assert.Equal(t, BucketPostImages, aws.ToString(got.Bucket))
	assert.Equal(t, "k.jpg", aws.ToString(got.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(got.ContentType))
	assert.Equal(t, "jpeg", string(body))
	assert.Equal(t, "https://x.supabase.co/storage/v1/object/public/post-images/k.jpg", store.PublicURL(BucketPostImages, "k.jpg"))
}

func TestS3Store_PutError(t *testing.T) {
	t.Parallel()
	stub := &s3Stub{putObjectFn: func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("AccessDenied")
	}}
	err := newS3Store(stub, "https://cdn").Put(context.Background(), "b", "k", []byte("x"), "image/jpeg")
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestNewS3Store_RequiresConfig(t *testing.T) {
	t.Parallel()
	_, err := NewS3Store(context.Background(), S3Config{Endpoint: "https://x"})
	assert.Error(t, err)
}
