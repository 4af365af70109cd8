package devbackend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mvp/internal/blobstore"
)

var buckets = map[string]bool{
	blobstore.BucketProfileImages: true,
	blobstore.BucketPostImages:    true,
	blobstore.BucketEventImages:   true,
}

// storageError is the error body of the storage endpoints.
type storageError struct {
	status     int
	StatusCode string `json:"statusCode"`
	ErrorName  string `json:"error"`
	Message    string `json:"message"`
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.status, e.ErrorName, e.Message)
}

func newStorageError(status int, name, message string) *storageError {
	return &storageError{status: status, StatusCode: strconv.Itoa(status), ErrorName: name, Message: message}
}

func objectLocation(c *fiber.Ctx) (string, string, error) {
	bucket, key := c.Params("bucket"), c.Params("*")
	if !buckets[bucket] {
		return "", "", newStorageError(http.StatusNotFound, "Bucket not found", "Bucket not found")
	}
	if key == "" {
		return "", "", newStorageError(http.StatusBadRequest, "Invalid key", "Object key is required")
	}
	return bucket, key, nil
}

// UploadObject handles POST /storage/v1/object/:bucket/*. Existing objects
// are never replaced.
func (s *Server) UploadObject(c *fiber.Ctx) error {
	bucket, key, err := objectLocation(c)
	if err != nil {
		return err
	}
	body := c.Body()
	if len(body) == 0 {
		return newStorageError(http.StatusBadRequest, "Invalid request", "Empty object")
	}
	contentType := c.Get(fiber.HeaderContentType, fiber.MIMEOctetStream)

	// fiber reuses the body buffer after the handler returns
	data := append([]byte(nil), body...)
	err = s.store.Put(c.UserContext(), bucket, key, data, contentType)
	if errors.Is(err, blobstore.ErrExists) {
		return newStorageError(http.StatusConflict, "Duplicate", "The resource already exists")
	}
	if err != nil {
		return fmt.Errorf("store object: %w", err)
	}
	return c.JSON(fiber.Map{"Key": bucket + "/" + key, "Id": uuid.NewString()})
}

// DownloadObject handles GET /storage/v1/object/public/:bucket/*.
func (s *Server) DownloadObject(c *fiber.Ctx) error {
	bucket, key, err := objectLocation(c)
	if err != nil {
		return err
	}
	data, contentType, err := s.store.Get(c.UserContext(), bucket, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return newStorageError(http.StatusNotFound, "not_found", "Object not found")
	}
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}
