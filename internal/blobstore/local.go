package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// NewMemoryStore creates a MemoryStore whose public URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]object), baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MemoryStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := bucket + "/" + key
	if _, ok := m.objects[id]; ok {
		return fmt.Errorf("put %s: %w", id, ErrExists)
	}
	m.objects[id] = object{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, bucket, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}

func (m *MemoryStore) PublicURL(bucket, key string) string {
	return m.baseURL + "/" + bucket + "/" + key
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// DirStore keeps objects as files below a root directory. The content type
// is stored next to each object in a ".meta" file.
type DirStore struct {
	root    string
	baseURL string
}

// NewDirStore creates root if needed.
func NewDirStore(root, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DirStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *DirStore) path(bucket, key string) (string, error) {
	p := filepath.Join(d.root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(d.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (d *DirStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	p, err := d.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("put %s/%s: %w", bucket, key, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	meta, _ := json.Marshal(map[string]string{"content_type": contentType})
	return os.WriteFile(p+".meta", meta, 0o644)
}

func (d *DirStore) Get(_ context.Context, bucket, key string) ([]byte, string, error) {
	p, err := d.path(bucket, key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read object: %w", err)
	}
	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(p + ".meta"); err == nil {
		var meta map[string]string
		if json.Unmarshal(raw, &meta) == nil && meta["content_type"] != "" {
			contentType = meta["content_type"]
		}
	}
	return data, contentType, nil
}

func (d *DirStore) PublicURL(bucket, key string) string {
	return d.baseURL + "/" + bucket + "/" + key
}
