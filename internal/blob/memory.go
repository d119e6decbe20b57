package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/codepod-dev/codepod/internal/utils"
)

var ErrObjectNotFound = errors.New("object not found")

// MemoryBackend is an in-process Backend used by tests and the devserver.
// Presigned URLs carry a mem:// scheme and are resolved through Resolve.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string]*memObject
}

type memObject struct {
	content      []byte
	etag         string
	lastModified time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: make(map[string]*memObject),
	}
}

func (m *MemoryBackend) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	if !ValidKey(params.Key) {
		return nil, ErrInvalidKey
	}

	content, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	obj := &memObject{
		content:      content,
		etag:         utils.HashBytes(content),
		lastModified: time.Now().UTC(),
	}

	m.mu.Lock()
	m.objects[params.Key] = obj
	m.mu.Unlock()

	return &PutObjectResponse{
		Key:          params.Key,
		Size:         int64(len(content)),
		ETag:         obj.etag,
		LastModified: obj.lastModified,
	}, nil
}

func (m *MemoryBackend) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}

	return &GetObjectResponse{
		Body:         io.NopCloser(bytes.NewReader(obj.content)),
		Size:         int64(len(obj.content)),
		ETag:         obj.etag,
		LastModified: obj.lastModified,
	}, nil
}

func (m *MemoryBackend) PresignPutObject(ctx context.Context, key string) (string, error) {
	if !ValidKey(key) {
		return "", ErrInvalidKey
	}
	return "mem://put/" + key, nil
}

func (m *MemoryBackend) PresignGetObject(ctx context.Context, key string) (string, error) {
	if !ValidKey(key) {
		return "", ErrInvalidKey
	}
	return "mem://get/" + key, nil
}

func (m *MemoryBackend) DeleteObject(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return false, nil
	}
	delete(m.objects, key)
	return true, nil
}

// Resolve maps a mem:// capability URL back to its object key.
func Resolve(capabilityURL string) (string, bool) {
	for _, prefix := range []string{"mem://put/", "mem://get/"} {
		if strings.HasPrefix(capabilityURL, prefix) {
			return strings.TrimPrefix(capabilityURL, prefix), true
		}
	}
	return "", false
}

// Exists reports whether an object is stored under key.
func (m *MemoryBackend) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

var _ Backend = (*MemoryBackend)(nil)
