package sdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blobRecorder struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBlobRecorder() *blobRecorder {
	return &blobRecorder{objects: make(map[string][]byte)}
}

func (b *blobRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.mu.Lock()
		b.objects[r.URL.Path] = body
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

func (b *blobRecorder) get(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.objects[path]
	return body, ok
}

func TestUploadAll(t *testing.T) {
	store := newBlobRecorder()
	server := httptest.NewServer(store.handler())
	defer server.Close()

	uploads := make([]*Upload, 0, 10)
	for i := range 10 {
		uploads = append(uploads, &Upload{
			FilePath:   fmt.Sprintf("/file-%d.py", i),
			Capability: fmt.Sprintf("%s/ws/file-%d", server.URL, i),
			Content:    []byte(fmt.Sprintf("content %d", i)),
		})
	}

	err := NewUploader().UploadAll(context.Background(), uploads)
	require.NoError(t, err)

	for i := range 10 {
		body, ok := store.get(fmt.Sprintf("/ws/file-%d", i))
		require.True(t, ok)
		assert.Equal(t, []byte(fmt.Sprintf("content %d", i)), body)
	}
}

func TestUploadAllFailureAbortsBatch(t *testing.T) {
	store := newBlobRecorder()
	ok := httptest.NewServer(store.handler())
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()

	err := NewUploader().UploadAll(context.Background(), []*Upload{
		{FilePath: "/a.py", Capability: ok.URL + "/ws/a", Content: []byte("a")},
		{FilePath: "/b.py", Capability: broken.URL + "/ws/b", Content: []byte("b")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/b.py")
}

func TestUploadMissingCapability(t *testing.T) {
	err := NewUploader().UploadAll(context.Background(), []*Upload{
		{FilePath: "/a.py", Content: []byte("a")},
	})
	require.ErrorIs(t, err, ErrNoCapability)
}
