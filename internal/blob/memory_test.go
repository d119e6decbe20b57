package blob

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putBytes(t *testing.T, b *MemoryBackend, key string, content []byte) *PutObjectResponse {
	t.Helper()
	resp, err := b.PutObject(context.Background(), &PutObjectParams{
		Key:  key,
		Size: int64(len(content)),
		Body: bytes.NewReader(content),
	})
	require.NoError(t, err)
	return resp
}

func TestMemoryBackendPutGet(t *testing.T) {
	b := NewMemoryBackend()
	content := []byte("hello world")
	put := putBytes(t, b, "ws1/file1", content)
	assert.Equal(t, int64(len(content)), put.Size)

	got, err := b.GetObject(context.Background(), "ws1/file1")
	require.NoError(t, err)
	defer got.Body.Close()

	read, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, content, read)
	assert.Equal(t, put.ETag, got.ETag)
}

func TestMemoryBackendIdempotentUpload(t *testing.T) {
	// Re-uploading identical bytes to the same key leaves the stored object
	// byte-identical to a single upload.
	b := NewMemoryBackend()
	content := []byte("same bytes")

	first := putBytes(t, b, "ws1/file1", content)
	second := putBytes(t, b, "ws1/file1", content)
	assert.Equal(t, first.ETag, second.ETag)

	got, err := b.GetObject(context.Background(), "ws1/file1")
	require.NoError(t, err)
	defer got.Body.Close()

	read, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, content, read)
}

func TestMemoryBackendDelete(t *testing.T) {
	b := NewMemoryBackend()
	putBytes(t, b, "ws1/file1", []byte("x"))

	deleted, err := b.DeleteObject(context.Background(), "ws1/file1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, b.Exists("ws1/file1"))

	// deleting a missing object is not an error
	deleted, err = b.DeleteObject(context.Background(), "ws1/file1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryBackendPresign(t *testing.T) {
	b := NewMemoryBackend()

	putURL, err := b.PresignPutObject(context.Background(), "ws1/file1")
	require.NoError(t, err)

	key, ok := Resolve(putURL)
	require.True(t, ok)
	assert.Equal(t, "ws1/file1", key)

	_, err = b.PresignPutObject(context.Background(), "/bad")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("ws/abc"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("/rooted"))
	assert.False(t, ValidKey("a/../b"))
}
