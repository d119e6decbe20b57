package blob

import (
	"context"
	"io"
	"time"
)

const (
	// UploadExpiry bounds the lifetime of minted upload capabilities.
	UploadExpiry = 5 * time.Minute

	// DownloadExpiry bounds the lifetime of minted download capabilities.
	DownloadExpiry = 5 * time.Minute
)

type PutObjectParams struct {
	Key  string
	Size int64
	Body io.Reader
}

type PutObjectResponse struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type GetObjectResponse struct {
	Body         io.ReadCloser
	Size         int64
	ETag         string
	LastModified time.Time
}

// Backend is the blob store boundary. Upload capabilities minted by
// PresignPutObject allow clients to write object bytes directly; deletes
// are always issued server-side through DeleteObject.
type Backend interface {
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)
	GetObject(ctx context.Context, key string) (*GetObjectResponse, error)
	PresignPutObject(ctx context.Context, key string) (string, error)
	PresignGetObject(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) (bool, error)
}
