package sdk

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultUploadConcurrency = 4

// Upload is one payload bound for a capability URL.
type Upload struct {
	FilePath   string
	Capability string
	Content    []byte
}

// Uploader pushes file contents directly to storage through the
// capability URLs handed out during sync.
type Uploader struct {
	http        *http.Client
	concurrency int
}

func NewUploader() *Uploader {
	return &Uploader{
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
		concurrency: DefaultUploadConcurrency,
	}
}

// UploadAll pushes every payload in parallel. The first failure cancels
// the remaining uploads and fails the batch, so a round never reaches
// confirm with partial content in place.
func (u *Uploader) UploadAll(ctx context.Context, uploads []*Upload) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for _, upload := range uploads {
		g.Go(func() error {
			return u.put(ctx, upload)
		})
	}

	return g.Wait()
}

func (u *Uploader) put(ctx context.Context, upload *Upload) error {
	if upload.Capability == "" {
		return fmt.Errorf("upload %s: %w", upload.FilePath, ErrNoCapability)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, upload.Capability, bytes.NewReader(upload.Content))
	if err != nil {
		return fmt.Errorf("upload %s: %w", upload.FilePath, err)
	}
	req.ContentLength = int64(len(upload.Content)) // presigned urls need an exact length
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", upload.FilePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload %s: unexpected status %s", upload.FilePath, resp.Status)
	}

	return nil
}
