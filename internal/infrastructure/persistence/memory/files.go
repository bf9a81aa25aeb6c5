package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"snapgram-sync/internal/application/ports"
	apperrors "snapgram-sync/pkg/errors"
)

// MaxFileSize bounds uploads accepted by CreateFile.
const MaxFileSize = 50 << 20

func (b *Backend) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if upload.Body == nil {
		return "", apperrors.NewInvalidArgument("file body is required")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Body, MaxFileSize+1))
	if err != nil {
		return "", apperrors.NewBackendFailure("failed to read upload", err)
	}
	if len(data) > MaxFileSize {
		return "", apperrors.NewInvalidArgument(fmt.Sprintf("file %s exceeds %d bytes", upload.Name, MaxFileSize))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreateFile"); err != nil {
		return "", err
	}
	id := uuid.NewString()
	b.files[id] = &fileRecord{name: upload.Name, contentType: upload.ContentType, data: data}
	return id, nil
}

func (b *Backend) DeleteFile(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("DeleteFile"); err != nil {
		return err
	}
	if _, ok := b.files[fileID]; !ok {
		return apperrors.NewNotFound(fmt.Sprintf("file %s", fileID))
	}
	delete(b.files, fileID)
	return nil
}

func (b *Backend) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("PreviewURL"); err != nil {
		return "", err
	}
	if _, ok := b.files[fileID]; !ok {
		return "", apperrors.NewNotFound(fmt.Sprintf("file %s", fileID))
	}
	return b.previewURL(fileID, opts), nil
}

func (b *Backend) previewURL(fileID string, opts ports.PreviewOptions) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(opts.Width))
	q.Set("height", strconv.Itoa(opts.Height))
	q.Set("gravity", opts.Gravity)
	q.Set("quality", strconv.Itoa(opts.Quality))
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/preview?%s",
		b.baseURL, url.PathEscape(b.bucket), url.PathEscape(fileID), q.Encode())
}

// HasFile reports whether fileID is stored.
func (b *Backend) HasFile(fileID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.files[fileID]
	return ok
}

// FileCount returns the number of stored files.
func (b *Backend) FileCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}
