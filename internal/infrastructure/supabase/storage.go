package supabase

import (
	"context"
	"path"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"

	"snapgram-sync/internal/application/ports"
	apperrors "snapgram-sync/pkg/errors"
)

// CreateFile stores the upload under a fresh object path, which doubles as
// the file id.
func (c *Client) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if upload.Body == nil {
		return "", apperrors.NewInvalidArgument("file body is required")
	}
	objectPath := uuid.NewString() + path.Ext(upload.Name)
	contentType := upload.ContentType
	upsert := false
	_, err := c.sb.Storage.UploadFile(c.cfg.Bucket, objectPath, upload.Body, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", classify("upload file", err)
	}
	return objectPath, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed, err := c.sb.Storage.RemoveFile(c.cfg.Bucket, []string{fileID})
	if err != nil {
		return classify("delete file", err)
	}
	if len(removed) == 0 {
		return apperrors.NewNotFound("file " + fileID)
	}
	return nil
}

// PreviewURL renders a transformed public URL. Storage transforms crop from
// the center, so Gravity is not forwarded.
func (c *Client) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp := c.sb.Storage.GetPublicUrl(c.cfg.Bucket, fileID, storage.UrlOptions{
		Transform: &storage.TransformOptions{
			Width:   opts.Width,
			Height:  opts.Height,
			Resize:  "cover",
			Quality: opts.Quality,
		},
	})
	if resp.SignedURL == "" {
		return "", apperrors.NewBackendFailure("storage returned an empty preview url", nil)
	}
	return resp.SignedURL, nil
}
