// Package objectstore keeps post images in an S3 compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	apperrors "snapgram-sync/pkg/errors"
)

// DefaultURLExpiry is the lifetime of presigned preview URLs.
const DefaultURLExpiry = time.Hour

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Region skips the bucket location lookup when set.
	Region    string
	URLExpiry time.Duration
}

// Store implements ports.FileStorage.
type Store struct {
	cfg    Config
	client *minio.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = DefaultURLExpiry
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &Store{cfg: cfg, client: cl, logger: logger.Named("objectstore")}, nil
}

// EnsureBucket creates the bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return apperrors.NewBackendFailure("bucket lookup failed", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return apperrors.NewBackendFailure("bucket creation failed", err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.cfg.Bucket))
	return nil
}

// CreateFile stores the upload under a fresh key and returns the key.
func (s *Store) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	if upload.Body == nil {
		return "", apperrors.NewInvalidArgument("file body is required")
	}
	size := upload.Size
	if size <= 0 {
		size = -1
	}
	key := uuid.NewString() + path.Ext(upload.Name)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, upload.Body, size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return "", classify("upload file", err)
	}
	return key, nil
}

// DeleteFile removes the object. A missing object is NotFound.
func (s *Store) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, fileID, minio.StatObjectOptions{}); err != nil {
		return classify("stat file", err)
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, fileID, minio.RemoveObjectOptions{}); err != nil {
		return classify("delete file", err)
	}
	return nil
}

// PreviewURL presigns a GET for the object. Objects are served as stored;
// opts only matter to backends with an image transform service.
func (s *Store) PreviewURL(ctx context.Context, fileID string, _ ports.PreviewOptions) (string, error) {
	params := url.Values{}
	params.Set("response-cache-control", "max-age="+strconv.Itoa(int(s.cfg.URLExpiry.Seconds())))
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, fileID, s.cfg.URLExpiry, params)
	if err != nil {
		return "", classify("presign preview", err)
	}
	return u.String(), nil
}

func classify(op string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return apperrors.NewNotFound(op + ": " + err.Error())
	case "InvalidArgument", "EntityTooLarge":
		return apperrors.NewInvalidArgument(op + ": " + err.Error())
	}
	return apperrors.NewBackendFailure(op+" failed", err)
}

var _ ports.FileStorage = (*Store)(nil)
