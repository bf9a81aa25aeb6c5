package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/config"
	"snapgram-sync/internal/infrastructure/objectstore"
	"snapgram-sync/internal/infrastructure/persistence/memory"
	"snapgram-sync/internal/infrastructure/supabase"
)

// Driver names accepted by backend.driver and storage.driver.
const (
	DriverMemory   = "memory"
	DriverSupabase = "supabase"
	DriverMinIO    = "minio"
)

// BackendFactory builds the undecorated backend of record from configuration.
type BackendFactory struct {
	logger *zap.Logger
}

// NewBackendFactory creates a new factory.
func NewBackendFactory(logger *zap.Logger) *BackendFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackendFactory{logger: logger}
}

// Create returns the configured backend. When storage.driver differs from the
// backend's own storage, files are routed to the configured store.
func (f *BackendFactory) Create(ctx context.Context, cfg *config.Config) (ports.Backend, error) {
	base, err := f.createBackend(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver != DriverMinIO {
		return base, nil
	}
	m := cfg.Storage.MinIO
	files, err := objectstore.New(objectstore.Config{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		UseSSL:    m.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		URLExpiry: m.URLExpiry,
	}, f.logger)
	if err != nil {
		return nil, err
	}
	if err := files.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	f.logger.Info("routing files to object store", zap.String("endpoint", m.Endpoint))
	return WithFileStorage(base, files), nil
}

func (f *BackendFactory) createBackend(cfg *config.Config) (ports.Backend, error) {
	switch cfg.Backend.Driver {
	case DriverMemory:
		b := memory.New(memory.WithLogger(f.logger), memory.WithBucket(cfg.Storage.Bucket))
		b.Seed(memory.SeedOptions{
			Users: cfg.Backend.SeedUsers,
			Posts: cfg.Backend.SeedPosts,
			Seed:  cfg.Backend.Seed,
		})
		return b, nil
	case DriverSupabase:
		return supabase.New(supabase.Config{
			URL:         cfg.Backend.URL,
			APIKey:      cfg.Backend.APIKey,
			Bucket:      cfg.Storage.Bucket,
			AccessToken: cfg.Backend.AccessToken,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported backend driver: %s", cfg.Backend.Driver)
	}
}

// splitBackend serves files from a separate store.
type splitBackend struct {
	ports.Backend
	files ports.FileStorage
}

// WithFileStorage returns base with its file operations served by files.
func WithFileStorage(base ports.Backend, files ports.FileStorage) ports.Backend {
	return &splitBackend{Backend: base, files: files}
}

func (s *splitBackend) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	return s.files.CreateFile(ctx, upload)
}

func (s *splitBackend) DeleteFile(ctx context.Context, fileID string) error {
	return s.files.DeleteFile(ctx, fileID)
}

func (s *splitBackend) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	return s.files.PreviewURL(ctx, fileID, opts)
}
