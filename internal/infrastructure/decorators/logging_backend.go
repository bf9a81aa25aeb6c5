// Package decorators adds cross-cutting behavior to the backend without
// touching the adapters themselves.
package decorators

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

// CallRecorder receives one sample per backend call.
type CallRecorder interface {
	RecordBackendCall(operation string, err error, duration time.Duration)
}

// LoggingConfig controls what information is logged
type LoggingConfig struct {
	LogRequests   bool          // Log input parameters
	LogErrors     bool          // Log failed calls
	LogTiming     bool          // Promote slow calls to warnings
	LogLevel      zapcore.Level // Level for successful calls
	SlowThreshold time.Duration
}

// DefaultLoggingConfig returns sensible defaults for logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogRequests:   true,
		LogErrors:     true,
		LogTiming:     true,
		LogLevel:      zapcore.DebugLevel,
		SlowThreshold: time.Second,
	}
}

// LoggingBackend logs and times every call made to the wrapped backend.
// Passwords and file bodies are never logged.
type LoggingBackend struct {
	inner    ports.Backend
	logger   *zap.Logger
	config   LoggingConfig
	recorder CallRecorder
}

// NewLoggingBackend creates a new logging decorator. recorder may be nil.
func NewLoggingBackend(inner ports.Backend, logger *zap.Logger, config LoggingConfig, recorder CallRecorder) *LoggingBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingBackend{
		inner:    inner,
		logger:   logger.Named("backend"),
		config:   config,
		recorder: recorder,
	}
}

func observe[T any](b *LoggingBackend, op string, fields []zap.Field, fn func() (T, error)) (T, error) {
	start := time.Now()
	logFields := []zap.Field{
		zap.String("operation", op),
		zap.String("operation_id", uuid.NewString()),
	}
	if b.config.LogRequests {
		logFields = append(logFields, fields...)
	}

	out, err := fn()

	duration := time.Since(start)
	logFields = append(logFields, zap.Duration("duration", duration))
	if b.recorder != nil {
		b.recorder.RecordBackendCall(op, err, duration)
	}

	if err != nil {
		if b.config.LogErrors {
			// Missing documents and rejected input are expected outcomes.
			if apperrors.IsNotFound(err) || apperrors.IsInvalidArgument(err) {
				b.logger.Debug("backend call rejected", append(logFields, zap.Error(err))...)
			} else {
				b.logger.Error("backend call failed", append(logFields, zap.Error(err))...)
			}
		}
		return out, err
	}

	level := b.config.LogLevel
	message := "backend call completed"
	if b.config.LogTiming && b.config.SlowThreshold > 0 && duration > b.config.SlowThreshold {
		level = zapcore.WarnLevel
		message = "slow backend call completed"
	}
	if ce := b.logger.Check(level, message); ce != nil {
		ce.Write(logFields...)
	}
	return out, nil
}

func observeErr(b *LoggingBackend, op string, fields []zap.Field, fn func() error) error {
	_, err := observe(b, op, fields, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *LoggingBackend) CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error) {
	return observe(b, "CreateAccount", []zap.Field{zap.String("username", in.Username)}, func() (*user.Account, error) {
		return b.inner.CreateAccount(ctx, in)
	})
}

func (b *LoggingBackend) CreateSession(ctx context.Context, email, password string) (*user.Session, error) {
	return observe(b, "CreateSession", []zap.Field{zap.String("email", email)}, func() (*user.Session, error) {
		return b.inner.CreateSession(ctx, email, password)
	})
}

func (b *LoggingBackend) DeleteSession(ctx context.Context) error {
	return observeErr(b, "DeleteSession", nil, func() error { return b.inner.DeleteSession(ctx) })
}

func (b *LoggingBackend) CurrentAccount(ctx context.Context) (*user.Account, error) {
	return observe(b, "CurrentAccount", nil, func() (*user.Account, error) { return b.inner.CurrentAccount(ctx) })
}

func (b *LoggingBackend) AvatarURL(name string) string {
	return b.inner.AvatarURL(name)
}

func (b *LoggingBackend) CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error) {
	fields := []zap.Field{
		zap.String("creator", draft.CreatorID),
		zap.Int("caption_length", len(draft.Caption)),
		zap.Int("tag_count", len(draft.Tags)),
	}
	return observe(b, "CreatePost", fields, func() (*post.Post, error) { return b.inner.CreatePost(ctx, draft) })
}

func (b *LoggingBackend) GetPost(ctx context.Context, id string) (*post.Post, error) {
	return observe(b, "GetPost", []zap.Field{zap.String("post_id", id)}, func() (*post.Post, error) {
		return b.inner.GetPost(ctx, id)
	})
}

func (b *LoggingBackend) UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	return observe(b, "UpdatePost", []zap.Field{zap.String("post_id", id)}, func() (*post.Post, error) {
		return b.inner.UpdatePost(ctx, id, patch)
	})
}

func (b *LoggingBackend) SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error) {
	fields := []zap.Field{zap.String("post_id", id), zap.Int("likers", len(likers))}
	return observe(b, "SetLikers", fields, func() (*post.Post, error) { return b.inner.SetLikers(ctx, id, likers) })
}

func (b *LoggingBackend) DeletePost(ctx context.Context, id string) error {
	return observeErr(b, "DeletePost", []zap.Field{zap.String("post_id", id)}, func() error {
		return b.inner.DeletePost(ctx, id)
	})
}

func (b *LoggingBackend) ListPosts(ctx context.Context, preds ...ports.Predicate) ([]*post.Post, error) {
	return observe(b, "ListPosts", []zap.Field{zap.Stringers("predicates", preds)}, func() ([]*post.Post, error) {
		return b.inner.ListPosts(ctx, preds...)
	})
}

func (b *LoggingBackend) CreateUser(ctx context.Context, profile user.Profile) (*user.User, error) {
	fields := []zap.Field{zap.String("account_id", profile.AccountID), zap.String("username", profile.Username)}
	return observe(b, "CreateUser", fields, func() (*user.User, error) { return b.inner.CreateUser(ctx, profile) })
}

func (b *LoggingBackend) GetUser(ctx context.Context, id string) (*user.User, error) {
	return observe(b, "GetUser", []zap.Field{zap.String("user_id", id)}, func() (*user.User, error) {
		return b.inner.GetUser(ctx, id)
	})
}

func (b *LoggingBackend) ListUsers(ctx context.Context, preds ...ports.Predicate) ([]*user.User, error) {
	return observe(b, "ListUsers", []zap.Field{zap.Stringers("predicates", preds)}, func() ([]*user.User, error) {
		return b.inner.ListUsers(ctx, preds...)
	})
}

func (b *LoggingBackend) CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error) {
	fields := []zap.Field{zap.String("user_id", userID), zap.String("post_id", postID)}
	return observe(b, "CreateSave", fields, func() (*user.SaveRecord, error) {
		return b.inner.CreateSave(ctx, userID, postID)
	})
}

func (b *LoggingBackend) DeleteSave(ctx context.Context, id string) error {
	return observeErr(b, "DeleteSave", []zap.Field{zap.String("save_id", id)}, func() error {
		return b.inner.DeleteSave(ctx, id)
	})
}

func (b *LoggingBackend) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	fields := []zap.Field{
		zap.String("name", upload.Name),
		zap.String("content_type", upload.ContentType),
		zap.Int64("size", upload.Size),
	}
	return observe(b, "CreateFile", fields, func() (string, error) { return b.inner.CreateFile(ctx, upload) })
}

func (b *LoggingBackend) DeleteFile(ctx context.Context, fileID string) error {
	return observeErr(b, "DeleteFile", []zap.Field{zap.String("file_id", fileID)}, func() error {
		return b.inner.DeleteFile(ctx, fileID)
	})
}

func (b *LoggingBackend) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	return observe(b, "PreviewURL", []zap.Field{zap.String("file_id", fileID)}, func() (string, error) {
		return b.inner.PreviewURL(ctx, fileID, opts)
	})
}

var _ ports.Backend = (*LoggingBackend)(nil)
