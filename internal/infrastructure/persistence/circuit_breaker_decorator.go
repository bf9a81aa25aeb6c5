package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

// BreakerRecorder publishes breaker transitions.
type BreakerRecorder interface {
	RecordBreakerState(name string, state int)
}

// CircuitBreakerConfig holds configuration for the backend circuit breaker.
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests calls have been counted.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for the backend breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreakerBackend fails fast while the backend is unhealthy. It never
// retries: a rejected call surfaces as a BackendFailure to the caller.
type CircuitBreakerBackend struct {
	inner  ports.Backend
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewCircuitBreakerBackend wraps inner with a circuit breaker.
func NewCircuitBreakerBackend(inner ports.Backend, config CircuitBreakerConfig, recorder BreakerRecorder, logger *zap.Logger) *CircuitBreakerBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("circuit_breaker")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
			if recorder != nil {
				recorder.RecordBreakerState(name, int(to))
			}
		},
		IsSuccessful: isSuccessful,
	})

	return &CircuitBreakerBackend{inner: inner, cb: cb, logger: logger}
}

// State reports the breaker state.
func (b *CircuitBreakerBackend) State() gobreaker.State {
	return b.cb.State()
}

// isSuccessful keeps caller mistakes and missing documents from tripping the
// breaker; only transport and server failures count.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return apperrors.IsNotFound(err) || apperrors.IsInvalidArgument(err)
}

func guard[T any](b *CircuitBreakerBackend, op string, fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Debug("backend call rejected", zap.String("operation", op), zap.Error(err))
			return zero, apperrors.NewBackendFailure("backend unavailable", err)
		}
		if v, ok := out.(T); ok {
			return v, err
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func guardErr(b *CircuitBreakerBackend, op string, fn func() error) error {
	_, err := guard(b, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *CircuitBreakerBackend) CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error) {
	return guard(b, "CreateAccount", func() (*user.Account, error) { return b.inner.CreateAccount(ctx, in) })
}

func (b *CircuitBreakerBackend) CreateSession(ctx context.Context, email, password string) (*user.Session, error) {
	return guard(b, "CreateSession", func() (*user.Session, error) { return b.inner.CreateSession(ctx, email, password) })
}

func (b *CircuitBreakerBackend) DeleteSession(ctx context.Context) error {
	return guardErr(b, "DeleteSession", func() error { return b.inner.DeleteSession(ctx) })
}

func (b *CircuitBreakerBackend) CurrentAccount(ctx context.Context) (*user.Account, error) {
	return guard(b, "CurrentAccount", func() (*user.Account, error) { return b.inner.CurrentAccount(ctx) })
}

// AvatarURL is computed locally and bypasses the breaker.
func (b *CircuitBreakerBackend) AvatarURL(name string) string {
	return b.inner.AvatarURL(name)
}

func (b *CircuitBreakerBackend) CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error) {
	return guard(b, "CreatePost", func() (*post.Post, error) { return b.inner.CreatePost(ctx, draft) })
}

func (b *CircuitBreakerBackend) GetPost(ctx context.Context, id string) (*post.Post, error) {
	return guard(b, "GetPost", func() (*post.Post, error) { return b.inner.GetPost(ctx, id) })
}

func (b *CircuitBreakerBackend) UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	return guard(b, "UpdatePost", func() (*post.Post, error) { return b.inner.UpdatePost(ctx, id, patch) })
}

func (b *CircuitBreakerBackend) SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error) {
	return guard(b, "SetLikers", func() (*post.Post, error) { return b.inner.SetLikers(ctx, id, likers) })
}

func (b *CircuitBreakerBackend) DeletePost(ctx context.Context, id string) error {
	return guardErr(b, "DeletePost", func() error { return b.inner.DeletePost(ctx, id) })
}

func (b *CircuitBreakerBackend) ListPosts(ctx context.Context, preds ...ports.Predicate) ([]*post.Post, error) {
	return guard(b, "ListPosts", func() ([]*post.Post, error) { return b.inner.ListPosts(ctx, preds...) })
}

func (b *CircuitBreakerBackend) CreateUser(ctx context.Context, profile user.Profile) (*user.User, error) {
	return guard(b, "CreateUser", func() (*user.User, error) { return b.inner.CreateUser(ctx, profile) })
}

func (b *CircuitBreakerBackend) GetUser(ctx context.Context, id string) (*user.User, error) {
	return guard(b, "GetUser", func() (*user.User, error) { return b.inner.GetUser(ctx, id) })
}

func (b *CircuitBreakerBackend) ListUsers(ctx context.Context, preds ...ports.Predicate) ([]*user.User, error) {
	return guard(b, "ListUsers", func() ([]*user.User, error) { return b.inner.ListUsers(ctx, preds...) })
}

func (b *CircuitBreakerBackend) CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error) {
	return guard(b, "CreateSave", func() (*user.SaveRecord, error) { return b.inner.CreateSave(ctx, userID, postID) })
}

func (b *CircuitBreakerBackend) DeleteSave(ctx context.Context, id string) error {
	return guardErr(b, "DeleteSave", func() error { return b.inner.DeleteSave(ctx, id) })
}

func (b *CircuitBreakerBackend) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	return guard(b, "CreateFile", func() (string, error) { return b.inner.CreateFile(ctx, upload) })
}

func (b *CircuitBreakerBackend) DeleteFile(ctx context.Context, fileID string) error {
	return guardErr(b, "DeleteFile", func() error { return b.inner.DeleteFile(ctx, fileID) })
}

func (b *CircuitBreakerBackend) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	return guard(b, "PreviewURL", func() (string, error) { return b.inner.PreviewURL(ctx, fileID, opts) })
}

var _ ports.Backend = (*CircuitBreakerBackend)(nil)
