package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapgram-sync/internal/application/ports/mocks"
	"snapgram-sync/internal/domain/post"
	apperrors "snapgram-sync/pkg/errors"
)

type breakerStates struct {
	mu     sync.Mutex
	states []int
}

func (r *breakerStates) RecordBreakerState(_ string, state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func testBreakerConfig() CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestCircuitBreaker_OpensAfterFailuresAndFailsFast(t *testing.T) {
	// Arrange
	inner := &mocks.Backend{}
	down := apperrors.NewBackendFailure("backend down", errors.New("503"))
	inner.On("GetPost", mock.Anything, "p1").Return(nil, down)
	states := &breakerStates{}
	b := NewCircuitBreakerBackend(inner, testBreakerConfig(), states, nil)
	ctx := context.Background()

	// Act
	for i := 0; i < 3; i++ {
		_, err := b.GetPost(ctx, "p1")
		assert.ErrorIs(t, err, down)
	}
	_, err := b.GetPost(ctx, "p1")

	// Assert
	assert.True(t, apperrors.IsBackendFailure(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	inner.AssertNumberOfCalls(t, "GetPost", 3)
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, states.states)
}

func TestCircuitBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	inner := &mocks.Backend{}
	inner.On("GetPost", mock.Anything, "gone").Return(nil, apperrors.NewNotFound("post gone"))
	inner.On("DeleteSave", mock.Anything, "").Return(apperrors.NewInvalidArgument("id required"))
	b := NewCircuitBreakerBackend(inner, testBreakerConfig(), nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.GetPost(ctx, "gone")
		assert.True(t, apperrors.IsNotFound(err))
		assert.True(t, apperrors.IsInvalidArgument(b.DeleteSave(ctx, "")))
	}

	assert.Equal(t, gobreaker.StateClosed, b.State())
	inner.AssertNumberOfCalls(t, "GetPost", 5)
}

func TestCircuitBreaker_PassesResultsThrough(t *testing.T) {
	inner := &mocks.Backend{}
	want := []*post.Post{{ID: "p1"}, {ID: "p2"}}
	inner.On("ListPosts", mock.Anything, mock.Anything).Return(want, nil)
	inner.On("AvatarURL", "Ada").Return("https://avatars/ada")
	b := NewCircuitBreakerBackend(inner, testBreakerConfig(), nil, nil)

	got, err := b.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "https://avatars/ada", b.AvatarURL("Ada"))
}

func TestCircuitBreaker_NeverRetries(t *testing.T) {
	inner := &mocks.Backend{}
	inner.On("DeleteFile", mock.Anything, "f1").Return(errors.New("timeout")).Once()
	b := NewCircuitBreakerBackend(inner, testBreakerConfig(), nil, nil)

	err := b.DeleteFile(context.Background(), "f1")

	assert.EqualError(t, err, "timeout")
	inner.AssertNumberOfCalls(t, "DeleteFile", 1)
}
