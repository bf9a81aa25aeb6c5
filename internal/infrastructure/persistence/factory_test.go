package persistence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/ports/mocks"
	"snapgram-sync/internal/config"
	"snapgram-sync/internal/infrastructure/persistence/memory"
)

func TestBackendFactory_MemorySeeded(t *testing.T) {
	cfg := config.Default(config.Development)
	cfg.Backend.SeedPosts = 12
	cfg.Backend.Seed = 7

	b, err := NewBackendFactory(nil).Create(context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &memory.Backend{}, b)

	posts, err := b.ListPosts(context.Background(), ports.Limit(100))
	require.NoError(t, err)
	assert.Len(t, posts, 12)
}

func TestBackendFactory_UnknownDriver(t *testing.T) {
	cfg := config.Default(config.Development)
	cfg.Backend.Driver = "firebase"

	_, err := NewBackendFactory(nil).Create(context.Background(), cfg)
	assert.Error(t, err)
}

func TestWithFileStorage_RoutesFiles(t *testing.T) {
	base := memory.New()
	files := &mocks.Backend{}
	files.On("CreateFile", mock.Anything, mock.Anything).Return("obj-1", nil)
	files.On("DeleteFile", mock.Anything, "obj-1").Return(nil)

	b := WithFileStorage(base, files)

	id, err := b.CreateFile(context.Background(), ports.Upload{Name: "a.jpg", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "obj-1", id)
	require.NoError(t, b.DeleteFile(context.Background(), id))
	assert.Zero(t, base.FileCount())
	files.AssertExpectations(t)
}

func TestDecoratorChain(t *testing.T) {
	cfg := config.Default(config.Development)
	inner := &mocks.Backend{}
	inner.On("GetPost", mock.Anything, "p1").Return(nil, nil)

	b := NewDecoratorChain(cfg, nil, nil).Decorate(inner)
	_, err := b.GetPost(context.Background(), "p1")

	require.NoError(t, err)
	inner.AssertNumberOfCalls(t, "GetPost", 1)
}
