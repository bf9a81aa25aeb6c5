package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/ports/mocks"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/query"
	"snapgram-sync/internal/domain/user"
	"snapgram-sync/internal/infrastructure/cache"
	"snapgram-sync/tests/fixtures"
	apperrors "snapgram-sync/pkg/errors"
)

func newTestService(backend ports.Backend) (*Service, *cache.Entities) {
	entities := cache.NewEntities(0, zap.NewNop())
	svc := NewService(newTestCache(), backend, entities, ServiceConfig{}, zap.NewNop())
	return svc, entities
}

func TestService_RecentPosts(t *testing.T) {
	// Arrange
	backend := new(mocks.Backend)
	posts := []*post.Post{{ID: "p2"}, {ID: "p1"}}
	backend.On("ListPosts", mock.Anything, []ports.Predicate{
		ports.OrderDesc(ports.FieldCreatedAt),
		ports.Limit(20),
	}).Return(posts, nil).Once()
	svc, entities := newTestService(backend)

	// Act
	pending := svc.RecentPosts()
	svc.Cache().Wait()
	loaded := svc.RecentPosts()

	// Assert
	assert.True(t, pending.IsPending)
	assert.Nil(t, pending.Data)
	require.Len(t, loaded.Data, 2)
	assert.Equal(t, "p2", loaded.Data[0].ID)
	_, ok := entities.Posts.Get("p1")
	assert.True(t, ok, "fetched posts land in the entity store")
	backend.AssertExpectations(t)
}

func TestService_DisabledHooksIssueNoCalls(t *testing.T) {
	backend := new(mocks.Backend)
	svc, _ := newTestService(backend)

	assert.True(t, svc.PostByID("").Disabled)
	assert.True(t, svc.UserByID("").Disabled)
	assert.True(t, svc.LikedPosts("").Disabled)
	assert.True(t, svc.SearchPosts("").Disabled)
	svc.Cache().Wait()

	backend.AssertNotCalled(t, "GetPost", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "ListPosts", mock.Anything, mock.Anything)
	assert.Equal(t, 0, svc.Cache().Len())
}

func TestService_PostByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("GetPost", mock.Anything, "p1").Return(&post.Post{ID: "p1", Caption: "hello"}, nil)
		svc, entities := newTestService(backend)

		got, err := svc.Get(context.Background(), query.PostByID("p1"))

		require.NoError(t, err)
		assert.Equal(t, "hello", got.(*post.Post).Caption)
		cached, ok := entities.Posts.Get("p1")
		require.True(t, ok)
		assert.Equal(t, "hello", cached.Caption)
	})

	t.Run("absent result is not found", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("GetPost", mock.Anything, "missing").Return(nil, nil)
		svc, _ := newTestService(backend)

		_, err := svc.Get(context.Background(), query.PostByID("missing"))

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("backend errors become backend failures", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("GetPost", mock.Anything, "p1").Return(nil, errors.New("503"))
		svc, _ := newTestService(backend)

		svc.PostByID("p1")
		svc.Cache().Wait()
		state := svc.PostByID("p1")
		svc.Cache().Wait()

		assert.True(t, state.IsError)
		assert.True(t, apperrors.IsBackendFailure(state.Err))
	})
}

func TestService_CurrentUser(t *testing.T) {
	t.Run("resolves the user document of the session account", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("CurrentAccount", mock.Anything).Return(&user.Account{ID: "acc1"}, nil)
		backend.On("ListUsers", mock.Anything, []ports.Predicate{
			ports.Equal(ports.FieldAccountID, "acc1"),
		}).Return([]*user.User{fixtures.NewUserBuilder().WithID("u1").WithAccountID("acc1").Build()}, nil)
		svc, entities := newTestService(backend)

		got, err := svc.Get(context.Background(), query.CurrentUser())

		require.NoError(t, err)
		assert.Equal(t, "u1", got.(*user.User).ID)
		_, ok := entities.Users.Get("u1")
		assert.True(t, ok)
	})

	t.Run("no session", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("CurrentAccount", mock.Anything).Return(nil, nil)
		svc, _ := newTestService(backend)

		_, err := svc.Get(context.Background(), query.CurrentUser())

		assert.True(t, apperrors.IsNotFound(err))
		backend.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything)
	})

	t.Run("account without user document", func(t *testing.T) {
		backend := new(mocks.Backend)
		backend.On("CurrentAccount", mock.Anything).Return(&user.Account{ID: "acc1"}, nil)
		backend.On("ListUsers", mock.Anything, mock.Anything).Return([]*user.User{}, nil)
		svc, _ := newTestService(backend)

		_, err := svc.Get(context.Background(), query.CurrentUser())

		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_LoadPageCursor(t *testing.T) {
	backend := new(mocks.Backend)
	backend.On("ListPosts", mock.Anything, []ports.Predicate{
		ports.OrderDesc(ports.FieldUpdatedAt),
		ports.Limit(9),
	}).Return([]*post.Post{{ID: "p1"}}, nil).Once()
	backend.On("ListPosts", mock.Anything, []ports.Predicate{
		ports.OrderDesc(ports.FieldUpdatedAt),
		ports.Limit(9),
		ports.CursorAfter("p1"),
	}).Return([]*post.Post{}, nil).Once()
	svc, _ := newTestService(backend)

	first, err := svc.LoadPage(context.Background(), "")
	require.NoError(t, err)
	second, err := svc.LoadPage(context.Background(), "p1")
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Empty(t, second)
	_, ok := svc.Cache().Read(query.InfinitePosts("p1"))
	assert.True(t, ok)
	backend.AssertExpectations(t)
}

func TestService_FetcherFor(t *testing.T) {
	svc, _ := newTestService(new(mocks.Backend))

	valid := []query.Descriptor{
		query.RecentPosts(),
		query.CurrentUser(),
		query.InfinitePosts(""),
		query.CreatorUsers(10),
		query.SearchPosts("cat"),
		query.PostByID("p1"),
		query.UserByID("u1"),
		query.LikedPosts("u1"),
	}
	for _, d := range valid {
		f, err := svc.FetcherFor(d)
		assert.NoError(t, err, d.Key())
		assert.NotNil(t, f, d.Key())
	}

	invalid := []query.Descriptor{
		query.PostByID(""),
		query.CreatorUsers(0),
		{Kind: "bogus", Param: "x"},
	}
	for _, d := range invalid {
		_, err := svc.FetcherFor(d)
		assert.True(t, apperrors.IsInvalidArgument(err), d.Key())
	}
}
