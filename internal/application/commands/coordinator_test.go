package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/ports/mocks"
	"snapgram-sync/internal/application/queries"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/query"
	"snapgram-sync/internal/domain/user"
	"snapgram-sync/internal/infrastructure/cache"
	apperrors "snapgram-sync/pkg/errors"
)

type harness struct {
	backend  *mocks.Backend
	cache    *queries.Cache
	entities *cache.Entities
	reads    *queries.Service
	coord    *Coordinator
}

func newHarness() *harness {
	backend := new(mocks.Backend)
	logger := zap.NewNop()
	qc := queries.NewCache(queries.CacheConfig{}, nil, logger)
	entities := cache.NewEntities(0, logger)
	return &harness{
		backend:  backend,
		cache:    qc,
		entities: entities,
		reads:    queries.NewService(qc, backend, entities, queries.ServiceConfig{}, logger),
		coord:    NewCoordinator(backend, qc, entities, CoordinatorConfig{}, nil, logger),
	}
}

func wait[T any](t *testing.T, r *Result[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Wait(ctx)
}

func upload() *ports.Upload {
	return &ports.Upload{Name: "cat.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

func TestLikePost_SuccessThenRefetchSeesCaller(t *testing.T) {
	// Arrange
	h := newHarness()
	ctx := context.Background()
	before := &post.Post{ID: "p1", Likers: []string{"u0"}}
	after := &post.Post{ID: "p1", Likers: []string{"u0", "u1"}}
	h.cache.Write(query.PostByID("p1"), before)
	h.cache.Write(query.RecentPosts(), []*post.Post{before})
	h.cache.Write(query.CurrentUser(), &user.User{ID: "u1"})
	h.backend.On("SetLikers", mock.Anything, "p1", []string{"u0", "u1"}).Return(after, nil).Once()
	h.backend.On("GetPost", mock.Anything, "p1").Return(after, nil).Once()

	likers, liked := post.ToggleLike(before.Likers, "u1")
	require.True(t, liked)

	// Act
	_, err := wait(t, h.coord.LikePost(ctx, LikePostInput{PostID: "p1", UserID: "u1", Likers: likers, Liked: liked}))
	require.NoError(t, err)

	// Assert
	for _, d := range []query.Descriptor{query.PostByID("p1"), query.RecentPosts(), query.CurrentUser()} {
		entry, ok := h.cache.Read(d)
		require.True(t, ok, d.Key())
		assert.True(t, entry.Stale, d.Key())
	}

	refetched, err := h.reads.Get(ctx, query.PostByID("p1"))
	require.NoError(t, err)
	assert.True(t, refetched.(*post.Post).LikedBy("u1"))
	h.backend.AssertExpectations(t)
}

func TestLikePost_FailureLeavesCachesUntouched(t *testing.T) {
	// Arrange
	h := newHarness()
	before := &post.Post{ID: "p1", Likers: []string{"u0"}}
	h.cache.Write(query.PostByID("p1"), before)
	h.entities.Posts.Put(before)
	h.backend.On("SetLikers", mock.Anything, "p1", mock.Anything).Return(nil, errors.New("503 unavailable")).Once()

	display := []string{"u0", "u1"}
	rollback := func(error) { display = []string{"u0"} }

	// Act
	res := h.coord.LikePost(context.Background(),
		LikePostInput{PostID: "p1", UserID: "u1", Likers: display, Liked: true},
		WithRollback(rollback))
	_, err := wait(t, res)

	// Assert
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendFailure(err))
	assert.Equal(t, PhaseRejected, res.Phase())

	entry, ok := h.cache.Read(query.PostByID("p1"))
	require.True(t, ok)
	assert.False(t, entry.Stale)
	assert.Equal(t, before, entry.Data)
	cached, _ := h.entities.Posts.Get("p1")
	assert.Equal(t, []string{"u0"}, cached.Likers)

	assert.Equal(t, []string{"u0", "u1"}, display, "optimistic state stays until the caller rolls back")
	assert.True(t, res.Rollback())
	assert.False(t, res.Rollback(), "rollback runs once")
	assert.Equal(t, []string{"u0"}, display)
}

func TestLikePost_MembershipMustMatchFlag(t *testing.T) {
	h := newHarness()

	res := h.coord.LikePost(context.Background(), LikePostInput{PostID: "p1", UserID: "u1", Likers: []string{"u0"}, Liked: true})

	assert.Equal(t, PhaseRejected, res.Phase())
	_, err := wait(t, res)
	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, h.backend.Calls)
}

func TestDeletePost_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input DeletePostInput
	}{
		{name: "missing image id", input: DeletePostInput{PostID: "p1"}},
		{name: "blank image id", input: DeletePostInput{PostID: "p1", ImageID: "  "}},
		{name: "missing post id", input: DeletePostInput{ImageID: "f1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()

			res := h.coord.DeletePost(context.Background(), tt.input)

			// Rejected synchronously, before any call.
			assert.Equal(t, PhaseRejected, res.Phase())
			_, err := wait(t, res)
			assert.True(t, apperrors.IsInvalidArgument(err))
			assert.Empty(t, h.backend.Calls)
		})
	}
}

func TestDeletePost_ImageIDMustMatchCachedPost(t *testing.T) {
	h := newHarness()
	h.entities.Posts.Put(&post.Post{ID: "p1", ImageID: "f1"})

	_, err := wait(t, h.coord.DeletePost(context.Background(), DeletePostInput{PostID: "p1", ImageID: "f2"}))

	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, h.backend.Calls)
}

func TestDeletePost_Success(t *testing.T) {
	// Arrange
	h := newHarness()
	p := &post.Post{ID: "p1", ImageID: "f1"}
	h.entities.Posts.Put(p)
	h.cache.Write(query.PostByID("p1"), p)
	h.cache.Write(query.RecentPosts(), []*post.Post{p})
	h.cache.Write(query.InfinitePosts(""), []*post.Post{p})
	h.cache.Write(query.CurrentUser(), &user.User{ID: "u1"})
	h.backend.On("DeletePost", mock.Anything, "p1").Return(nil).Once()
	h.backend.On("DeleteFile", mock.Anything, "f1").Return(nil).Once()

	// Act
	id, err := wait(t, h.coord.DeletePost(context.Background(), DeletePostInput{PostID: "p1", ImageID: "f1"}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	_, ok := h.cache.Read(query.PostByID("p1"))
	assert.False(t, ok, "post-by-id entry is evicted")
	_, ok = h.entities.Posts.Get("p1")
	assert.False(t, ok)

	recent, _ := h.cache.Read(query.RecentPosts())
	infinite, _ := h.cache.Read(query.InfinitePosts(""))
	me, _ := h.cache.Read(query.CurrentUser())
	assert.True(t, recent.Stale)
	assert.True(t, infinite.Stale)
	assert.False(t, me.Stale)
	h.backend.AssertExpectations(t)
}

func TestDeletePost_FileCleanupFailureIsNotAnError(t *testing.T) {
	h := newHarness()
	h.backend.On("DeletePost", mock.Anything, "p1").Return(nil).Once()
	h.backend.On("DeleteFile", mock.Anything, "f1").Return(errors.New("gone")).Once()

	_, err := wait(t, h.coord.DeletePost(context.Background(), DeletePostInput{PostID: "p1", ImageID: "f1"}))

	assert.NoError(t, err)
}

func TestCreatePost_DocumentWriteFailureDeletesUploadOnce(t *testing.T) {
	// Arrange
	h := newHarness()
	h.cache.Write(query.RecentPosts(), []*post.Post{})
	h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f1", nil).Once()
	h.backend.On("PreviewURL", mock.Anything, "f1", ports.DefaultPreviewOptions()).Return("https://cdn/f1", nil).Once()
	h.backend.On("CreatePost", mock.Anything, mock.Anything).Return(nil, errors.New("write rejected")).Once()
	h.backend.On("DeleteFile", mock.Anything, "f1").Return(nil).Once()

	// Act
	_, err := wait(t, h.coord.CreatePost(context.Background(), CreatePostInput{CreatorID: "u1", Caption: "hi", File: upload()}))

	// Assert
	assert.True(t, apperrors.IsBackendFailure(err))
	h.backend.AssertNumberOfCalls(t, "DeleteFile", 1)
	recent, _ := h.cache.Read(query.RecentPosts())
	assert.False(t, recent.Stale, "failed mutations invalidate nothing")
	assert.Equal(t, 0, h.entities.Posts.Len())
}

func TestCreatePost_PreviewFailureDeletesUpload(t *testing.T) {
	h := newHarness()
	h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f1", nil).Once()
	h.backend.On("PreviewURL", mock.Anything, "f1", mock.Anything).Return("", nil).Once()
	h.backend.On("DeleteFile", mock.Anything, "f1").Return(nil).Once()

	_, err := wait(t, h.coord.CreatePost(context.Background(), CreatePostInput{CreatorID: "u1", File: upload()}))

	assert.True(t, apperrors.IsBackendFailure(err))
	h.backend.AssertNumberOfCalls(t, "DeleteFile", 1)
	h.backend.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestCreatePost_CleanupFailureKeepsOriginalError(t *testing.T) {
	h := newHarness()
	writeErr := errors.New("write rejected")
	h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f1", nil).Once()
	h.backend.On("PreviewURL", mock.Anything, "f1", mock.Anything).Return("https://cdn/f1", nil).Once()
	h.backend.On("CreatePost", mock.Anything, mock.Anything).Return(nil, writeErr).Once()
	h.backend.On("DeleteFile", mock.Anything, "f1").Return(errors.New("storage down")).Once()

	_, err := wait(t, h.coord.CreatePost(context.Background(), CreatePostInput{CreatorID: "u1", File: upload()}))

	assert.ErrorIs(t, err, writeErr)
}

func TestCreatePost_Success(t *testing.T) {
	// Arrange
	h := newHarness()
	h.cache.Write(query.RecentPosts(), []*post.Post{})
	h.cache.Write(query.InfinitePosts("p0"), []*post.Post{})
	created := &post.Post{ID: "p9", CreatorID: "u1", ImageID: "f1", ImageURL: "https://cdn/f1", Tags: []string{"a", "b"}}
	h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f1", nil).Once()
	h.backend.On("PreviewURL", mock.Anything, "f1", mock.Anything).Return("https://cdn/f1", nil).Once()
	h.backend.On("CreatePost", mock.Anything, post.Draft{
		CreatorID: "u1",
		Caption:   "hi",
		ImageURL:  "https://cdn/f1",
		ImageID:   "f1",
		Location:  "Oslo",
		Tags:      []string{"a", "b"},
	}).Return(created, nil).Once()

	var succeeded *post.Post
	res := h.coord.CreatePost(context.Background(), CreatePostInput{
		CreatorID: "u1",
		Caption:   "hi",
		Location:  "Oslo",
		Tags:      post.ParseTags("a, b"),
		File:      upload(),
	}).OnSuccess(func(p *post.Post) { succeeded = p })

	// Act
	got, err := wait(t, res)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, created, succeeded)
	_, ok := h.entities.Posts.Get("p9")
	assert.True(t, ok)
	recent, _ := h.cache.Read(query.RecentPosts())
	page, _ := h.cache.Read(query.InfinitePosts("p0"))
	assert.True(t, recent.Stale)
	assert.True(t, page.Stale)
	h.backend.AssertExpectations(t)
}

func TestCreatePost_RequiresFile(t *testing.T) {
	h := newHarness()

	_, err := wait(t, h.coord.CreatePost(context.Background(), CreatePostInput{CreatorID: "u1"}))

	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, h.backend.Calls)
}

func TestUpdatePost(t *testing.T) {
	t.Run("without a file the image is carried over", func(t *testing.T) {
		h := newHarness()
		h.backend.On("UpdatePost", mock.Anything, "p1", post.Patch{
			Caption:  "new caption",
			ImageURL: "https://cdn/f1",
			ImageID:  "f1",
		}).Return(&post.Post{ID: "p1", ImageID: "f1"}, nil).Once()

		_, err := wait(t, h.coord.UpdatePost(context.Background(), UpdatePostInput{
			PostID:   "p1",
			Caption:  "new caption",
			ImageURL: "https://cdn/f1",
			ImageID:  "f1",
		}))

		require.NoError(t, err)
		h.backend.AssertNotCalled(t, "CreateFile", mock.Anything, mock.Anything)
		h.backend.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
		h.backend.AssertExpectations(t)
	})

	t.Run("a new file replaces the old one after the update lands", func(t *testing.T) {
		h := newHarness()
		h.cache.Write(query.PostByID("p1"), &post.Post{ID: "p1"})
		h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f2", nil).Once()
		h.backend.On("PreviewURL", mock.Anything, "f2", mock.Anything).Return("https://cdn/f2", nil).Once()
		h.backend.On("UpdatePost", mock.Anything, "p1", mock.MatchedBy(func(p post.Patch) bool {
			return p.ImageID == "f2" && p.ImageURL == "https://cdn/f2"
		})).Return(&post.Post{ID: "p1", ImageID: "f2"}, nil).Once()
		h.backend.On("DeleteFile", mock.Anything, "f1").Return(nil).Once()

		_, err := wait(t, h.coord.UpdatePost(context.Background(), UpdatePostInput{
			PostID:   "p1",
			ImageURL: "https://cdn/f1",
			ImageID:  "f1",
			File:     upload(),
		}))

		require.NoError(t, err)
		entry, _ := h.cache.Read(query.PostByID("p1"))
		assert.True(t, entry.Stale)
		h.backend.AssertExpectations(t)
	})

	t.Run("a failed update deletes the new upload, not the old file", func(t *testing.T) {
		h := newHarness()
		h.backend.On("CreateFile", mock.Anything, mock.Anything).Return("f2", nil).Once()
		h.backend.On("PreviewURL", mock.Anything, "f2", mock.Anything).Return("https://cdn/f2", nil).Once()
		h.backend.On("UpdatePost", mock.Anything, "p1", mock.Anything).Return(nil, errors.New("conflict")).Once()
		h.backend.On("DeleteFile", mock.Anything, "f2").Return(nil).Once()

		_, err := wait(t, h.coord.UpdatePost(context.Background(), UpdatePostInput{
			PostID:   "p1",
			ImageURL: "https://cdn/f1",
			ImageID:  "f1",
			File:     upload(),
		}))

		assert.True(t, apperrors.IsBackendFailure(err))
		h.backend.AssertNotCalled(t, "DeleteFile", mock.Anything, "f1")
		h.backend.AssertExpectations(t)
	})
}

func TestSaveThenUnsave(t *testing.T) {
	// Arrange
	h := newHarness()
	ctx := context.Background()
	record := &user.SaveRecord{ID: "s1", UserID: "u1", PostID: "p1"}
	saved := &user.User{ID: "u1", AccountID: "acc1", Saves: []user.SaveRecord{*record}}
	unsaved := &user.User{ID: "u1", AccountID: "acc1"}

	h.backend.On("CreateSave", mock.Anything, "u1", "p1").Return(record, nil).Once()
	h.backend.On("DeleteSave", mock.Anything, "s1").Return(nil).Once()
	h.backend.On("CurrentAccount", mock.Anything).Return(&user.Account{ID: "acc1"}, nil)
	h.backend.On("ListUsers", mock.Anything, mock.Anything).Return([]*user.User{saved}, nil).Once()
	h.backend.On("ListUsers", mock.Anything, mock.Anything).Return([]*user.User{unsaved}, nil).Once()

	// Act: save
	_, err := wait(t, h.coord.SavePost(ctx, SavePostInput{UserID: "u1", PostID: "p1"}))
	require.NoError(t, err)

	me, err := h.reads.Get(ctx, query.CurrentUser())
	require.NoError(t, err)
	rec, ok := me.(*user.User).SaveRecordFor("p1")
	require.True(t, ok)

	// Act: unsave by the record id
	_, err = wait(t, h.coord.UnsavePost(ctx, UnsavePostInput{SaveRecordID: rec.ID}))
	require.NoError(t, err)

	// Assert
	entry, ok := h.cache.Read(query.CurrentUser())
	require.True(t, ok)
	assert.True(t, entry.Stale, "unsave re-invalidates current-user")
	_, ok = h.entities.Saves.Get("s1")
	assert.False(t, ok)

	me, err = h.reads.Get(ctx, query.CurrentUser())
	require.NoError(t, err)
	assert.False(t, me.(*user.User).HasSaved("p1"))
	h.backend.AssertExpectations(t)
}

func TestUnsavePost_RequiresRecordID(t *testing.T) {
	h := newHarness()

	_, err := wait(t, h.coord.UnsavePost(context.Background(), UnsavePostInput{}))

	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, h.backend.Calls)
}

func TestCreateAccount_WritesProfile(t *testing.T) {
	h := newHarness()
	in := CreateAccountInput{Name: "Ada Lovelace", Username: "ada", Email: "ada@example.com", Password: "analytical"}
	h.backend.On("CreateAccount", mock.Anything, in).Return(&user.Account{ID: "acc1", Email: "ada@example.com", Name: "Ada Lovelace"}, nil).Once()
	h.backend.On("AvatarURL", "Ada Lovelace").Return("https://avatars/AL.png").Once()
	h.backend.On("CreateUser", mock.Anything, user.Profile{
		AccountID: "acc1",
		Name:      "Ada Lovelace",
		Username:  "ada",
		Email:     "ada@example.com",
		ImageURL:  "https://avatars/AL.png",
	}).Return(&user.User{ID: "u1", AccountID: "acc1"}, nil).Once()

	created, err := wait(t, h.coord.CreateAccount(context.Background(), in))

	require.NoError(t, err)
	assert.Equal(t, "u1", created.ID)
	h.backend.AssertExpectations(t)
}

func TestCreateAccount_Validation(t *testing.T) {
	h := newHarness()

	_, err := wait(t, h.coord.CreateAccount(context.Background(), CreateAccountInput{Name: "Ada", Username: "ada", Email: "not-an-email", Password: "short"}))

	assert.True(t, apperrors.IsInvalidArgument(err))
	assert.Empty(t, h.backend.Calls)
}

func TestSignIn_InvalidatesCurrentUser(t *testing.T) {
	h := newHarness()
	h.cache.Write(query.CurrentUser(), nil)
	h.backend.On("CreateSession", mock.Anything, "ada@example.com", "secret").Return(&user.Session{AccountID: "acc1"}, nil).Once()

	_, err := wait(t, h.coord.SignIn(context.Background(), SignInInput{Email: "ada@example.com", Password: "secret"}))

	require.NoError(t, err)
	entry, _ := h.cache.Read(query.CurrentUser())
	assert.True(t, entry.Stale)
}

func TestSignOut_TearsDownCaches(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness()
		h.cache.Write(query.CurrentUser(), &user.User{ID: "u1"})
		h.entities.Users.Put(&user.User{ID: "u1"})
		h.backend.On("DeleteSession", mock.Anything).Return(nil).Once()

		var settled bool
		_, err := wait(t, h.coord.SignOut(context.Background()).OnSettled(func(struct{}, error) { settled = true }))

		require.NoError(t, err)
		assert.True(t, settled)
		assert.Equal(t, 0, h.cache.Len())
		assert.Equal(t, 0, h.entities.Users.Len())
	})

	t.Run("failure keeps the session state", func(t *testing.T) {
		h := newHarness()
		h.cache.Write(query.CurrentUser(), &user.User{ID: "u1"})
		h.backend.On("DeleteSession", mock.Anything).Return(errors.New("offline")).Once()

		_, err := wait(t, h.coord.SignOut(context.Background()))

		assert.True(t, apperrors.IsBackendFailure(err))
		assert.Equal(t, 1, h.cache.Len())
	})
}

func TestCoordinator_NeverRetries(t *testing.T) {
	h := newHarness()
	h.backend.On("SetLikers", mock.Anything, "p1", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := wait(t, h.coord.LikePost(context.Background(), LikePostInput{PostID: "p1", UserID: "u1", Likers: []string{"u1"}, Liked: true}))

	require.Error(t, err)
	h.backend.AssertNumberOfCalls(t, "SetLikers", 1)
}
