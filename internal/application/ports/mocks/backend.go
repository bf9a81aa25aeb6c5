// Package mocks provides testify mock implementations of the backend ports.
package mocks

import (
	"context"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"

	"github.com/stretchr/testify/mock"
)

// Backend is a mock of ports.Backend. Expectations are set with On and
// checked with AssertExpectations / AssertNumberOfCalls.
type Backend struct {
	mock.Mock
}

var _ ports.Backend = (*Backend)(nil)

func (m *Backend) CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error) {
	args := m.Called(ctx, in)
	return accountArg(args, 0), args.Error(1)
}

func (m *Backend) CreateSession(ctx context.Context, email, password string) (*user.Session, error) {
	args := m.Called(ctx, email, password)
	var s *user.Session
	if v := args.Get(0); v != nil {
		s = v.(*user.Session)
	}
	return s, args.Error(1)
}

func (m *Backend) DeleteSession(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Backend) CurrentAccount(ctx context.Context) (*user.Account, error) {
	args := m.Called(ctx)
	return accountArg(args, 0), args.Error(1)
}

func (m *Backend) AvatarURL(name string) string {
	return m.Called(name).String(0)
}

func (m *Backend) CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error) {
	args := m.Called(ctx, draft)
	return postArg(args, 0), args.Error(1)
}

func (m *Backend) GetPost(ctx context.Context, id string) (*post.Post, error) {
	args := m.Called(ctx, id)
	return postArg(args, 0), args.Error(1)
}

func (m *Backend) UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	args := m.Called(ctx, id, patch)
	return postArg(args, 0), args.Error(1)
}

func (m *Backend) SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error) {
	args := m.Called(ctx, id, likers)
	return postArg(args, 0), args.Error(1)
}

func (m *Backend) DeletePost(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Backend) ListPosts(ctx context.Context, preds ...ports.Predicate) ([]*post.Post, error) {
	args := m.Called(ctx, preds)
	var posts []*post.Post
	if v := args.Get(0); v != nil {
		posts = v.([]*post.Post)
	}
	return posts, args.Error(1)
}

func (m *Backend) CreateUser(ctx context.Context, profile user.Profile) (*user.User, error) {
	args := m.Called(ctx, profile)
	return userArg(args, 0), args.Error(1)
}

func (m *Backend) GetUser(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *Backend) ListUsers(ctx context.Context, preds ...ports.Predicate) ([]*user.User, error) {
	args := m.Called(ctx, preds)
	var users []*user.User
	if v := args.Get(0); v != nil {
		users = v.([]*user.User)
	}
	return users, args.Error(1)
}

func (m *Backend) CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error) {
	args := m.Called(ctx, userID, postID)
	var rec *user.SaveRecord
	if v := args.Get(0); v != nil {
		rec = v.(*user.SaveRecord)
	}
	return rec, args.Error(1)
}

func (m *Backend) DeleteSave(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Backend) CreateFile(ctx context.Context, upload ports.Upload) (string, error) {
	args := m.Called(ctx, upload)
	return args.String(0), args.Error(1)
}

func (m *Backend) DeleteFile(ctx context.Context, fileID string) error {
	return m.Called(ctx, fileID).Error(0)
}

func (m *Backend) PreviewURL(ctx context.Context, fileID string, opts ports.PreviewOptions) (string, error) {
	args := m.Called(ctx, fileID, opts)
	return args.String(0), args.Error(1)
}

func postArg(args mock.Arguments, i int) *post.Post {
	if v := args.Get(i); v != nil {
		return v.(*post.Post)
	}
	return nil
}

func userArg(args mock.Arguments, i int) *user.User {
	if v := args.Get(i); v != nil {
		return v.(*user.User)
	}
	return nil
}

func accountArg(args mock.Arguments, i int) *user.Account {
	if v := args.Get(i); v != nil {
		return v.(*user.Account)
	}
	return nil
}
