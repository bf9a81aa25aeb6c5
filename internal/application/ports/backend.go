// Package ports declares the backend-of-record collaborator the sync layer
// depends on. Implementations live under internal/infrastructure.
package ports

import (
	"context"
	"io"

	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
)

// AccountService covers account and session calls.
type AccountService interface {
	// CreateAccount registers a new auth identity.
	CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error)

	// CreateSession signs in with email and password.
	CreateSession(ctx context.Context, email, password string) (*user.Session, error)

	// DeleteSession signs out the current session.
	DeleteSession(ctx context.Context) error

	// CurrentAccount returns the account of the active session.
	CurrentAccount(ctx context.Context) (*user.Account, error)

	// AvatarURL returns a generated initials avatar for name.
	AvatarURL(name string) string
}

// PostStore covers the posts collection.
type PostStore interface {
	CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error)
	GetPost(ctx context.Context, id string) (*post.Post, error)
	UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error)

	// SetLikers replaces the likers set of a post.
	SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error)

	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, preds ...Predicate) ([]*post.Post, error)
}

// UserStore covers the users collection. Returned users carry their save
// records and liked post ids.
type UserStore interface {
	CreateUser(ctx context.Context, profile user.Profile) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	ListUsers(ctx context.Context, preds ...Predicate) ([]*user.User, error)
}

// SaveStore covers the saves collection.
type SaveStore interface {
	CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error)
	DeleteSave(ctx context.Context, id string) error
}

// FileStorage covers image upload, removal and preview URLs.
type FileStorage interface {
	CreateFile(ctx context.Context, upload Upload) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
	PreviewURL(ctx context.Context, fileID string, opts PreviewOptions) (string, error)
}

// Backend is the full collaborator surface.
type Backend interface {
	AccountService
	PostStore
	UserStore
	SaveStore
	FileStorage
}

// Upload is a file handed to FileStorage.CreateFile.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PreviewOptions controls preview URL derivation.
type PreviewOptions struct {
	Width   int
	Height  int
	Gravity string
	Quality int
}

// DefaultPreviewOptions matches the feed's image rendering.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{Width: 2000, Height: 2000, Gravity: "top", Quality: 100}
}
