// Package commands runs the mutations of the sync layer against the backend
// and reconciles the caches once they settle.
package commands

import (
	"fmt"
	"slices"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/user"
)

// CreatePostInput creates a post around a newly uploaded image.
type CreatePostInput struct {
	CreatorID string        `json:"creatorId" validate:"required,notblank"`
	Caption   string        `json:"caption"`
	Location  string        `json:"location"`
	Tags      []string      `json:"tags"`
	File      *ports.Upload `json:"file" validate:"required"`
}

// UpdatePostInput edits a post. ImageURL and ImageID describe the image the
// post has now; they are carried over unless File replaces the image.
type UpdatePostInput struct {
	PostID   string        `json:"postId" validate:"required,notblank"`
	Caption  string        `json:"caption"`
	Location string        `json:"location"`
	Tags     []string      `json:"tags"`
	ImageURL string        `json:"imageUrl" validate:"required,notblank"`
	ImageID  string        `json:"imageId" validate:"required,notblank"`
	File     *ports.Upload `json:"file"`
}

// DeletePostInput removes a post and its image.
type DeletePostInput struct {
	PostID  string `json:"postId" validate:"required,notblank"`
	ImageID string `json:"imageId" validate:"required,notblank"`
}

// LikePostInput carries the full likers set the caller wants the post to
// have. The caller has already toggled its own membership; Liked says which
// way.
type LikePostInput struct {
	PostID string   `json:"postId" validate:"required,notblank"`
	UserID string   `json:"userId" validate:"required,notblank"`
	Likers []string `json:"likers"`
	Liked  bool     `json:"liked"`
}

// Validate checks that the likers set agrees with the liked flag.
func (in LikePostInput) Validate() error {
	if slices.Contains(in.Likers, in.UserID) != in.Liked {
		return fmt.Errorf("likers: membership of %s does not match liked=%t", in.UserID, in.Liked)
	}
	return nil
}

// SavePostInput creates a save record.
type SavePostInput struct {
	UserID string `json:"userId" validate:"required,notblank"`
	PostID string `json:"postId" validate:"required,notblank"`
}

// UnsavePostInput deletes a save record by its own id.
type UnsavePostInput struct {
	SaveRecordID string `json:"saveRecordId" validate:"required,notblank"`
}

// CreateAccountInput registers an account and its profile document.
type CreateAccountInput = user.NewAccount

// SignInInput opens a session.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,notblank"`
}
