package supabase

import (
	"slices"
	"time"

	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
)

type postRow struct {
	ID        string    `json:"id,omitempty"`
	Creator   string    `json:"creator"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"image_url"`
	ImageID   string    `json:"image_id"`
	Location  string    `json:"location"`
	Tags      []string  `json:"tags"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func (r postRow) toPost() *post.Post {
	p := &post.Post{
		ID:        r.ID,
		CreatorID: r.Creator,
		Caption:   r.Caption,
		ImageURL:  r.ImageURL,
		ImageID:   r.ImageID,
		Location:  r.Location,
		Tags:      slices.Clone(r.Tags),
		Likers:    slices.Clone(r.Likes),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Likers == nil {
		p.Likers = []string{}
	}
	return p
}

// insertPost omits server-assigned columns.
type insertPost struct {
	Creator  string   `json:"creator"`
	Caption  string   `json:"caption"`
	ImageURL string   `json:"image_url"`
	ImageID  string   `json:"image_id"`
	Location string   `json:"location"`
	Tags     []string `json:"tags"`
	Likes    []string `json:"likes"`
}

type updatePost struct {
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"image_url"`
	ImageID   string    `json:"image_id"`
	Location  string    `json:"location"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

type updateLikes struct {
	Likes     []string  `json:"likes"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userRow struct {
	ID        string    `json:"id,omitempty"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ImageURL  string    `json:"image_url"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func (r userRow) toUser() *user.User {
	return &user.User{
		ID:           r.ID,
		AccountID:    r.AccountID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		ImageURL:     r.ImageURL,
		Bio:          r.Bio,
		LikedPostIDs: []string{},
		Saves:        []user.SaveRecord{},
	}
}

type insertUser struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	ImageURL  string `json:"image_url"`
}

type saveRow struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func (r saveRow) toRecord() user.SaveRecord {
	return user.SaveRecord{ID: r.ID, UserID: r.UserID, PostID: r.PostID, CreatedAt: r.CreatedAt}
}

type insertSave struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

type idRow struct {
	ID string `json:"id"`
}
