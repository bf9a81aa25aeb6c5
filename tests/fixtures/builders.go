// Package fixtures builds domain values for tests. Every builder starts from
// plausible fake data and lets the test override only what it asserts on.
package fixtures

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
)

var faker = gofakeit.New(42)

// PostBuilder helps create test posts with default values
type PostBuilder struct {
	p post.Post
}

func NewPostBuilder() *PostBuilder {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &PostBuilder{p: post.Post{
		ID:        uuid.NewString(),
		CreatorID: uuid.NewString(),
		Caption:   faker.Sentence(6),
		ImageURL:  faker.URL(),
		ImageID:   uuid.NewString(),
		Location:  faker.City(),
		Tags:      []string{faker.Hobby()},
		CreatedAt: created,
		UpdatedAt: created,
	}}
}

func (b *PostBuilder) WithID(id string) *PostBuilder {
	b.p.ID = id
	return b
}

func (b *PostBuilder) WithCreator(creatorID string) *PostBuilder {
	b.p.CreatorID = creatorID
	return b
}

func (b *PostBuilder) WithCaption(caption string) *PostBuilder {
	b.p.Caption = caption
	return b
}

func (b *PostBuilder) WithTags(tags ...string) *PostBuilder {
	b.p.Tags = tags
	return b
}

func (b *PostBuilder) WithLikers(likers ...string) *PostBuilder {
	b.p.Likers = likers
	return b
}

func (b *PostBuilder) WithImage(id, url string) *PostBuilder {
	b.p.ImageID, b.p.ImageURL = id, url
	return b
}

func (b *PostBuilder) CreatedAt(t time.Time) *PostBuilder {
	b.p.CreatedAt, b.p.UpdatedAt = t, t
	return b
}

func (b *PostBuilder) Build() *post.Post {
	return b.p.Clone()
}

// Posts returns n posts with ids prefix0..prefixN-1, newest first.
func Posts(prefix string, n int) []*post.Post {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*post.Post, n)
	for i := range out {
		out[i] = NewPostBuilder().
			WithID(fmt.Sprintf("%s%d", prefix, i)).
			CreatedAt(base.Add(-time.Duration(i) * time.Minute)).
			Build()
	}
	return out
}

// UserBuilder helps create test users with default values
type UserBuilder struct {
	u user.User
}

func NewUserBuilder() *UserBuilder {
	first, last := faker.FirstName(), faker.LastName()
	return &UserBuilder{u: user.User{
		ID:        uuid.NewString(),
		AccountID: uuid.NewString(),
		Name:      first + " " + last,
		Username:  faker.Username(),
		Email:     faker.Email(),
		ImageURL:  faker.URL(),
		Bio:       faker.Sentence(8),
	}}
}

func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.u.ID = id
	return b
}

func (b *UserBuilder) WithAccountID(accountID string) *UserBuilder {
	b.u.AccountID = accountID
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.u.Name = name
	return b
}

func (b *UserBuilder) WithLiked(postIDs ...string) *UserBuilder {
	b.u.LikedPostIDs = postIDs
	return b
}

// WithSave records a save of postID by this user.
func (b *UserBuilder) WithSave(postID string) *UserBuilder {
	b.u.Saves = append(b.u.Saves, user.SaveRecord{
		ID:        uuid.NewString(),
		UserID:    b.u.ID,
		PostID:    postID,
		CreatedAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	return b
}

func (b *UserBuilder) Build() *user.User {
	return b.u.Clone()
}
