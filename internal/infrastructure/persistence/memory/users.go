package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

func (b *Backend) CreateUser(ctx context.Context, profile user.Profile) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreateUser"); err != nil {
		return nil, err
	}
	if _, ok := b.accounts[profile.AccountID]; !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("account %s", profile.AccountID))
	}
	for _, u := range b.users {
		if u.AccountID == profile.AccountID {
			return nil, apperrors.NewInvalidArgument(fmt.Sprintf("account %s already has a profile", profile.AccountID))
		}
	}

	u := b.insertUser(profile)
	return b.hydrate(u), nil
}

// insertUser stores a new profile. Callers hold the lock.
func (b *Backend) insertUser(profile user.Profile) *user.User {
	u := &user.User{
		ID:        uuid.NewString(),
		AccountID: profile.AccountID,
		Name:      profile.Name,
		Username:  profile.Username,
		Email:     profile.Email,
		ImageURL:  profile.ImageURL,
	}
	b.users[u.ID] = u
	// creation order for listings
	b.userCreated[u.ID] = b.now()
	return u
}

func (b *Backend) GetUser(ctx context.Context, id string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("GetUser"); err != nil {
		return nil, err
	}
	u, ok := b.users[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("user %s", id))
	}
	return b.hydrate(u), nil
}

func (b *Backend) ListUsers(ctx context.Context, preds ...ports.Predicate) ([]*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("ListUsers"); err != nil {
		return nil, err
	}

	spec := ports.Fold(preds)
	if len(spec.Search) > 0 {
		return nil, apperrors.NewInvalidArgument("users cannot be searched")
	}
	switch spec.OrderDesc {
	case "", ports.FieldCreatedAt:
	default:
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("cannot order users by %q", spec.OrderDesc))
	}

	matched := make([]*user.User, 0, len(b.users))
	for _, u := range b.users {
		keep := true
		for field, value := range spec.Equal {
			switch field {
			case ports.FieldAccountID:
				keep = keep && u.AccountID == value
			default:
				return nil, apperrors.NewInvalidArgument(fmt.Sprintf("cannot filter users by %q", field))
			}
		}
		if keep {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := b.userCreated[matched[i].ID], b.userCreated[matched[j].ID]
		if ci.Equal(cj) {
			return matched[i].ID > matched[j].ID
		}
		return ci.After(cj)
	})

	page, err := window(matched, spec, func(u *user.User) string { return u.ID })
	if err != nil {
		return nil, err
	}
	out := make([]*user.User, len(page))
	for i, u := range page {
		out[i] = b.hydrate(u)
	}
	return out, nil
}

// hydrate copies u and fills in the relations derived from posts and saves.
// Callers hold the lock.
func (b *Backend) hydrate(u *user.User) *user.User {
	c := u.Clone()
	c.LikedPostIDs = []string{}
	c.Saves = []user.SaveRecord{}
	for id, p := range b.posts {
		if slices.Contains(p.Likers, u.ID) {
			c.LikedPostIDs = append(c.LikedPostIDs, id)
		}
	}
	for _, rec := range b.saves {
		if rec.UserID == u.ID {
			c.Saves = append(c.Saves, *rec)
		}
	}
	sort.Strings(c.LikedPostIDs)
	sort.Slice(c.Saves, func(i, j int) bool { return c.Saves[i].CreatedAt.Before(c.Saves[j].CreatedAt) })
	return c
}

func (b *Backend) CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreateSave"); err != nil {
		return nil, err
	}
	if _, ok := b.users[userID]; !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("user %s", userID))
	}
	if _, ok := b.posts[postID]; !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("post %s", postID))
	}

	rec := &user.SaveRecord{ID: uuid.NewString(), UserID: userID, PostID: postID, CreatedAt: b.now()}
	b.saves[rec.ID] = rec
	return rec.Clone(), nil
}

func (b *Backend) DeleteSave(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("DeleteSave"); err != nil {
		return err
	}
	if _, ok := b.saves[id]; !ok {
		return apperrors.NewNotFound(fmt.Sprintf("save %s", id))
	}
	delete(b.saves, id)
	return nil
}
