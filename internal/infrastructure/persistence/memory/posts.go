package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	apperrors "snapgram-sync/pkg/errors"
)

func (b *Backend) CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreatePost"); err != nil {
		return nil, err
	}
	if _, ok := b.users[draft.CreatorID]; !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("user %s", draft.CreatorID))
	}

	now := b.now()
	p := &post.Post{
		ID:        uuid.NewString(),
		CreatorID: draft.CreatorID,
		Caption:   draft.Caption,
		ImageURL:  draft.ImageURL,
		ImageID:   draft.ImageID,
		Location:  draft.Location,
		Tags:      slices.Clone(draft.Tags),
		Likers:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.posts[p.ID] = p
	return p.Clone(), nil
}

func (b *Backend) GetPost(ctx context.Context, id string) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("GetPost"); err != nil {
		return nil, err
	}
	p, ok := b.posts[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("post %s", id))
	}
	return p.Clone(), nil
}

func (b *Backend) UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("UpdatePost"); err != nil {
		return nil, err
	}
	p, ok := b.posts[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("post %s", id))
	}
	p.Caption = patch.Caption
	p.ImageURL = patch.ImageURL
	p.ImageID = patch.ImageID
	p.Location = patch.Location
	p.Tags = slices.Clone(patch.Tags)
	p.UpdatedAt = b.now()
	return p.Clone(), nil
}

func (b *Backend) SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("SetLikers"); err != nil {
		return nil, err
	}
	p, ok := b.posts[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("post %s", id))
	}
	next := make([]string, 0, len(likers))
	for _, uid := range likers {
		if !slices.Contains(next, uid) {
			next = append(next, uid)
		}
	}
	p.Likers = next
	p.UpdatedAt = b.now()
	return p.Clone(), nil
}

// DeletePost removes the post and every bookmark of it.
func (b *Backend) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("DeletePost"); err != nil {
		return err
	}
	if _, ok := b.posts[id]; !ok {
		return apperrors.NewNotFound(fmt.Sprintf("post %s", id))
	}
	delete(b.posts, id)
	for sid, rec := range b.saves {
		if rec.PostID == id {
			delete(b.saves, sid)
		}
	}
	return nil
}

func (b *Backend) ListPosts(ctx context.Context, preds ...ports.Predicate) ([]*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("ListPosts"); err != nil {
		return nil, err
	}

	spec := ports.Fold(preds)
	matched := make([]*post.Post, 0, len(b.posts))
	for _, p := range b.posts {
		ok, err := matchPost(p, spec)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, p)
		}
	}

	orderKey := func(p *post.Post) time.Time { return p.CreatedAt }
	switch spec.OrderDesc {
	case "", ports.FieldCreatedAt:
	case ports.FieldUpdatedAt:
		orderKey = func(p *post.Post) time.Time { return p.UpdatedAt }
	default:
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("cannot order posts by %q", spec.OrderDesc))
	}
	sort.Slice(matched, func(i, j int) bool {
		ki, kj := orderKey(matched[i]), orderKey(matched[j])
		if ki.Equal(kj) {
			return matched[i].ID > matched[j].ID
		}
		return ki.After(kj)
	})

	page, err := window(matched, spec, func(p *post.Post) string { return p.ID })
	if err != nil {
		return nil, err
	}
	out := make([]*post.Post, len(page))
	for i, p := range page {
		out[i] = p.Clone()
	}
	return out, nil
}

func matchPost(p *post.Post, spec ports.QuerySpec) (bool, error) {
	for field, value := range spec.Equal {
		switch field {
		case ports.FieldLikes:
			if !slices.Contains(p.Likers, value) {
				return false, nil
			}
		case ports.FieldCreator:
			if p.CreatorID != value {
				return false, nil
			}
		default:
			return false, apperrors.NewInvalidArgument(fmt.Sprintf("cannot filter posts by %q", field))
		}
	}
	for field, term := range spec.Search {
		if field != ports.FieldCaption {
			return false, apperrors.NewInvalidArgument(fmt.Sprintf("cannot search posts by %q", field))
		}
		if !matchesTerm(p.Caption, term) {
			return false, nil
		}
	}
	return true, nil
}

// matchesTerm is a case-insensitive word match: every word of term must occur
// in text.
func matchesTerm(text, term string) bool {
	text = strings.ToLower(text)
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// window applies the cursor and the limit to an ordered listing.
func window[T any](items []T, spec ports.QuerySpec, id func(T) string) ([]T, error) {
	if spec.CursorAfter != "" {
		idx := slices.IndexFunc(items, func(it T) bool { return id(it) == spec.CursorAfter })
		if idx < 0 {
			return nil, apperrors.NewInvalidArgument(fmt.Sprintf("cursor %s is not part of this listing", spec.CursorAfter))
		}
		items = items[idx+1:]
	}
	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
