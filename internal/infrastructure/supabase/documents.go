package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

func (c *Client) CreatePost(ctx context.Context, draft post.Draft) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := insertPost{
		Creator:  draft.CreatorID,
		Caption:  draft.Caption,
		ImageURL: draft.ImageURL,
		ImageID:  draft.ImageID,
		Location: draft.Location,
		Tags:     nonNil(draft.Tags),
		Likes:    []string{},
	}
	var rows []postRow
	if _, err := c.from(tablePosts).Insert(row, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return nil, classify("create post", err)
	}
	return firstPost(rows, "created post")
}

func (c *Client) GetPost(ctx context.Context, id string) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []postRow
	if _, err := c.from(tablePosts).Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, classify("get post", err)
	}
	return firstPost(rows, "post "+id)
}

func (c *Client) UpdatePost(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := updatePost{
		Caption:   patch.Caption,
		ImageURL:  patch.ImageURL,
		ImageID:   patch.ImageID,
		Location:  patch.Location,
		Tags:      nonNil(patch.Tags),
		UpdatedAt: time.Now().UTC(),
	}
	var rows []postRow
	if _, err := c.from(tablePosts).Update(row, "representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return nil, classify("update post", err)
	}
	return firstPost(rows, "post "+id)
}

func (c *Client) SetLikers(ctx context.Context, id string, likers []string) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := updateLikes{Likes: nonNil(likers), UpdatedAt: time.Now().UTC()}
	var rows []postRow
	if _, err := c.from(tablePosts).Update(row, "representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return nil, classify("set likers", err)
	}
	return firstPost(rows, "post "+id)
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []idRow
	if _, err := c.from(tablePosts).Delete("representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return classify("delete post", err)
	}
	if len(rows) == 0 {
		return apperrors.NewNotFound(fmt.Sprintf("post %s", id))
	}
	return nil
}

func (c *Client) ListPosts(ctx context.Context, preds ...ports.Predicate) ([]*post.Post, error) {
	var rows []postRow
	if err := c.list(ctx, tablePosts, preds, &rows); err != nil {
		return nil, err
	}
	out := make([]*post.Post, len(rows))
	for i, r := range rows {
		out[i] = r.toPost()
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, profile user.Profile) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := insertUser{
		AccountID: profile.AccountID,
		Name:      profile.Name,
		Username:  profile.Username,
		Email:     profile.Email,
		ImageURL:  profile.ImageURL,
	}
	var rows []userRow
	if _, err := c.from(tableUsers).Insert(row, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return nil, classify("create user", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewBackendFailure("create user returned no row", nil)
	}
	return rows[0].toUser(), nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []userRow
	if _, err := c.from(tableUsers).Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, classify("get user", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound(fmt.Sprintf("user %s", id))
	}
	return c.hydrate(ctx, rows[0].toUser())
}

func (c *Client) ListUsers(ctx context.Context, preds ...ports.Predicate) ([]*user.User, error) {
	var rows []userRow
	if err := c.list(ctx, tableUsers, preds, &rows); err != nil {
		return nil, err
	}
	out := make([]*user.User, 0, len(rows))
	for _, r := range rows {
		u, err := c.hydrate(ctx, r.toUser())
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// hydrate loads the user's bookmarks and liked post ids.
func (c *Client) hydrate(ctx context.Context, u *user.User) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var saves []saveRow
	_, err := c.from(tableSaves).Select("*", "", false).Eq("user_id", u.ID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).ExecuteTo(&saves)
	if err != nil {
		return nil, classify("list saves", err)
	}
	for _, s := range saves {
		u.Saves = append(u.Saves, s.toRecord())
	}

	var liked []idRow
	_, err = c.from(tablePosts).Select("id", "", false).Filter("likes", "cs", "{"+u.ID+"}").ExecuteTo(&liked)
	if err != nil {
		return nil, classify("list liked posts", err)
	}
	for _, r := range liked {
		u.LikedPostIDs = append(u.LikedPostIDs, r.ID)
	}
	return u, nil
}

func (c *Client) CreateSave(ctx context.Context, userID, postID string) (*user.SaveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []saveRow
	_, err := c.from(tableSaves).Insert(insertSave{UserID: userID, PostID: postID}, false, "", "representation", "").ExecuteTo(&rows)
	if err != nil {
		return nil, classify("create save", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewBackendFailure("create save returned no row", nil)
	}
	rec := rows[0].toRecord()
	return &rec, nil
}

func (c *Client) DeleteSave(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var rows []idRow
	if _, err := c.from(tableSaves).Delete("representation", "").Eq("id", id).ExecuteTo(&rows); err != nil {
		return classify("delete save", err)
	}
	if len(rows) == 0 {
		return apperrors.NewNotFound(fmt.Sprintf("save %s", id))
	}
	return nil
}

func firstPost(rows []postRow, what string) (*post.Post, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewNotFound(what)
	}
	return rows[0].toPost(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
