package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/application/queries"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
	"snapgram-sync/internal/infrastructure/cache"
	apperrors "snapgram-sync/pkg/errors"
)

// Recorder receives mutation events. The observability collector implements it.
type Recorder interface {
	RecordMutation(kind string, err error, duration time.Duration)
	RecordCompensation(kind string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, error, time.Duration) {}
func (nopRecorder) RecordCompensation(string, error) {}

// CoordinatorConfig tunes the coordinator.
type CoordinatorConfig struct {
	Preview ports.PreviewOptions
	Table   InvalidationTable
}

// Coordinator runs mutations against the backend. It never retries: each
// failure settles the result as rejected and leaves the caches untouched.
type Coordinator struct {
	backend   ports.Backend
	queries   *queries.Cache
	entities  *cache.Entities
	table     InvalidationTable
	preview   ports.PreviewOptions
	validator *Validator
	tracer    trace.Tracer
	recorder  Recorder
	logger    *zap.Logger

	inflight sync.WaitGroup
}

// NewCoordinator creates a coordinator over backend and the two caches.
func NewCoordinator(
	backend ports.Backend,
	queryCache *queries.Cache,
	entities *cache.Entities,
	cfg CoordinatorConfig,
	recorder Recorder,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.Table == nil {
		cfg.Table = DefaultInvalidationTable()
	}
	if cfg.Preview == (ports.PreviewOptions{}) {
		cfg.Preview = ports.DefaultPreviewOptions()
	}
	return &Coordinator{
		backend:   backend,
		queries:   queryCache,
		entities:  entities,
		table:     cfg.Table,
		preview:   cfg.Preview,
		validator: GetValidator(),
		tracer:    otel.Tracer("snapgram-sync/commands"),
		recorder:  recorder,
		logger:    logger.Named("coordinator"),
	}
}

// Table returns the invalidation table in use.
func (c *Coordinator) Table() InvalidationTable { return c.table }

// Wait blocks until every mutation started so far has settled.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// CreatePost uploads the image, derives its preview URL and writes the post.
func (c *Coordinator) CreatePost(ctx context.Context, in CreatePostInput, opts ...Option) *Result[*post.Post] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*post.Post](c, MutationCreatePost, err, opts)
	}

	return run(c, ctx, MutationCreatePost, "", opts, func(ctx context.Context) (*post.Post, error) {
		fileID, imageURL, err := c.uploadImage(ctx, MutationCreatePost, in.File)
		if err != nil {
			return nil, err
		}

		created, err := c.backend.CreatePost(ctx, post.Draft{
			CreatorID: in.CreatorID,
			Caption:   in.Caption,
			ImageURL:  imageURL,
			ImageID:   fileID,
			Location:  in.Location,
			Tags:      in.Tags,
		})
		if err == nil && created == nil {
			err = apperrors.NewBackendFailure("create post returned no document", nil)
		}
		if err != nil {
			c.compensate(ctx, MutationCreatePost, fileID)
			return nil, apperrors.Wrap(err, "create post")
		}

		c.entities.Posts.Put(created)
		return created, nil
	}, func(p *post.Post) string { return p.ID })
}

// UpdatePost edits a post, replacing its image only when a new file is given.
// The previous image is deleted once the update has landed.
func (c *Coordinator) UpdatePost(ctx context.Context, in UpdatePostInput, opts ...Option) *Result[*post.Post] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*post.Post](c, MutationUpdatePost, err, opts)
	}

	return run(c, ctx, MutationUpdatePost, in.PostID, opts, func(ctx context.Context) (*post.Post, error) {
		imageID, imageURL := in.ImageID, in.ImageURL
		replaced := in.File != nil
		if replaced {
			var err error
			imageID, imageURL, err = c.uploadImage(ctx, MutationUpdatePost, in.File)
			if err != nil {
				return nil, err
			}
		}

		updated, err := c.backend.UpdatePost(ctx, in.PostID, post.Patch{
			Caption:  in.Caption,
			ImageURL: imageURL,
			ImageID:  imageID,
			Location: in.Location,
			Tags:     in.Tags,
		})
		if err == nil && updated == nil {
			err = apperrors.NewBackendFailure("update post returned no document", nil)
		}
		if err != nil {
			if replaced {
				c.compensate(ctx, MutationUpdatePost, imageID)
			}
			return nil, apperrors.Wrap(err, "update post")
		}

		if replaced {
			c.cleanup(ctx, MutationUpdatePost, in.ImageID)
		}
		c.entities.Posts.Put(updated)
		return updated, nil
	}, nil)
}

// DeletePost removes the post document, then its image. Both ids are
// required, and the image id must agree with the cached post when there is one.
func (c *Coordinator) DeletePost(ctx context.Context, in DeletePostInput, opts ...Option) *Result[string] {
	if err := c.validator.Validate(in); err != nil {
		return reject[string](c, MutationDeletePost, err, opts)
	}
	if cached, ok := c.entities.Posts.Get(in.PostID); ok && cached.ImageID != "" && cached.ImageID != in.ImageID {
		err := apperrors.NewInvalidArgument(fmt.Sprintf("imageId %s does not belong to post %s", in.ImageID, in.PostID))
		return reject[string](c, MutationDeletePost, err, opts)
	}

	return run(c, ctx, MutationDeletePost, in.PostID, opts, func(ctx context.Context) (string, error) {
		if err := c.backend.DeletePost(ctx, in.PostID); err != nil {
			return "", apperrors.Wrap(err, "delete post")
		}
		// The document is gone; a leftover image is only logged.
		c.cleanup(ctx, MutationDeletePost, in.ImageID)

		c.entities.Posts.Remove(in.PostID)
		return in.PostID, nil
	}, nil)
}

// LikePost replaces the likers set of a post with the caller's desired set.
func (c *Coordinator) LikePost(ctx context.Context, in LikePostInput, opts ...Option) *Result[*post.Post] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*post.Post](c, MutationLikePost, err, opts)
	}

	likers := append([]string{}, in.Likers...)
	return run(c, ctx, MutationLikePost, in.PostID, opts, func(ctx context.Context) (*post.Post, error) {
		updated, err := c.backend.SetLikers(ctx, in.PostID, likers)
		if err == nil && updated == nil {
			err = apperrors.NewBackendFailure("like post returned no document", nil)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "like post")
		}

		c.entities.Posts.Put(updated)
		return updated, nil
	}, nil)
}

// SavePost records that the user saved the post.
func (c *Coordinator) SavePost(ctx context.Context, in SavePostInput, opts ...Option) *Result[*user.SaveRecord] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*user.SaveRecord](c, MutationSavePost, err, opts)
	}

	return run(c, ctx, MutationSavePost, in.PostID, opts, func(ctx context.Context) (*user.SaveRecord, error) {
		record, err := c.backend.CreateSave(ctx, in.UserID, in.PostID)
		if err == nil && record == nil {
			err = apperrors.NewBackendFailure("save post returned no record", nil)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "save post")
		}

		c.entities.Saves.Put(record)
		return record, nil
	}, nil)
}

// UnsavePost deletes a save record by its id.
func (c *Coordinator) UnsavePost(ctx context.Context, in UnsavePostInput, opts ...Option) *Result[string] {
	if err := c.validator.Validate(in); err != nil {
		return reject[string](c, MutationUnsavePost, err, opts)
	}

	return run(c, ctx, MutationUnsavePost, "", opts, func(ctx context.Context) (string, error) {
		if err := c.backend.DeleteSave(ctx, in.SaveRecordID); err != nil {
			return "", apperrors.Wrap(err, "unsave post")
		}

		c.entities.Saves.Remove(in.SaveRecordID)
		return in.SaveRecordID, nil
	}, nil)
}

// CreateAccount registers the account, then writes its profile document with
// an initials avatar.
func (c *Coordinator) CreateAccount(ctx context.Context, in CreateAccountInput, opts ...Option) *Result[*user.User] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*user.User](c, MutationCreateAccount, err, opts)
	}

	return run(c, ctx, MutationCreateAccount, "", opts, func(ctx context.Context) (*user.User, error) {
		account, err := c.backend.CreateAccount(ctx, in)
		if err == nil && account == nil {
			err = apperrors.NewBackendFailure("create account returned no account", nil)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "create account")
		}

		created, err := c.backend.CreateUser(ctx, user.Profile{
			AccountID: account.ID,
			Name:      in.Name,
			Username:  in.Username,
			Email:     account.Email,
			ImageURL:  c.backend.AvatarURL(in.Name),
		})
		if err == nil && created == nil {
			err = apperrors.NewBackendFailure("create user returned no document", nil)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "save user profile")
		}

		c.entities.Users.Put(created)
		return created, nil
	}, nil)
}

// SignIn opens a session.
func (c *Coordinator) SignIn(ctx context.Context, in SignInInput, opts ...Option) *Result[*user.Session] {
	if err := c.validator.Validate(in); err != nil {
		return reject[*user.Session](c, MutationSignIn, err, opts)
	}

	return run(c, ctx, MutationSignIn, "", opts, func(ctx context.Context) (*user.Session, error) {
		session, err := c.backend.CreateSession(ctx, in.Email, in.Password)
		if err == nil && session == nil {
			err = apperrors.NewBackendFailure("sign in returned no session", nil)
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "sign in")
		}
		return session, nil
	}, nil)
}

// SignOut ends the session and, once it has ended, tears down both caches.
func (c *Coordinator) SignOut(ctx context.Context, opts ...Option) *Result[struct{}] {
	return run(c, ctx, MutationSignOut, "", opts, func(ctx context.Context) (struct{}, error) {
		if err := c.backend.DeleteSession(ctx); err != nil {
			return struct{}{}, apperrors.Wrap(err, "sign out")
		}
		return struct{}{}, nil
	}, nil)
}

// run executes op in the background and settles the returned result. On
// success the mutation's invalidation rule is applied before callbacks run.
// postIDOf extracts the post id from the value when it is only known then.
func run[T any](
	c *Coordinator,
	ctx context.Context,
	m Mutation,
	postID string,
	opts []Option,
	op func(ctx context.Context) (T, error),
	postIDOf func(T) string,
) *Result[T] {
	r := newResult[T](opts)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, span := c.tracer.Start(ctx, "mutation."+string(m),
			trace.WithAttributes(
				attribute.String("mutation", string(m)),
				attribute.String("post.id", postID),
			),
		)
		defer span.End()

		start := time.Now()
		value, err := op(ctx)
		c.recorder.RecordMutation(string(m), err, time.Since(start))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Warn("mutation failed",
				zap.String("mutation", string(m)),
				zap.String("post_id", postID),
				zap.Error(err))
			r.settle(value, err)
			return
		}

		id := postID
		if postIDOf != nil {
			id = postIDOf(value)
		}
		c.apply(m, id)
		c.logger.Debug("mutation succeeded",
			zap.String("mutation", string(m)),
			zap.String("post_id", id),
			zap.Duration("duration", time.Since(start)))
		r.settle(value, nil)
	}()

	return r
}

// reject settles a result synchronously for input that failed validation.
func reject[T any](c *Coordinator, m Mutation, err error, opts []Option) *Result[T] {
	c.recorder.RecordMutation(string(m), err, 0)
	c.logger.Debug("mutation rejected before any call",
		zap.String("mutation", string(m)),
		zap.Error(err))
	return rejected[T](err, opts)
}

// apply runs the invalidation rule of m.
func (c *Coordinator) apply(m Mutation, postID string) {
	rule := c.table[m]
	if rule.ResetAll {
		c.queries.Reset()
		c.entities.Reset()
		return
	}

	invalidate, evict := c.table.Matchers(m, postID)
	if len(evict) > 0 {
		c.queries.Remove(evict...)
	}
	if len(invalidate) > 0 {
		c.queries.Invalidate(invalidate...)
	}
}

// uploadImage stores the file and derives its preview URL. When the preview
// cannot be derived the upload is deleted again.
func (c *Coordinator) uploadImage(ctx context.Context, m Mutation, file *ports.Upload) (fileID, imageURL string, err error) {
	fileID, err = c.backend.CreateFile(ctx, *file)
	if err == nil && fileID == "" {
		err = apperrors.NewBackendFailure("upload returned no file id", nil)
	}
	if err != nil {
		return "", "", apperrors.Wrap(err, "upload file")
	}

	imageURL, err = c.backend.PreviewURL(ctx, fileID, c.preview)
	if err == nil && imageURL == "" {
		err = apperrors.NewBackendFailure("preview returned no url", nil)
	}
	if err != nil {
		c.compensate(ctx, m, fileID)
		return "", "", apperrors.Wrap(err, "derive preview url")
	}
	return fileID, imageURL, nil
}

// compensate deletes an upload whose mutation failed. Its own failure is
// logged and never replaces the mutation's error.
func (c *Coordinator) compensate(ctx context.Context, m Mutation, fileID string) {
	err := c.backend.DeleteFile(context.WithoutCancel(ctx), fileID)
	c.recorder.RecordCompensation(string(m), err)
	if err != nil {
		c.logger.Error("failed to delete orphaned upload",
			zap.String("mutation", string(m)),
			zap.String("file_id", fileID),
			zap.Error(err))
	}
}

// cleanup deletes a file the post no longer references after a successful
// mutation. Failure is logged only.
func (c *Coordinator) cleanup(ctx context.Context, m Mutation, fileID string) {
	if err := c.backend.DeleteFile(context.WithoutCancel(ctx), fileID); err != nil {
		c.logger.Error("failed to delete replaced file",
			zap.String("mutation", string(m)),
			zap.String("file_id", fileID),
			zap.Error(err))
	}
}
