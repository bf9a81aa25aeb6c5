package queries

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/query"
	"snapgram-sync/internal/domain/user"
	"snapgram-sync/internal/infrastructure/cache"
	apperrors "snapgram-sync/pkg/errors"
)

// ServiceConfig holds list sizes used by the read hooks.
type ServiceConfig struct {
	RecentLimit  int
	FeedPageSize int
}

// DefaultServiceConfig returns the sizes the client renders with.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{RecentLimit: 20, FeedPageSize: 9}
}

// Service exposes one read hook per descriptor kind. Every fetch goes
// through the query cache and lands fetched documents in the entity store.
type Service struct {
	cache    *Cache
	backend  ports.Backend
	entities *cache.Entities
	cfg      ServiceConfig
	logger   *zap.Logger
}

// NewService creates the read side over cache and backend.
func NewService(c *Cache, backend ports.Backend, entities *cache.Entities, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultServiceConfig()
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = def.RecentLimit
	}
	if cfg.FeedPageSize <= 0 {
		cfg.FeedPageSize = def.FeedPageSize
	}
	return &Service{
		cache:    c,
		backend:  backend,
		entities: entities,
		cfg:      cfg,
		logger:   logger.Named("query_service"),
	}
}

// Cache returns the underlying query cache.
func (s *Service) Cache() *Cache { return s.cache }

// PageSize is the number of posts requested per feed page.
func (s *Service) PageSize() int { return s.cfg.FeedPageSize }

// RecentPosts is the home feed: newest posts by creation time.
func (s *Service) RecentPosts() State[[]*post.Post] {
	return UseTyped(s.cache, query.RecentPosts(), s.fetchRecentPosts)
}

// CreatorUsers lists the newest limit users.
func (s *Service) CreatorUsers(limit int) State[[]*user.User] {
	return UseTyped(s.cache, query.CreatorUsers(limit), s.creatorsFetcher(limit))
}

// SearchPosts matches term against post captions. An empty term is disabled.
func (s *Service) SearchPosts(term string) State[[]*post.Post] {
	if term == "" {
		return disabled[[]*post.Post]()
	}
	return UseTyped(s.cache, query.SearchPosts(term), s.searchFetcher(term))
}

// PostByID reads one post. An empty id is disabled.
func (s *Service) PostByID(id string) State[*post.Post] {
	if id == "" {
		return disabled[*post.Post]()
	}
	return UseTyped(s.cache, query.PostByID(id), s.postFetcher(id))
}

// CurrentUser resolves the user document of the signed-in account.
func (s *Service) CurrentUser() State[*user.User] {
	return UseTyped(s.cache, query.CurrentUser(), s.fetchCurrentUser)
}

// UserByID reads one user. An empty id is disabled.
func (s *Service) UserByID(id string) State[*user.User] {
	if id == "" {
		return disabled[*user.User]()
	}
	return UseTyped(s.cache, query.UserByID(id), s.userFetcher(id))
}

// LikedPosts lists the posts userID has liked. An empty id is disabled.
func (s *Service) LikedPosts(userID string) State[[]*post.Post] {
	if userID == "" {
		return disabled[[]*post.Post]()
	}
	return UseTyped(s.cache, query.LikedPosts(userID), s.likedFetcher(userID))
}

// Get returns the data for d, serving a fresh cached entry when there is one
// and fetching otherwise.
func (s *Service) Get(ctx context.Context, d query.Descriptor) (any, error) {
	if entry, ok := s.cache.Read(d); ok && !entry.Stale {
		return entry.Data, nil
	}
	return s.Refetch(ctx, d)
}

// Refetch loads d from the backend regardless of what is cached.
func (s *Service) Refetch(ctx context.Context, d query.Descriptor) (any, error) {
	fetch, err := s.FetcherFor(d)
	if err != nil {
		return nil, err
	}
	return s.cache.Fetch(ctx, d, fetch)
}

// Search returns the posts whose caption matches term, serving a fresh
// cached result when there is one.
func (s *Service) Search(ctx context.Context, term string) ([]*post.Post, error) {
	if term == "" {
		return nil, apperrors.NewInvalidArgument("search term is required")
	}
	d := query.SearchPosts(term)
	if entry, ok := s.cache.Read(d); ok && !entry.Stale {
		if posts, ok := entry.Data.([]*post.Post); ok {
			return posts, nil
		}
	}
	return FetchTyped(ctx, s.cache, d, s.searchFetcher(term))
}

// LoadPage fetches one feed page through the cache. It always goes to the
// backend: a page is only loaded when the reader asks for more.
func (s *Service) LoadPage(ctx context.Context, cursor string) ([]*post.Post, error) {
	return FetchTyped(ctx, s.cache, query.InfinitePosts(cursor), s.pageFetcher(cursor))
}

// FetcherFor maps a descriptor to the backend call that fills it.
func (s *Service) FetcherFor(d query.Descriptor) (Fetcher, error) {
	switch d.Kind {
	case query.KindRecentPosts:
		return erase(s.fetchRecentPosts), nil
	case query.KindCurrentUser:
		return erase(s.fetchCurrentUser), nil
	case query.KindInfinitePosts:
		return erase(s.pageFetcher(d.Param)), nil
	case query.KindCreatorUsers:
		limit, err := strconv.Atoi(d.Param)
		if err != nil || limit <= 0 {
			return nil, apperrors.NewInvalidArgument(fmt.Sprintf("creator limit %q", d.Param))
		}
		return erase(s.creatorsFetcher(limit)), nil
	}

	if d.Param == "" {
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("%s requires a parameter", d.Kind))
	}
	switch d.Kind {
	case query.KindSearchPosts:
		return erase(s.searchFetcher(d.Param)), nil
	case query.KindPostByID:
		return erase(s.postFetcher(d.Param)), nil
	case query.KindUserByID:
		return erase(s.userFetcher(d.Param)), nil
	case query.KindLikedPosts:
		return erase(s.likedFetcher(d.Param)), nil
	}
	return nil, apperrors.NewInvalidArgument(fmt.Sprintf("unknown query kind %q", d.Kind))
}

func (s *Service) fetchRecentPosts(ctx context.Context) ([]*post.Post, error) {
	return s.listPosts(ctx, "list recent posts",
		ports.OrderDesc(ports.FieldCreatedAt),
		ports.Limit(s.cfg.RecentLimit))
}

func (s *Service) creatorsFetcher(limit int) func(context.Context) ([]*user.User, error) {
	return func(ctx context.Context) ([]*user.User, error) {
		users, err := s.backend.ListUsers(ctx,
			ports.OrderDesc(ports.FieldCreatedAt),
			ports.Limit(limit))
		if err != nil {
			return nil, apperrors.Wrap(err, "list creators")
		}
		s.entities.Users.PutAll(users)
		return users, nil
	}
}

func (s *Service) searchFetcher(term string) func(context.Context) ([]*post.Post, error) {
	return func(ctx context.Context) ([]*post.Post, error) {
		return s.listPosts(ctx, "search posts", ports.Search(ports.FieldCaption, term))
	}
}

func (s *Service) likedFetcher(userID string) func(context.Context) ([]*post.Post, error) {
	return func(ctx context.Context) ([]*post.Post, error) {
		return s.listPosts(ctx, "list liked posts",
			ports.Equal(ports.FieldLikes, userID),
			ports.OrderDesc(ports.FieldUpdatedAt))
	}
}

func (s *Service) pageFetcher(cursor string) func(context.Context) ([]*post.Post, error) {
	return func(ctx context.Context) ([]*post.Post, error) {
		preds := []ports.Predicate{
			ports.OrderDesc(ports.FieldUpdatedAt),
			ports.Limit(s.cfg.FeedPageSize),
		}
		if cursor != "" {
			preds = append(preds, ports.CursorAfter(cursor))
		}
		return s.listPosts(ctx, "list feed page", preds...)
	}
}

func (s *Service) listPosts(ctx context.Context, op string, preds ...ports.Predicate) ([]*post.Post, error) {
	posts, err := s.backend.ListPosts(ctx, preds...)
	if err != nil {
		return nil, apperrors.Wrap(err, op)
	}
	s.entities.Posts.PutAll(posts)
	return posts, nil
}

func (s *Service) postFetcher(id string) func(context.Context) (*post.Post, error) {
	return func(ctx context.Context) (*post.Post, error) {
		p, err := s.backend.GetPost(ctx, id)
		if err != nil {
			return nil, apperrors.Wrap(err, "get post")
		}
		if p == nil {
			return nil, apperrors.NewNotFound(fmt.Sprintf("post %s", id))
		}
		s.entities.Posts.Put(p)
		return p, nil
	}
}

func (s *Service) userFetcher(id string) func(context.Context) (*user.User, error) {
	return func(ctx context.Context) (*user.User, error) {
		u, err := s.backend.GetUser(ctx, id)
		if err != nil {
			return nil, apperrors.Wrap(err, "get user")
		}
		if u == nil {
			return nil, apperrors.NewNotFound(fmt.Sprintf("user %s", id))
		}
		s.entities.Users.Put(u)
		return u, nil
	}
}

func (s *Service) fetchCurrentUser(ctx context.Context) (*user.User, error) {
	account, err := s.backend.CurrentAccount(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "get current account")
	}
	if account == nil {
		return nil, apperrors.NewNotFound("no active session")
	}

	users, err := s.backend.ListUsers(ctx, ports.Equal(ports.FieldAccountID, account.ID))
	if err != nil {
		return nil, apperrors.Wrap(err, "find current user")
	}
	if len(users) == 0 || users[0] == nil {
		return nil, apperrors.NewNotFound(fmt.Sprintf("user for account %s", account.ID))
	}

	s.entities.Users.Put(users[0])
	return users[0], nil
}
