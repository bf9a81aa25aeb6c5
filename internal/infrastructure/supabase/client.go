// Package supabase adapts a Supabase project (auth, PostgREST tables and
// storage) to the backend port.
//
// Tables:
//
//	posts(id, creator, caption, image_url, image_id, location, tags[], likes[], created_at, updated_at)
//	users(id, account_id, name, username, email, image_url, bio, created_at)
//	saves(id, user_id, post_id, created_at)
package supabase

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/user"
)

const (
	tablePosts = "posts"
	tableUsers = "users"
	tableSaves = "saves"

	// DefaultAvatarBase renders initials avatars.
	DefaultAvatarBase = "https://ui-avatars.com/api/"
)

// Config holds project settings.
type Config struct {
	URL    string
	APIKey string
	Bucket string
	// AccessToken resumes an existing session.
	AccessToken string
	AvatarBase  string
}

// Client implements ports.Backend against Supabase.
type Client struct {
	sb     *supa.Client
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	session *user.Session
}

// New connects to the project. No request is made until the first call.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}
	if cfg.AvatarBase == "" {
		cfg.AvatarBase = DefaultAvatarBase
	}

	sb, err := supa.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	c := &Client{sb: sb, cfg: cfg, logger: logger.Named("supabase")}
	if cfg.AccessToken != "" {
		s, err := sessionFromToken(cfg.AccessToken)
		if err != nil {
			return nil, err
		}
		c.session = s
	}
	return c, nil
}

// token returns the bearer for data calls: the session token when signed in,
// the project key otherwise.
func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil {
		return c.session.AccessToken
	}
	return c.cfg.APIKey
}

// rest returns a PostgREST client acting as the current session.
func (c *Client) rest() *postgrest.Client {
	return postgrest.NewClient(c.cfg.URL+"/rest/v1", "public", nil).
		SetApiKey(c.cfg.APIKey).
		SetAuthToken(c.token())
}

func (c *Client) from(table string) *postgrest.QueryBuilder {
	return c.rest().From(table)
}

func (c *Client) AvatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "random")
	return c.cfg.AvatarBase + "?" + q.Encode()
}

var _ ports.Backend = (*Client)(nil)
