// Package memory is an in-process backend of record. It backs the demo mode
// of the CLI and the scenario tests, and behaves like the hosted backend for
// every predicate the sync layer issues.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

// DefaultListLimit applies when a listing carries no limit predicate.
const DefaultListLimit = 25

// SessionTTL is the lifetime of issued access tokens.
const SessionTTL = 24 * time.Hour

type accountRecord struct {
	account      user.Account
	passwordHash string
}

type fileRecord struct {
	name        string
	contentType string
	data        []byte
}

// Backend implements ports.Backend over maps guarded by one mutex.
type Backend struct {
	mu sync.RWMutex

	baseURL    string
	bucket     string
	signingKey []byte
	clock      func() time.Time
	last       time.Time
	logger     *zap.Logger

	accounts map[string]*accountRecord
	byEmail  map[string]string
	session  *user.Session

	posts       map[string]*post.Post
	users       map[string]*user.User
	userCreated map[string]time.Time
	saves       map[string]*user.SaveRecord
	files       map[string]*fileRecord

	failures map[string][]error
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(b *Backend) { b.clock = clock }
}

// WithBaseURL sets the host used in avatar and preview URLs.
func WithBaseURL(base string) Option {
	return func(b *Backend) { b.baseURL = strings.TrimRight(base, "/") }
}

// WithBucket sets the bucket name used in preview URLs.
func WithBucket(bucket string) Option {
	return func(b *Backend) { b.bucket = bucket }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// New returns an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		baseURL:     "http://localhost:8000",
		bucket:      "media",
		signingKey:  []byte(uuid.NewString()),
		clock:       time.Now,
		logger:      zap.NewNop(),
		accounts:    map[string]*accountRecord{},
		byEmail:     map[string]string{},
		posts:       map[string]*post.Post{},
		users:       map[string]*user.User{},
		userCreated: map[string]time.Time{},
		saves:       map[string]*user.SaveRecord{},
		files:       map[string]*fileRecord{},
		failures:    map[string][]error{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("memory_backend")
	return b
}

// FailNext makes the next call to operation (a method name such as
// "CreatePost") return err instead of running. Calls queue in order.
func (b *Backend) FailNext(operation string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[operation] = append(b.failures[operation], err)
}

// injected pops a queued failure. Callers hold the lock.
func (b *Backend) injected(operation string) error {
	queue := b.failures[operation]
	if len(queue) == 0 {
		return nil
	}
	b.failures[operation] = queue[1:]
	return queue[0]
}

// now returns a strictly increasing timestamp so ordering by time is total.
// Callers hold the lock.
func (b *Backend) now() time.Time {
	t := b.clock().UTC()
	if !t.After(b.last) {
		t = b.last.Add(time.Millisecond)
	}
	b.last = t
	return t
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (b *Backend) CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreateAccount"); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, taken := b.byEmail[email]; taken {
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("an account with email %s already exists", email))
	}
	rec := &accountRecord{
		account:      user.Account{ID: uuid.NewString(), Email: email, Name: in.Name},
		passwordHash: hashPassword(in.Password),
	}
	b.accounts[rec.account.ID] = rec
	b.byEmail[email] = rec.account.ID

	acc := rec.account
	return &acc, nil
}

func (b *Backend) CreateSession(ctx context.Context, email, password string) (*user.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CreateSession"); err != nil {
		return nil, err
	}

	id, ok := b.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok || b.accounts[id].passwordHash != hashPassword(password) {
		return nil, apperrors.NewInvalidArgument("invalid credentials")
	}

	now := b.now()
	expires := now.Add(SessionTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}).SignedString(b.signingKey)
	if err != nil {
		return nil, apperrors.NewBackendFailure("failed to sign session token", err)
	}

	b.session = &user.Session{AccountID: id, AccessToken: token, ExpiresAt: expires}
	s := *b.session
	return &s, nil
}

func (b *Backend) DeleteSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("DeleteSession"); err != nil {
		return err
	}
	if b.session == nil {
		return apperrors.NewNotFound("no active session")
	}
	b.session = nil
	return nil
}

// CurrentAccount returns nil without error when no session is active.
func (b *Backend) CurrentAccount(ctx context.Context) (*user.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected("CurrentAccount"); err != nil {
		return nil, err
	}
	if b.session == nil || !b.clock().Before(b.session.ExpiresAt) {
		return nil, nil
	}
	rec, ok := b.accounts[b.session.AccountID]
	if !ok {
		return nil, nil
	}
	acc := rec.account
	return &acc, nil
}

// Session returns the active session, if any.
func (b *Backend) Session() *user.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return nil
	}
	s := *b.session
	return &s
}

// VerifyToken checks an access token issued by CreateSession and returns its
// account id.
func (b *Backend) VerifyToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return b.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.clock))
	if err != nil {
		return "", apperrors.NewInvalidArgument("invalid access token")
	}
	return claims.Subject, nil
}

func (b *Backend) AvatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	return b.baseURL + "/avatars/initials?" + q.Encode()
}

var _ ports.Backend = (*Backend)(nil)
