package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go/types"
	"go.uber.org/zap"

	"snapgram-sync/internal/domain/user"
	apperrors "snapgram-sync/pkg/errors"
)

// sessionFromToken reads sub and exp from an access token. The signature is
// checked by the server on every call, so it is not verified here.
func sessionFromToken(token string) (*user.Session, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperrors.NewInvalidArgument(fmt.Sprintf("malformed access token: %v", err))
	}
	if claims.Subject == "" {
		return nil, apperrors.NewInvalidArgument("access token has no subject")
	}
	s := &user.Session{AccountID: claims.Subject, AccessToken: token}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func expired(s *user.Session, now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (c *Client) CreateAccount(ctx context.Context, in user.NewAccount) (*user.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.sb.Auth.Signup(types.SignupRequest{
		Email:    in.Email,
		Password: in.Password,
		Data:     map[string]interface{}{"name": in.Name, "username": in.Username},
	})
	if err != nil {
		return nil, classify("signup", err)
	}
	return &user.Account{ID: resp.User.ID.String(), Email: resp.User.Email, Name: in.Name}, nil
}

func (c *Client) CreateSession(ctx context.Context, email, password string) (*user.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.sb.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, classify("sign in", err)
	}

	s := &user.Session{
		AccountID:   resp.User.ID.String(),
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Unix(resp.ExpiresAt, 0),
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.Info("session created", zap.String("account_id", s.AccountID))
	out := *s
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return apperrors.NewNotFound("no active session")
	}

	if err := c.sb.Auth.WithToken(s.AccessToken).Logout(); err != nil {
		return classify("sign out", err)
	}
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return nil
}

// CurrentAccount returns nil without a network call when there is no session
// or its token has expired.
func (c *Client) CurrentAccount(ctx context.Context) (*user.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil || expired(s, time.Now()) {
		return nil, nil
	}

	resp, err := c.sb.Auth.WithToken(s.AccessToken).GetUser()
	if err != nil {
		return nil, classify("get account", err)
	}
	name, _ := resp.UserMetadata["name"].(string)
	return &user.Account{ID: resp.ID.String(), Email: resp.Email, Name: name}, nil
}
