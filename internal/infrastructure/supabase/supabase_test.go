package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapgram-sync/internal/application/ports"
	apperrors "snapgram-sync/pkg/errors"
)

func TestTranslate(t *testing.T) {
	q, err := translate([]ports.Predicate{
		ports.OrderDesc(ports.FieldUpdatedAt),
		ports.Limit(9),
		ports.Equal(ports.FieldLikes, "u1"),
		ports.Search(ports.FieldCaption, "cat"),
		ports.CursorAfter("p9"),
	})
	require.NoError(t, err)

	assert.Equal(t, "updated_at", q.orderColumn)
	assert.Equal(t, 9, q.limit)
	assert.Equal(t, "p9", q.cursorAfter)
	assert.Equal(t, []filter{
		{column: "caption", operator: "ilike", value: "*cat*"},
		{column: "likes", operator: "cs", value: "{u1}"},
	}, q.filters)
}

func TestTranslate_Defaults(t *testing.T) {
	q, err := translate(nil)
	require.NoError(t, err)
	assert.Equal(t, "created_at", q.orderColumn)
	assert.Equal(t, DefaultListLimit, q.limit)

	_, err = translate([]ports.Predicate{ports.Equal("location", "x")})
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestSessionFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acc-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	s, err := sessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", s.AccountID)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.False(t, expired(s, time.Now()))
	assert.True(t, expired(s, exp.Add(time.Second)))

	_, err = sessionFromToken("not-a-token")
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestClassify(t *testing.T) {
	assert.True(t, apperrors.IsInvalidArgument(classify("sign in", errors.New("Invalid login credentials"))))
	assert.True(t, apperrors.IsNotFound(classify("get", errors.New("response status code 404"))))
	assert.True(t, apperrors.IsBackendFailure(classify("list", errors.New("connection refused"))))
}

func TestCurrentAccount_ExpiredTokenSkipsNetwork(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acc-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, APIKey: "anon", AccessToken: token}, nil)
	require.NoError(t, err)

	acc, err := c.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Nil(t, acc)
	assert.Zero(t, hits)
}

func TestListPosts_SendsPostgRESTQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-1/2")
		_, _ = w.Write([]byte(`[
			{"id":"p2","creator":"u1","caption":"two","tags":["a"],"likes":null,"created_at":"2024-03-01T10:00:00Z","updated_at":"2024-03-01T11:00:00Z"},
			{"id":"p1","creator":"u1","caption":"one","tags":[],"likes":["u2"],"created_at":"2024-03-01T09:00:00Z","updated_at":"2024-03-01T09:00:00Z"}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, APIKey: "anon"}, nil)
	require.NoError(t, err)

	posts, err := c.ListPosts(context.Background(), ports.OrderDesc(ports.FieldUpdatedAt), ports.Limit(2))
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/rest/v1/posts", got.URL.Path)
	assert.True(t, strings.HasPrefix(got.URL.Query().Get("order"), "updated_at.desc"))
	assert.Equal(t, "2", got.URL.Query().Get("limit"))
	assert.Equal(t, "anon", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon", got.Header.Get("Authorization"))
	assert.Equal(t, "updated_at.desc.nullslast,id.desc.nullslast", got.URL.Query().Get("order"))

	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, []string{}, posts[0].Likers)
	assert.Equal(t, []string{"u2"}, posts[1].Likers)
}

func TestListPosts_CursorKeepsRowsWithEqualTimestamps(t *testing.T) {
	var listing *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-0/1")
		if r.URL.Query().Get("id") == "eq.p5" {
			_, _ = w.Write([]byte(`[{"created_at":"2024-03-01T10:00:00+00:00"}]`))
			return
		}
		listing = r
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, APIKey: "anon"}, nil)
	require.NoError(t, err)

	_, err = c.ListPosts(context.Background(), ports.OrderDesc(ports.FieldCreatedAt), ports.CursorAfter("p5"), ports.Limit(3))
	require.NoError(t, err)

	require.NotNil(t, listing)
	q := listing.URL.Query()
	assert.Equal(t,
		`(created_at.lt."2024-03-01T10:00:00+00:00",and(created_at.eq."2024-03-01T10:00:00+00:00",id.lt."p5"))`,
		q.Get("or"))
	assert.Empty(t, q.Get("created_at"))
	assert.Equal(t, "created_at.desc.nullslast,id.desc.nullslast", q.Get("order"))
}

func TestAvatarURL(t *testing.T) {
	c, err := New(Config{URL: "https://example.supabase.co", APIKey: "anon"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAvatarBase+"?background=random&name=Ada+Lovelace", c.AvatarURL("Ada Lovelace"))
}
