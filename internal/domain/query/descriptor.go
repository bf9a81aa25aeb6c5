// Package query defines the descriptors that identify cached result sets and
// the matchers used to invalidate them in bulk.
package query

import (
	"strconv"
)

// Kind names a family of fetchable result sets.
type Kind string

const (
	KindRecentPosts   Kind = "recent-posts"
	KindInfinitePosts Kind = "infinite-posts"
	KindCreatorUsers  Kind = "creator-users"
	KindSearchPosts   Kind = "search-posts"
	KindPostByID      Kind = "post-by-id"
	KindCurrentUser   Kind = "current-user"
	KindUserByID      Kind = "user-by-id"
	KindLikedPosts    Kind = "liked-posts"
)

// Descriptor identifies one result set. It is comparable: two descriptors are
// equal iff kind and param are equal, and it is used directly as a map key.
type Descriptor struct {
	Kind  Kind
	Param string
}

// Key renders the descriptor as a flat string, e.g. "post-by-id:p1".
func (d Descriptor) Key() string {
	if d.Param == "" {
		return string(d.Kind)
	}
	return string(d.Kind) + ":" + d.Param
}

func (d Descriptor) String() string {
	return d.Key()
}

func RecentPosts() Descriptor { return Descriptor{Kind: KindRecentPosts} }

func CurrentUser() Descriptor { return Descriptor{Kind: KindCurrentUser} }

// InfinitePosts identifies one feed page; cursor is empty for the first page.
func InfinitePosts(cursor string) Descriptor {
	return Descriptor{Kind: KindInfinitePosts, Param: cursor}
}

func CreatorUsers(limit int) Descriptor {
	return Descriptor{Kind: KindCreatorUsers, Param: strconv.Itoa(limit)}
}

func SearchPosts(term string) Descriptor {
	return Descriptor{Kind: KindSearchPosts, Param: term}
}

func PostByID(id string) Descriptor {
	return Descriptor{Kind: KindPostByID, Param: id}
}

func UserByID(id string) Descriptor {
	return Descriptor{Kind: KindUserByID, Param: id}
}

func LikedPosts(userID string) Descriptor {
	return Descriptor{Kind: KindLikedPosts, Param: userID}
}

// Matcher selects descriptors for invalidation. A family matcher matches every
// descriptor of its kind regardless of param; an exact matcher matches one.
// Matchers are plain comparable values so invalidation tables can be
// declared and compared as data.
type Matcher struct {
	Kind   Kind
	Param  string
	Family bool
}

// Exact matches exactly d.
func Exact(d Descriptor) Matcher {
	return Matcher{Kind: d.Kind, Param: d.Param}
}

// Family matches every descriptor of kind k.
func Family(k Kind) Matcher {
	return Matcher{Kind: k, Family: true}
}

// Matches reports whether d is selected.
func (m Matcher) Matches(d Descriptor) bool {
	if m.Kind != d.Kind {
		return false
	}
	return m.Family || m.Param == d.Param
}

func (m Matcher) String() string {
	if m.Family {
		return string(m.Kind) + ":*"
	}
	return Descriptor{Kind: m.Kind, Param: m.Param}.Key()
}
