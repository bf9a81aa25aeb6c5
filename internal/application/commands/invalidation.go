package commands

import (
	"snapgram-sync/internal/domain/query"
)

// Mutation names an operation the coordinator runs.
type Mutation string

const (
	MutationCreatePost    Mutation = "create-post"
	MutationUpdatePost    Mutation = "update-post"
	MutationDeletePost    Mutation = "delete-post"
	MutationLikePost      Mutation = "like-post"
	MutationSavePost      Mutation = "save-post"
	MutationUnsavePost    Mutation = "unsave-post"
	MutationCreateAccount Mutation = "create-account"
	MutationSignIn        Mutation = "sign-in"
	MutationSignOut       Mutation = "sign-out"
)

// Target is one cell of an invalidation rule: either a whole kind, or the
// entry of that kind keyed by the mutated post.
type Target struct {
	Kind    query.Kind
	PerPost bool
}

func family(k query.Kind) Target { return Target{Kind: k} }

func perPost(k query.Kind) Target { return Target{Kind: k, PerPost: true} }

// Matcher resolves the target for the post a mutation touched.
func (t Target) Matcher(postID string) query.Matcher {
	if t.PerPost {
		return query.Exact(query.Descriptor{Kind: t.Kind, Param: postID})
	}
	return query.Family(t.Kind)
}

// Rule is what a successful mutation does to the query cache.
type Rule struct {
	Invalidate []Target
	Evict      []Target
	// ResetAll tears down both caches.
	ResetAll bool
}

// InvalidationTable maps each mutation to its rule.
type InvalidationTable map[Mutation]Rule

// DefaultInvalidationTable returns the rules the client runs with.
func DefaultInvalidationTable() InvalidationTable {
	feeds := []Target{family(query.KindRecentPosts), family(query.KindInfinitePosts)}
	with := func(extra ...Target) []Target {
		return append(append([]Target{}, extra...), feeds...)
	}

	return InvalidationTable{
		MutationCreatePost: {Invalidate: with()},
		MutationUpdatePost: {Invalidate: with(perPost(query.KindPostByID))},
		MutationDeletePost: {
			Invalidate: with(),
			Evict:      []Target{perPost(query.KindPostByID)},
		},
		MutationLikePost: {Invalidate: append(
			with(perPost(query.KindPostByID)),
			family(query.KindCurrentUser),
			family(query.KindLikedPosts),
		)},
		MutationSavePost:      {Invalidate: append(with(), family(query.KindCurrentUser))},
		MutationUnsavePost:    {Invalidate: append(with(), family(query.KindCurrentUser))},
		MutationSignIn:        {Invalidate: []Target{family(query.KindCurrentUser)}},
		MutationCreateAccount: {},
		MutationSignOut:       {ResetAll: true},
	}
}

// Matchers resolves the rule for m against the mutated post id.
func (t InvalidationTable) Matchers(m Mutation, postID string) (invalidate, evict []query.Matcher) {
	rule := t[m]
	for _, target := range rule.Invalidate {
		invalidate = append(invalidate, target.Matcher(postID))
	}
	for _, target := range rule.Evict {
		evict = append(evict, target.Matcher(postID))
	}
	return invalidate, evict
}
