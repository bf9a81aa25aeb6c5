// Package post holds the post entity as last seen from the backend of record,
// plus the small pure helpers callers use to compute optimistic state.
package post

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Post is the server copy of one post document.
// Likers has set semantics; order is the backend's and is preserved.
type Post struct {
	ID        string
	CreatorID string
	Caption   string
	ImageURL  string
	ImageID   string
	Location  string
	Tags      []string
	Likers    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntityID returns the document id used as the entity store key.
func (p *Post) EntityID() string {
	return p.ID
}

// Clone returns a deep copy so cached values are never shared with callers.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Likers = slices.Clone(p.Likers)
	return &c
}

// LikedBy reports whether userID is in the likers set.
func (p *Post) LikedBy(userID string) bool {
	return p != nil && slices.Contains(p.Likers, userID)
}

// Draft is the document written by create-post once the image is stored.
type Draft struct {
	CreatorID string
	Caption   string
	ImageURL  string
	ImageID   string
	Location  string
	Tags      []string
}

// Patch is the full replacement written by update-post.
type Patch struct {
	Caption  string
	ImageURL string
	ImageID  string
	Location string
	Tags     []string
}

// ToggleLike returns the likers set the caller should display and persist after
// userID taps like: userID is removed when present, appended otherwise.
// The input slice is not modified.
func ToggleLike(likers []string, userID string) (next []string, liked bool) {
	if slices.Contains(likers, userID) {
		next = make([]string, 0, len(likers))
		for _, id := range likers {
			if id != userID {
				next = append(next, id)
			}
		}
		return next, false
	}
	next = append(slices.Clone(likers), userID)
	return next, true
}

// ParseTags splits a comma separated tag field. Spaces are stripped and
// empty entries dropped, so "art, travel ,  " yields [art travel].
func ParseTags(raw string) []string {
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return []string{}
	}
	tags := make([]string, 0)
	for _, tag := range strings.Split(raw, ",") {
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// FormatRelative renders how long ago t happened relative to now.
func FormatRelative(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%d seconds ago", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	return fmt.Sprintf("%d days ago", hours/24)
}
