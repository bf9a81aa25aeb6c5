// Package user holds the profile, account and bookmark entities.
package user

import (
	"slices"
	"strings"
	"time"
)

// User is the profile document linked to one backend account.
// LikedPostIDs and Saves are read-only from the caller's side; they change
// only through like/save/unsave mutations on posts.
type User struct {
	ID           string
	AccountID    string
	Name         string
	Username     string
	Email        string
	ImageURL     string
	Bio          string
	LikedPostIDs []string
	Saves        []SaveRecord
}

// EntityID returns the document id used as the entity store key.
func (u *User) EntityID() string {
	return u.ID
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.LikedPostIDs = slices.Clone(u.LikedPostIDs)
	c.Saves = slices.Clone(u.Saves)
	return &c
}

// SaveRecordFor returns the user's bookmark of postID, if any.
// Callers use it to decide between save and unsave, since unsave is keyed by
// the record id rather than the post id.
func (u *User) SaveRecordFor(postID string) (SaveRecord, bool) {
	if u == nil {
		return SaveRecord{}, false
	}
	for _, rec := range u.Saves {
		if rec.PostID == postID {
			return rec, true
		}
	}
	return SaveRecord{}, false
}

// HasSaved reports whether the user bookmarked postID.
func (u *User) HasSaved(postID string) bool {
	_, ok := u.SaveRecordFor(postID)
	return ok
}

// SaveRecord is a bookmark edge between a user and a post. It is created and
// deleted whole, never updated.
type SaveRecord struct {
	ID        string
	UserID    string
	PostID    string
	CreatedAt time.Time
}

// EntityID returns the record id.
func (r *SaveRecord) EntityID() string {
	return r.ID
}

// Clone returns a copy.
func (r *SaveRecord) Clone() *SaveRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Account is the auth identity behind a profile.
type Account struct {
	ID    string
	Email string
	Name  string
}

// Session is an authenticated session for one account.
type Session struct {
	AccountID   string
	AccessToken string
	ExpiresAt   time.Time
}

// NewAccount carries the sign-up form.
type NewAccount struct {
	Name     string `validate:"required,notblank"`
	Username string `validate:"required,notblank"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Profile is the user document written after an account is created.
type Profile struct {
	AccountID string
	Name      string
	Username  string
	Email     string
	ImageURL  string
}

// Initials returns up to two upper-case initials of name, used for
// generated avatars.
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(string([]rune(part)[0])))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}
