package cache

import (
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"

	"go.uber.org/zap"
)

// Entities groups the stores for every entity type the sync layer caches.
// One instance is built per signed-in session and reset on sign-out.
type Entities struct {
	Posts *EntityStore[*post.Post]
	Users *EntityStore[*user.User]
	Saves *EntityStore[*user.SaveRecord]
}

// NewEntities creates empty stores, each bounded to maxItems.
func NewEntities(maxItems int, logger *zap.Logger) *Entities {
	return &Entities{
		Posts: NewEntityStore[*post.Post]("posts", maxItems, logger),
		Users: NewEntityStore[*user.User]("users", maxItems, logger),
		Saves: NewEntityStore[*user.SaveRecord]("saves", maxItems, logger),
	}
}

// Reset clears every store.
func (e *Entities) Reset() {
	e.Posts.Clear()
	e.Users.Clear()
	e.Saves.Clear()
}
