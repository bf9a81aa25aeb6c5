package memory

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapgram-sync/internal/application/ports"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/user"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "snapgram-demo"

// SeedOptions sizes the demo data set.
type SeedOptions struct {
	Users int
	Posts int
	// Seed makes the data reproducible; 0 picks a random seed.
	Seed int64
}

// SeedResult lists what Seed created, newest last.
type SeedResult struct {
	Users []*user.User
	Posts []*post.Post
}

// Seed fills the backend with fake users, posts, likes and bookmarks. Post
// timestamps are spread over the preceding days so feeds have a stable order.
func (b *Backend) Seed(opts SeedOptions) SeedResult {
	faker := gofakeit.New(opts.Seed)

	b.mu.Lock()
	defer b.mu.Unlock()

	var res SeedResult
	for i := 0; i < opts.Users; i++ {
		name := faker.Name()
		email := strings.ToLower(faker.Username()) + "@example.com"
		if _, taken := b.byEmail[email]; taken {
			continue
		}
		rec := &accountRecord{
			account:      user.Account{ID: uuid.NewString(), Email: email, Name: name},
			passwordHash: hashPassword(DemoPassword),
		}
		b.accounts[rec.account.ID] = rec
		b.byEmail[email] = rec.account.ID

		u := b.insertUser(user.Profile{
			AccountID: rec.account.ID,
			Name:      name,
			Username:  strings.ToLower(faker.Username()),
			Email:     email,
			ImageURL:  b.AvatarURL(name),
		})
		u.Bio = faker.Sentence(6)
		res.Users = append(res.Users, u.Clone())
	}
	if len(res.Users) == 0 {
		return res
	}

	start := b.clock().UTC().Add(-time.Duration(opts.Posts) * time.Hour)
	for i := 0; i < opts.Posts; i++ {
		creator := res.Users[faker.Number(0, len(res.Users)-1)]
		fileID := uuid.NewString()
		b.files[fileID] = &fileRecord{name: fileID + ".jpg", contentType: "image/jpeg", data: []byte(faker.HipsterWord())}

		created := start.Add(time.Duration(i) * time.Hour)
		p := &post.Post{
			ID:        uuid.NewString(),
			CreatorID: creator.ID,
			Caption:   faker.Sentence(faker.Number(3, 10)),
			ImageURL:  b.previewURL(fileID, ports.DefaultPreviewOptions()),
			ImageID:   fileID,
			Location:  faker.City() + ", " + faker.Country(),
			Tags:      []string{faker.HipsterWord(), faker.HipsterWord()},
			Likers:    []string{},
			CreatedAt: created,
			UpdatedAt: created,
		}
		for _, u := range res.Users {
			if faker.Number(0, 3) == 0 {
				p.Likers = append(p.Likers, u.ID)
			}
			if faker.Number(0, 7) == 0 {
				rec := &user.SaveRecord{ID: uuid.NewString(), UserID: u.ID, PostID: p.ID, CreatedAt: created}
				b.saves[rec.ID] = rec
			}
		}
		b.posts[p.ID] = p
		res.Posts = append(res.Posts, p.Clone())
	}
	if b.last.Before(start.Add(time.Duration(opts.Posts) * time.Hour)) {
		b.last = start.Add(time.Duration(opts.Posts) * time.Hour)
	}

	b.logger.Info("seeded demo data",
		zap.Int("users", len(res.Users)),
		zap.Int("posts", len(res.Posts)),
		zap.Int64("seed", opts.Seed))
	return res
}
