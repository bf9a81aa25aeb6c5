package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToggleLike(t *testing.T) {
	t.Run("adds missing user", func(t *testing.T) {
		likers := []string{"u1"}

		next, liked := ToggleLike(likers, "u2")

		assert.True(t, liked)
		assert.Equal(t, []string{"u1", "u2"}, next)
		assert.Equal(t, []string{"u1"}, likers, "input must not be modified")
	})

	t.Run("removes present user", func(t *testing.T) {
		next, liked := ToggleLike([]string{"u1", "u2", "u3"}, "u2")

		assert.False(t, liked)
		assert.Equal(t, []string{"u1", "u3"}, next)
	})

	t.Run("nil likers", func(t *testing.T) {
		next, liked := ToggleLike(nil, "u1")

		assert.True(t, liked)
		assert.Equal(t, []string{"u1"}, next)
	})
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: []string{}},
		{raw: "art", want: []string{"art"}},
		{raw: "art, travel ,food", want: []string{"art", "travel", "food"}},
		{raw: " , ,art,, ", want: []string{"art"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.raw))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := &Post{ID: "p1", Tags: []string{"a"}, Likers: []string{"u1"}}

	c := p.Clone()
	c.Likers[0] = "u2"
	c.Tags = append(c.Tags, "b")

	assert.Equal(t, []string{"u1"}, p.Likers)
	assert.Equal(t, []string{"a"}, p.Tags)
	assert.Nil(t, (*Post)(nil).Clone())
}

func TestLikedBy(t *testing.T) {
	p := &Post{Likers: []string{"u1"}}

	assert.True(t, p.LikedBy("u1"))
	assert.False(t, p.LikedBy("u2"))
	assert.False(t, (*Post)(nil).LikedBy("u1"))
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "30 seconds ago", FormatRelative(now.Add(-30*time.Second), now))
	assert.Equal(t, "5 minutes ago", FormatRelative(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3 hours ago", FormatRelative(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2 days ago", FormatRelative(now.Add(-50*time.Hour), now))
}
