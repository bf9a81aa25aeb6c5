// Package feed accumulates cursor-paged posts into one ordered list.
package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/query"
)

// PageLoader fetches one page of posts after cursor. An empty cursor asks
// for the first page.
type PageLoader interface {
	LoadPage(ctx context.Context, cursor string) ([]*post.Post, error)
	PageSize() int
}

// Recorder receives page events. The observability collector implements it.
type Recorder interface {
	RecordFeedPage(items int, err error)
}

// Source reports cache changes. The query cache implements it.
type Source interface {
	Watch(kind query.Kind, fn func(reset bool))
}

type nopRecorder struct{}

func (nopRecorder) RecordFeedPage(int, error) {}

// State of the reader.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// Reader is the infinite feed. At most one page request is in flight; calls
// to FetchNextPage while one is running, or after the feed is exhausted, do
// nothing. Once invalidated, the loaded pages are stale until reloaded by
// Refetch or the next FetchNextPage.
type Reader struct {
	mu            sync.Mutex
	loader        PageLoader
	pageSize      int
	state         State
	generation    uint64
	stale         bool
	invalidations uint64

	pages  [][]*post.Post
	items  []*post.Post
	seen   map[string]struct{}
	cursor string
	err    error

	recorder Recorder
	logger   *zap.Logger
}

// NewReader creates an idle reader with nothing loaded.
func NewReader(loader PageLoader, recorder Recorder, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Reader{
		loader:   loader,
		pageSize: loader.PageSize(),
		seen:     make(map[string]struct{}),
		recorder: recorder,
		logger:   logger.Named("feed"),
	}
}

// Follow keeps the reader in step with src: invalidating infinite-posts
// queries marks the loaded pages stale and a reset drops them.
func (r *Reader) Follow(src Source) {
	src.Watch(query.KindInfinitePosts, func(reset bool) {
		if reset {
			r.Reset()
			return
		}
		r.Invalidate()
	})
}

// Invalidate marks the loaded pages stale. It does nothing when no page has
// been loaded.
func (r *Reader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pages) == 0 {
		return
	}
	r.stale = true
	r.invalidations++
	r.logger.Debug("feed invalidated", zap.Int("pages", len(r.pages)))
}

// FetchNextPage loads the page after the last accumulated item and appends
// the posts not seen before. A page shorter than the page size ends the feed.
// A failed fetch leaves the reader idle at the same cursor. Stale pages are
// reloaded first; the next page follows only if the feed still has more.
func (r *Reader) FetchNextPage(ctx context.Context) error {
	r.mu.Lock()
	stale := r.stale && r.state != StateFetching
	r.mu.Unlock()

	if stale {
		if err := r.Refetch(ctx); err != nil {
			return err
		}
	}
	return r.fetchNext(ctx)
}

func (r *Reader) fetchNext(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("ignoring fetch", zap.Stringer("state", state))
		return nil
	}
	r.state = StateFetching
	cursor := r.cursor
	gen := r.generation
	r.mu.Unlock()

	page, err := r.loader.LoadPage(ctx, cursor)
	r.recorder.RecordFeedPage(len(page), err)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		// Reset while the page was in flight.
		return err
	}
	if err != nil {
		r.state = StateIdle
		r.err = err
		r.logger.Warn("feed page failed", zap.String("cursor", cursor), zap.Error(err))
		return err
	}

	r.err = nil
	r.pages = append(r.pages, page)
	var added int
	r.items, added = appendUnseen(r.items, r.seen, page)

	if added > 0 {
		r.cursor = r.items[len(r.items)-1].ID
	}

	if len(page) < r.pageSize {
		r.state = StateExhausted
	} else {
		r.state = StateIdle
	}

	r.logger.Debug("feed page loaded",
		zap.String("cursor", cursor),
		zap.Int("fetched", len(page)),
		zap.Int("added", added),
		zap.Int("total", len(r.items)),
		zap.Stringer("state", r.state))
	return nil
}

// Refetch reloads as many pages as are loaded, starting again from the first
// page, and replaces them. An exhausted feed whose last page has since filled
// up becomes idle again. On failure the pages already shown are kept and
// remain stale.
func (r *Reader) Refetch(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateFetching {
		r.mu.Unlock()
		r.logger.Debug("ignoring refetch", zap.Stringer("state", StateFetching))
		return nil
	}
	want := len(r.pages)
	if want == 0 {
		r.stale = false
		r.mu.Unlock()
		return nil
	}
	prev := r.state
	r.state = StateFetching
	gen := r.generation
	marker := r.invalidations
	r.mu.Unlock()

	var (
		pages     [][]*post.Post
		items     []*post.Post
		seen      = make(map[string]struct{})
		cursor    string
		exhausted bool
	)
	for len(pages) < want {
		page, err := r.loader.LoadPage(ctx, cursor)
		r.recorder.RecordFeedPage(len(page), err)
		if err != nil {
			r.mu.Lock()
			if gen == r.generation {
				r.state = prev
				r.err = err
			}
			r.mu.Unlock()
			r.logger.Warn("feed refetch failed", zap.String("cursor", cursor), zap.Error(err))
			return err
		}
		pages = append(pages, page)
		items, _ = appendUnseen(items, seen, page)
		if len(items) > 0 {
			cursor = items[len(items)-1].ID
		}
		if len(page) < r.pageSize {
			exhausted = true
			break
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		return nil
	}
	r.pages, r.items, r.seen, r.cursor = pages, items, seen, cursor
	r.err = nil
	r.stale = r.invalidations != marker
	if exhausted {
		r.state = StateExhausted
	} else {
		r.state = StateIdle
	}

	r.logger.Debug("feed refetched",
		zap.Int("pages", len(pages)),
		zap.Int("total", len(items)),
		zap.Stringer("state", r.state))
	return nil
}

func appendUnseen(items []*post.Post, seen map[string]struct{}, page []*post.Post) ([]*post.Post, int) {
	added := 0
	for _, p := range page {
		if p == nil {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		items = append(items, p)
		added++
	}
	return items, added
}

// Pages returns the pages as fetched, duplicates included.
func (r *Reader) Pages() [][]*post.Post {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]*post.Post, len(r.pages))
	for i, page := range r.pages {
		out[i] = append([]*post.Post(nil), page...)
	}
	return out
}

// Items returns the accumulated posts, each id once, in fetch order.
func (r *Reader) Items() []*post.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*post.Post(nil), r.items...)
}

// HasNextPage reports whether another page may exist. A stale feed always
// may, since the server may have more posts than when it was exhausted.
func (r *Reader) HasNextPage() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateExhausted || r.stale
}

// Stale reports whether the loaded pages were invalidated and not yet
// reloaded.
func (r *Reader) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

// State returns the current state.
func (r *Reader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Cursor returns the id the next page will be requested after.
func (r *Reader) Cursor() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Err returns the error of the last failed fetch, cleared by a success.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Reset drops everything loaded so the next fetch starts from the first
// page. A page still in flight is discarded when it lands.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.state = StateIdle
	r.pages = nil
	r.items = nil
	r.seen = make(map[string]struct{})
	r.cursor = ""
	r.err = nil
	r.stale = false
}
