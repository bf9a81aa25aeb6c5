// Package queries holds the query cache and the per-descriptor read hooks
// built on top of it.
package queries

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"snapgram-sync/internal/domain/query"
)

// Fetcher loads the data for one descriptor from the backend.
type Fetcher func(ctx context.Context) (any, error)

// Recorder receives cache events. The observability collector implements it.
type Recorder interface {
	RecordCacheRead(kind string, result string)
	RecordQueryFetch(kind string, err error, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheRead(string, string) {}
func (nopRecorder) RecordQueryFetch(string, error, time.Duration) {}

// Cache read results reported to the Recorder.
const (
	ReadFresh = "fresh"
	ReadStale = "stale"
	ReadMiss  = "miss"
)

// Entry is a snapshot of one cached result set.
type Entry struct {
	Descriptor query.Descriptor
	Data       any
	FetchedAt  time.Time
	Stale      bool
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	// MaxAge marks entries stale once they are older than this. Zero keeps
	// entries fresh until invalidated.
	MaxAge time.Duration
	Clock  func() time.Time
}

type entry struct {
	data      any
	hasData   bool
	fetchedAt time.Time
	stale     bool
	err       error

	// epoch distinguishes this entry from earlier ones evicted under the
	// same descriptor so their fetches are never shared.
	epoch uint64

	// issued is the sequence number handed to the latest fetch; applied is
	// the sequence of the result currently held. A result lands only when
	// its sequence is above applied.
	issued      uint64
	applied     uint64
	invalidated uint64
	refreshing  bool
}

// Cache maps descriptors to the last successful result for each. Stale
// entries keep serving their data while one background refetch per
// descriptor runs.
type Cache struct {
	mu      sync.Mutex
	entries map[query.Descriptor]*entry
	epochs  uint64

	group    singleflight.Group
	inflight sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	watchMu  sync.Mutex
	watchers map[query.Kind][]func(reset bool)

	cfg      CacheConfig
	recorder Recorder
	logger   *zap.Logger
}

// NewCache creates an empty query cache.
func NewCache(cfg CacheConfig, recorder Recorder, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		entries:  make(map[query.Descriptor]*entry),
		watchers: make(map[query.Kind][]func(reset bool)),
		baseCtx:  ctx,
		cancel:   cancel,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.Named("query_cache"),
	}
}

// Read returns the entry for d. Entries that never landed data are absent.
func (c *Cache) Read(d query.Descriptor) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[d]
	if !ok || !e.hasData {
		return Entry{}, false
	}
	return c.snapshot(d, e), true
}

// Write stores data for d as a fresh entry stamped now. Fetches issued before
// the write can no longer overwrite it.
func (c *Cache) Write(d query.Descriptor, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryFor(d)
	e.issued++
	e.applied = e.issued
	e.data = data
	e.hasData = true
	e.fetchedAt = c.cfg.Clock()
	e.stale = false
	e.err = nil
}

// Watch registers fn to run after Invalidate or Remove selects entries of
// kind, and after Reset with reset set. fn runs without the cache lock held.
func (c *Cache) Watch(kind query.Kind, fn func(reset bool)) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	c.watchers[kind] = append(c.watchers[kind], fn)
}

// Invalidate marks every entry selected by the matchers stale. Data is kept.
// It returns the number of entries selected; calling it again selects the
// same entries and changes nothing further.
func (c *Cache) Invalidate(matchers ...query.Matcher) int {
	c.mu.Lock()
	n := 0
	kinds := make(map[query.Kind]struct{})
	for d, e := range c.entries {
		if !matchesAny(matchers, d) {
			continue
		}
		e.stale = true
		// A fetch already in flight started before the change and lands stale.
		e.invalidated = e.issued
		kinds[d.Kind] = struct{}{}
		n++
	}
	c.mu.Unlock()

	if n > 0 {
		c.logger.Debug("invalidated queries",
			zap.Int("entries", n),
			zap.Stringers("matchers", matchers))
	}
	c.notify(kinds, false)
	return n
}

// Remove evicts every entry selected by the matchers, dropping their data.
// Fetches in flight for evicted entries are discarded when they land.
func (c *Cache) Remove(matchers ...query.Matcher) int {
	c.mu.Lock()
	n := 0
	kinds := make(map[query.Kind]struct{})
	for d := range c.entries {
		if matchesAny(matchers, d) {
			delete(c.entries, d)
			kinds[d.Kind] = struct{}{}
			n++
		}
	}
	c.mu.Unlock()

	c.notify(kinds, false)
	return n
}

func (c *Cache) notify(kinds map[query.Kind]struct{}, reset bool) {
	if len(kinds) == 0 && !reset {
		return
	}
	c.watchMu.Lock()
	var fns []func(bool)
	for kind, list := range c.watchers {
		if _, hit := kinds[kind]; hit || reset {
			fns = append(fns, list...)
		}
	}
	c.watchMu.Unlock()

	for _, fn := range fns {
		fn(reset)
	}
}

// Use is the non-blocking read behind every hook. It returns what is cached
// for d right now and, when the entry is missing or stale, schedules a single
// background refetch that concurrent readers share.
func (c *Cache) Use(d query.Descriptor, fetch Fetcher) State[any] {
	c.mu.Lock()
	e := c.entryFor(d)
	c.checkAge(e)

	result := ReadFresh
	switch {
	case !e.hasData:
		result = ReadMiss
	case e.stale:
		result = ReadStale
	}

	if result != ReadFresh && !e.refreshing {
		e.refreshing = true
		ctx := c.baseCtx
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			// Errors are kept on the entry and surface through IsError.
			_, _ = c.Fetch(ctx, d, fetch)
		}()
	}

	state := State[any]{
		Data:       e.data,
		IsPending:  !e.hasData && e.err == nil,
		IsFetching: e.refreshing,
		IsError:    !e.hasData && e.err != nil,
		IsStale:    e.stale,
		Err:        e.err,
	}
	c.mu.Unlock()

	c.recorder.RecordCacheRead(string(d.Kind), result)
	return state
}

// Fetch loads d now, sharing a fetch already in flight for the same
// descriptor, and returns the loaded data.
func (c *Cache) Fetch(ctx context.Context, d query.Descriptor, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e := c.entryFor(d)
	key := d.Key() + "#" + strconv.FormatUint(e.epoch, 10)
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, d, e, fetch)
	})
	return v, err
}

func (c *Cache) fetch(ctx context.Context, d query.Descriptor, e *entry, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e.issued++
	seq := e.issued
	e.refreshing = true
	c.mu.Unlock()

	start := c.cfg.Clock()
	data, err := fetch(ctx)
	c.recorder.RecordQueryFetch(string(d.Kind), err, c.cfg.Clock().Sub(start))

	c.mu.Lock()
	defer c.mu.Unlock()

	e.refreshing = false
	if c.entries[d] != e {
		c.logger.Debug("discarding fetch for evicted query", zap.Stringer("descriptor", d))
		return data, err
	}
	if seq <= e.applied {
		c.logger.Debug("discarding superseded fetch",
			zap.Stringer("descriptor", d),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", e.applied))
		return data, err
	}
	if err != nil {
		e.err = err
		c.logger.Warn("query fetch failed", zap.Stringer("descriptor", d), zap.Error(err))
		return nil, err
	}

	e.applied = seq
	e.data = data
	e.hasData = true
	e.fetchedAt = c.cfg.Clock()
	e.stale = seq <= e.invalidated
	e.err = nil
	return data, nil
}

// Wait blocks until every background refetch scheduled so far has landed.
func (c *Cache) Wait() {
	c.inflight.Wait()
}

// Reset drops every entry and cancels background refetches. Results of
// fetches still in flight are discarded.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.cancel()
	c.entries = make(map[query.Descriptor]*entry)
	c.baseCtx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.logger.Debug("query cache reset")
	c.notify(nil, true)
}

// Close cancels background refetches and waits for them.
func (c *Cache) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.inflight.Wait()
}

// Len returns the number of tracked descriptors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) entryFor(d query.Descriptor) *entry {
	e, ok := c.entries[d]
	if !ok {
		c.epochs++
		e = &entry{epoch: c.epochs}
		c.entries[d] = e
	}
	return e
}

func (c *Cache) checkAge(e *entry) {
	if c.cfg.MaxAge <= 0 || !e.hasData || e.stale {
		return
	}
	if c.cfg.Clock().Sub(e.fetchedAt) > c.cfg.MaxAge {
		e.stale = true
	}
}

func (c *Cache) snapshot(d query.Descriptor, e *entry) Entry {
	c.checkAge(e)
	return Entry{
		Descriptor: d,
		Data:       e.data,
		FetchedAt:  e.fetchedAt,
		Stale:      e.stale,
	}
}

func matchesAny(matchers []query.Matcher, d query.Descriptor) bool {
	for _, m := range matchers {
		if m.Matches(d) {
			return true
		}
	}
	return false
}
