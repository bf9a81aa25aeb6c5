// Package search gates post search behind a debounced, non-empty term.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"snapgram-sync/internal/domain/post"
)

// DefaultDebounce is the quiet period after the last keystroke.
const DefaultDebounce = 500 * time.Millisecond

// Searcher runs one search.
type Searcher interface {
	Search(ctx context.Context, term string) ([]*post.Post, error)
}

// Timer is a scheduled call that can be stopped.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Phase of the search box.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhasePending
	PhaseResult
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseResult:
		return "result"
	case PhaseError:
		return "error"
	default:
		return "empty"
	}
}

// Snapshot is what the search box shows.
type Snapshot struct {
	Phase   Phase
	Term    string
	Results []*post.Post
	Err     error
}

// Query tracks a live-typed term. Each change restarts the debounce window;
// only a term left unchanged for the whole window is searched, and only the
// result for the latest term is kept.
type Query struct {
	mu       sync.Mutex
	searcher Searcher
	sched    Scheduler
	window   time.Duration

	term   string
	seq    uint64
	timer  Timer
	cancel context.CancelFunc
	snap   Snapshot

	listeners []func(Snapshot)
	inflight  sync.WaitGroup
	logger    *zap.Logger
}

// NewQuery creates an empty search. A nil scheduler uses real timers; a
// non-positive window uses DefaultDebounce.
func NewQuery(searcher Searcher, window time.Duration, sched Scheduler, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sched == nil {
		sched = clockScheduler{}
	}
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Query{
		searcher: searcher,
		sched:    sched,
		window:   window,
		logger:   logger.Named("search"),
	}
}

// SetTerm records a keystroke. A blank term returns to Empty at once and
// cancels anything scheduled or running.
func (q *Query) SetTerm(term string) {
	q.mu.Lock()
	if term == q.term {
		q.mu.Unlock()
		return
	}
	q.term = term
	q.seq++
	q.stopLocked()

	if strings.TrimSpace(term) == "" {
		q.snap = Snapshot{Phase: PhaseEmpty}
		q.notifyLocked()
		return
	}

	seq := q.seq
	q.snap = Snapshot{Phase: PhasePending, Term: term}
	// Counted from scheduling so Wait and Close cover a timer about to fire.
	// fire or a successful Stop releases it.
	q.inflight.Add(1)
	q.timer = q.sched.AfterFunc(q.window, func() { q.fire(seq, term) })
	q.notifyLocked()
}

// State returns the current snapshot.
func (q *Query) State() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snap
}

// Term returns the latest term entered.
func (q *Query) Term() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.term
}

// SetDebounce changes the window for keystrokes from now on.
func (q *Query) SetDebounce(window time.Duration) {
	if window <= 0 {
		return
	}
	q.mu.Lock()
	q.window = window
	q.mu.Unlock()
	q.logger.Info("debounce window changed", zap.Duration("window", window))
}

// Subscribe registers fn to receive every new snapshot.
func (q *Query) Subscribe(fn func(Snapshot)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// Wait blocks until scheduled and running searches have finished or been
// stopped.
func (q *Query) Wait() {
	q.inflight.Wait()
}

// Close stops any scheduled or running search.
func (q *Query) Close() {
	q.mu.Lock()
	q.seq++
	q.stopLocked()
	q.mu.Unlock()
	q.inflight.Wait()
}

func (q *Query) fire(seq uint64, term string) {
	defer q.inflight.Done()

	q.mu.Lock()
	if seq != q.seq {
		q.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.timer = nil
	q.mu.Unlock()
	defer cancel()

	results, err := q.searcher.Search(ctx, term)

	q.mu.Lock()
	if seq != q.seq {
		q.mu.Unlock()
		q.logger.Debug("discarding result for superseded term", zap.String("term", term))
		return
	}
	q.cancel = nil
	if err != nil {
		q.snap = Snapshot{Phase: PhaseError, Term: term, Err: err}
		q.logger.Warn("search failed", zap.String("term", term), zap.Error(err))
	} else {
		q.snap = Snapshot{Phase: PhaseResult, Term: term, Results: results}
	}
	q.notifyLocked()
}

// stopLocked cancels the scheduled timer and the running call, if any.
func (q *Query) stopLocked() {
	if q.timer != nil {
		if q.timer.Stop() {
			q.inflight.Done()
		}
		q.timer = nil
	}
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// notifyLocked publishes the snapshot and releases the lock.
func (q *Query) notifyLocked() {
	snap := q.snap
	listeners := append([]func(Snapshot){}, q.listeners...)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
