package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"snapgram-sync/internal/domain/post"
)

type fakeTimer struct {
	mu      *sync.Mutex
	f       func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler fires timers only when the test says so.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{mu: &s.mu, f: f, d: d}
	s.timers = append(s.timers, t)
	return t
}

// elapse fires every timer that has not been stopped.
func (s *manualScheduler) elapse() {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

type recordingSearcher struct {
	mu      sync.Mutex
	terms   []string
	results map[string][]*post.Post
	err     error
	gate    map[string]chan struct{}
}

func (s *recordingSearcher) Search(ctx context.Context, term string) ([]*post.Post, error) {
	s.mu.Lock()
	s.terms = append(s.terms, term)
	gate := s.gate[term]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.results[term], nil
}

func (s *recordingSearcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

func TestQuery_TypingWithinWindowSearchesOnce(t *testing.T) {
	// Arrange
	sched := &manualScheduler{}
	cats := []*post.Post{{ID: "p1", Caption: "cat"}}
	searcher := &recordingSearcher{results: map[string][]*post.Post{"cat": cats}}
	q := NewQuery(searcher, 0, sched, zap.NewNop())

	// Act
	q.SetTerm("c")
	q.SetTerm("ca")
	q.SetTerm("cat")
	assert.Equal(t, PhasePending, q.State().Phase)
	sched.elapse()

	// Assert
	assert.Equal(t, []string{"cat"}, searcher.calls())
	state := q.State()
	assert.Equal(t, PhaseResult, state.Phase)
	assert.Equal(t, "cat", state.Term)
	assert.Equal(t, cats, state.Results)
	require.Len(t, sched.timers, 3)
	assert.Equal(t, DefaultDebounce, sched.timers[2].d)
}

func TestQuery_ClearingReturnsToEmpty(t *testing.T) {
	sched := &manualScheduler{}
	searcher := &recordingSearcher{}
	q := NewQuery(searcher, time.Second, sched, nil)

	q.SetTerm("ca")
	q.SetTerm("")
	sched.elapse()

	assert.Equal(t, PhaseEmpty, q.State().Phase)
	assert.Empty(t, searcher.calls())

	q.SetTerm("   ")
	sched.elapse()
	assert.Equal(t, PhaseEmpty, q.State().Phase)
	assert.Empty(t, searcher.calls())
}

func TestQuery_LateResultForOlderTermIsDiscarded(t *testing.T) {
	// Arrange
	sched := &manualScheduler{}
	catGate := make(chan struct{})
	searcher := &recordingSearcher{
		results: map[string][]*post.Post{
			"cat": {{ID: "p1"}},
			"dog": {{ID: "p2"}},
		},
		gate: map[string]chan struct{}{"cat": catGate},
	}
	q := NewQuery(searcher, time.Second, sched, nil)

	q.SetTerm("cat")
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.elapse()
	}()
	require.Eventually(t, func() bool { return len(searcher.calls()) == 1 }, time.Second, time.Millisecond)

	// Act
	q.SetTerm("dog")
	close(catGate)
	<-done
	sched.elapse()

	// Assert
	state := q.State()
	assert.Equal(t, PhaseResult, state.Phase)
	assert.Equal(t, "dog", state.Term)
	require.Len(t, state.Results, 1)
	assert.Equal(t, "p2", state.Results[0].ID)
}

func TestQuery_SupersededCallIsCancelled(t *testing.T) {
	sched := &manualScheduler{}
	searcher := &recordingSearcher{gate: map[string]chan struct{}{"cat": make(chan struct{})}}
	q := NewQuery(searcher, time.Second, sched, nil)

	q.SetTerm("cat")
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.elapse()
	}()
	require.Eventually(t, func() bool { return len(searcher.calls()) == 1 }, time.Second, time.Millisecond)

	q.SetTerm("")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("superseded search was not cancelled")
	}
	assert.Equal(t, PhaseEmpty, q.State().Phase)
}

func TestQuery_ErrorState(t *testing.T) {
	sched := &manualScheduler{}
	boom := errors.New("boom")
	q := NewQuery(&recordingSearcher{err: boom}, time.Second, sched, nil)

	q.SetTerm("cat")
	sched.elapse()

	state := q.State()
	assert.Equal(t, PhaseError, state.Phase)
	assert.ErrorIs(t, state.Err, boom)
}

func TestQuery_SubscribeAndDebounce(t *testing.T) {
	sched := &manualScheduler{}
	q := NewQuery(&recordingSearcher{}, time.Second, sched, nil)
	var phases []Phase
	q.Subscribe(func(s Snapshot) { phases = append(phases, s.Phase) })

	q.SetDebounce(200 * time.Millisecond)
	q.SetTerm("cat")
	q.SetTerm("cat")
	sched.elapse()

	assert.Equal(t, []Phase{PhasePending, PhaseResult}, phases)
	require.Len(t, sched.timers, 1, "an unchanged term does not restart the window")
	assert.Equal(t, 200*time.Millisecond, sched.timers[0].d)
}

func TestQuery_RealTimers(t *testing.T) {
	searcher := &recordingSearcher{}
	q := NewQuery(searcher, 5*time.Millisecond, nil, nil)
	defer q.Close()

	q.SetTerm("c")
	q.SetTerm("cat")

	require.Eventually(t, func() bool { return q.State().Phase == PhaseResult }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"cat"}, searcher.calls())
}

func waitReturns(t *testing.T, wait func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return")
	}
}

func TestQuery_WaitCoversScheduledSearch(t *testing.T) {
	// Arrange
	sched := &manualScheduler{}
	searcher := &recordingSearcher{}
	q := NewQuery(searcher, time.Second, sched, nil)

	q.SetTerm("c")
	q.SetTerm("cat")

	waited := make(chan struct{})
	go func() {
		defer close(waited)
		q.Wait()
	}()

	// Act
	assert.Never(t, func() bool {
		select {
		case <-waited:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "a scheduled search is still pending")
	sched.elapse()

	// Assert
	waitReturns(t, func() { <-waited })
	assert.Equal(t, []string{"cat"}, searcher.calls())
	assert.Equal(t, PhaseResult, q.State().Phase)
}

func TestQuery_CloseReleasesScheduledSearch(t *testing.T) {
	sched := &manualScheduler{}
	searcher := &recordingSearcher{}
	q := NewQuery(searcher, time.Second, sched, nil)

	q.SetTerm("cat")
	waitReturns(t, q.Close)
	waitReturns(t, q.Wait)

	sched.elapse()
	assert.Empty(t, searcher.calls(), "a stopped timer never fires")
}

func TestQuery_CloseRacesTimerFiring(t *testing.T) {
	for i := 0; i < 50; i++ {
		q := NewQuery(&recordingSearcher{}, time.Microsecond, nil, nil)
		q.SetTerm("cat")
		waitReturns(t, q.Close)
	}
}
