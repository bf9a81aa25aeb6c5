// Package cache provides the in-memory entity store that holds the last known
// server copy of every fetched document.
package cache

import (
	"container/list"
	"sync"

	"go.uber.org/zap"
)

// Entity is a document with a stable id that can be deep-copied.
type Entity[E any] interface {
	EntityID() string
	Clone() E
}

// EntityStore is an id-keyed cache of documents of one type with optional LRU
// bounding.
//
// Put is a full replace: the stored copy becomes exactly the argument, with no
// field-level merge, and concurrent writers resolve by call order. Values are
// cloned on the way in and out so callers never share memory with the store.
// The store never talks to the network.
type EntityStore[E Entity[E]] struct {
	mu       sync.Mutex
	name     string
	items    map[string]*list.Element
	lruList  *list.List
	maxItems int

	// Statistics
	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger
}

type storeItem[E any] struct {
	id    string
	value E
}

// NewEntityStore creates a store. maxItems <= 0 means unbounded.
func NewEntityStore[E Entity[E]](name string, maxItems int, logger *zap.Logger) *EntityStore[E] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EntityStore[E]{
		name:     name,
		items:    make(map[string]*list.Element),
		lruList:  list.New(),
		maxItems: maxItems,
		logger:   logger.Named("entity_store").With(zap.String("store", name)),
	}
}

// Get returns a copy of the entity stored under id.
func (s *EntityStore[E]) Get(id string) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		s.misses++
		var zero E
		return zero, false
	}

	s.lruList.MoveToFront(elem)
	s.hits++
	return elem.Value.(*storeItem[E]).value.Clone(), true
}

// Put stores e under its id, replacing any previous copy.
func (s *EntityStore[E]) Put(e E) {
	id := e.EntityID()
	if id == "" {
		s.logger.Warn("Refusing to store entity without id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(id, e.Clone())
}

// PutAll stores every entity in order.
func (s *EntityStore[E]) PutAll(entities []E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		if id := e.EntityID(); id != "" {
			s.put(id, e.Clone())
		}
	}
}

// put must be called with the lock held.
func (s *EntityStore[E]) put(id string, value E) {
	if elem, ok := s.items[id]; ok {
		elem.Value.(*storeItem[E]).value = value
		s.lruList.MoveToFront(elem)
		return
	}

	for s.maxItems > 0 && len(s.items) >= s.maxItems && s.lruList.Len() > 0 {
		oldest := s.lruList.Back()
		s.removeElement(oldest)
		s.evictions++
	}

	s.items[id] = s.lruList.PushFront(&storeItem[E]{id: id, value: value})
}

// Remove evicts id. It reports whether an entity was present.
func (s *EntityStore[E]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return false
	}
	s.removeElement(elem)
	return true
}

// removeElement must be called with the lock held.
func (s *EntityStore[E]) removeElement(elem *list.Element) {
	item := s.lruList.Remove(elem).(*storeItem[E])
	delete(s.items, item.id)
}

// Clear drops every entity.
func (s *EntityStore[E]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.items)
	s.items = make(map[string]*list.Element)
	s.lruList.Init()

	s.logger.Debug("Cleared entity store", zap.Int("count", count))
}

// Len returns the number of stored entities.
func (s *EntityStore[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns store statistics
func (s *EntityStore[E]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	hitRate := float64(0)
	if total := s.hits + s.misses; total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}

	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Items:     len(s.items),
		HitRate:   hitRate,
	}
}

// Stats holds store statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	HitRate   float64
}
