package cache

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Updater computes a new cached value from the previous one. present is
// false when the key held no value. Updaters must be pure: they never mutate
// the old value and never touch the store themselves.
type Updater func(old any, present bool) any

// Invalidation is delivered to subscribers when entries go stale so that UI
// collaborators can schedule refetches.
type Invalidation struct {
	Keys []Key
	At   time.Time
}

type entryState struct {
	value   any
	present bool
	stale   bool
}

type entry struct {
	entryState
	generation uint64
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Clock  func() time.Time
	Logger *zap.Logger
}

// Store is the keyed container of cached query results. All mutation of
// cached state funnels through Write, which applies updaters atomically per
// key; the lock is held only for the duration of the pure updater, never
// across a network wait.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	clock   func() time.Time
	logger  *zap.Logger

	subscriberMu sync.RWMutex
	subscribers  map[int64]chan Invalidation
	nextSubID    int64
}

const subscriberBufferSize = 16

// NewStore constructs an empty Store.
func NewStore(cfg StoreConfig) *Store {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:     make(map[Key]*entry),
		clock:       clock,
		logger:      logger,
		subscribers: make(map[int64]chan Invalidation),
	}
}

// Read returns the cached value for the key. Stale values are still served;
// staleness only signals that a refetch is due.
func (s *Store) Read(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether the key's entry has been invalidated since its
// value arrived. Absent keys are stale by definition.
func (s *Store) IsStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.present {
		return true
	}
	return e.stale
}

// Write applies the updater to the key's current value and commits the
// result. The updater always observes the most recently committed value;
// a write advances the key's generation so stale fetch results are dropped.
// Returning nil removes the entry's value: cached values are collections or
// entities, never nil, so nil unambiguously means "absent".
func (s *Store) Write(key Key, updater Updater) {
	if updater == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	next := updater(e.value, e.present)
	if isAbsent(next) {
		next = nil
	}
	e.value = next
	e.present = next != nil
	e.generation++
}

// isAbsent reports whether the updater's result means "no value". Typed nils
// count: a nil pointer inside a non-nil interface is still no value.
func isAbsent(value any) bool {
	if value == nil {
		return true
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// Invalidate marks entries stale without discarding their data, advances
// their generations, and notifies subscribers. Data stays servable until a
// fresh fetch lands.
func (s *Store) Invalidate(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	s.mu.Lock()
	for _, key := range keys {
		e := s.entryLocked(key)
		e.stale = true
		e.generation++
	}
	s.mu.Unlock()

	s.publish(Invalidation{Keys: keys, At: s.clock()})
}

// BeginFetch records the key's current generation. The caller passes the
// value back to CompleteFetch so the store can drop results that raced with
// an intervening write or invalidation.
func (s *Store) BeginFetch(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryLocked(key).generation
}

// CompleteFetch installs a fetched value if the key's generation is
// unchanged since BeginFetch. Returns false when the result was discarded.
func (s *Store) CompleteFetch(key Key, generation uint64, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key)
	if e.generation != generation {
		s.logger.Debug("discarding stale fetch result",
			zap.String("key", key.String()),
			zap.Uint64("fetched_generation", generation),
			zap.Uint64("current_generation", e.generation))
		return false
	}
	e.value = value
	e.present = true
	e.stale = false
	e.generation++
	return true
}

// SnapshotSet holds the verbatim prior states of a set of entries.
type SnapshotSet struct {
	states map[Key]entryState
}

// Keys lists the snapshotted keys.
func (set SnapshotSet) Keys() []Key {
	keys := make([]Key, 0, len(set.states))
	for key := range set.states {
		keys = append(keys, key)
	}
	return keys
}

// Snapshot captures the current state of the given entries so a failed
// mutation can restore them exactly.
func (s *Store) Snapshot(keys ...Key) SnapshotSet {
	set := SnapshotSet{states: make(map[Key]entryState, len(keys))}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			set.states[key] = e.entryState
		} else {
			set.states[key] = entryState{}
		}
	}
	return set
}

// RestoreSnapshot writes every snapshotted state back verbatim. Generations
// advance so fetch results issued against the mutated state are discarded.
func (s *Store) RestoreSnapshot(set SnapshotSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, state := range set.states {
		e := s.entryLocked(key)
		e.entryState = state
		e.generation++
	}
}

// Subscribe registers for invalidation notifications until ctx is cancelled
// or the returned cancel function runs. Slow subscribers drop notifications
// rather than block writers.
func (s *Store) Subscribe(ctx context.Context) (<-chan Invalidation, func()) {
	stream := make(chan Invalidation, subscriberBufferSize)

	s.subscriberMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = stream
	s.subscriberMu.Unlock()

	cancel := func() {
		s.subscriberMu.Lock()
		delete(s.subscribers, id)
		s.subscriberMu.Unlock()
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return stream, cancel
}

func (s *Store) publish(message Invalidation) {
	s.subscriberMu.RLock()
	streams := make([]chan Invalidation, 0, len(s.subscribers))
	for _, stream := range s.subscribers {
		streams = append(streams, stream)
	}
	s.subscriberMu.RUnlock()
	for _, stream := range streams {
		select {
		case stream <- message:
		default:
		}
	}
}

// entryLocked returns the entry for key, creating a shell if absent.
// Callers must hold s.mu.
func (s *Store) entryLocked(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}
