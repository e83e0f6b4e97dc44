package player

import (
	"math/rand"
	"sync"
)

// Reducer is a pure state transition.
type Reducer func(State) State

// Observer is notified with the snapshots around a committed change.
type Observer func(prev, next State)

type subscription struct {
	id     uint64
	fields Field
	fn     Observer
}

// change is a committed transition waiting for its notification pass.
type change struct {
	prev, next State
	fields     Field
}

// Store is the single source of truth for playback state. Actions are
// committed one at a time in dispatch order and Dispatch returns only after
// its own action is committed. Observers run after each commit, one pass at a
// time and in commit order: a change committed while a pass is running, by an
// observer or by another goroutine, is delivered once that pass is over.
type Store struct {
	stateMu sync.RWMutex
	state   State

	subsMu sync.Mutex
	subs   []subscription
	nextID uint64

	queueMu   sync.Mutex
	pending   []change
	notifying bool

	rnd func(n int) int
}

// Option configures a Store.
type Option func(*Store)

// WithRand replaces the random source used for shuffle.
func WithRand(intn func(n int) int) Option {
	return func(s *Store) { s.rnd = intn }
}

// WithState seeds the store with an initial snapshot.
func WithState(st State) Option {
	return func(s *Store) { s.state = st }
}

// NewStore returns a store holding DefaultState.
func NewStore(opts ...Option) *Store {
	s := &Store{state: DefaultState(), rnd: rand.Intn}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// CurrentTime returns the last reported playback position in seconds.
func (s *Store) CurrentTime() float64 {
	return s.State().CurrentTime
}

// IsPlaying reports the transport flag.
func (s *Store) IsPlaying() bool {
	return s.State().IsPlaying
}

// Subscribe registers fn for changes touching any of fields and returns a
// function that removes it.
func (s *Store) Subscribe(fields Field, fn Observer) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fields: fields, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies reduce as a named action. Reducers must not dispatch.
func (s *Store) Dispatch(name string, reduce Reducer) {
	s.queueMu.Lock()
	s.stateMu.Lock()
	prev := s.state
	next := reduce(prev)
	s.state = next
	s.stateMu.Unlock()

	if changed := diff(prev, next); changed != 0 {
		s.pending = append(s.pending, change{prev: prev, next: next, fields: changed})
	}
	if s.notifying {
		s.queueMu.Unlock()
		return
	}
	s.notifying = true
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]
		s.queueMu.Unlock()
		s.notify(c)
		s.queueMu.Lock()
	}
	s.notifying = false
	s.queueMu.Unlock()
}

func (s *Store) notify(c change) {
	s.subsMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		if sub.fields&c.fields != 0 {
			sub.fn(c.prev, c.next)
		}
	}
}
