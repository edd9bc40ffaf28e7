package store

import (
	"sync"
	"time"
)

// Store is the set of events known to the server. The RW mutex guards
// membership only; each Event carries its own lock for its grid.
//
// Lock order: the store lock is always released before an event lock is
// taken, except in DumpAll which holds the store read lock and at most
// one event lock at a time. A Create waiting on the write lock therefore
// never waits behind a reservation in progress.
type Store struct {
	mu     sync.RWMutex
	events []*Event
	byID   map[uint32]*Event

	// accessDelay is slept before every lock-protected lookup to model a
	// slow backing store.
	accessDelay time.Duration
}

// New constructs an empty store. accessDelay may be zero.
func New(accessDelay time.Duration) *Store {
	return &Store{
		byID:        make(map[uint32]*Event),
		accessDelay: accessDelay,
	}
}

// AccessDelay reports the configured simulated access latency.
func (s *Store) AccessDelay() time.Duration {
	if s == nil {
		return 0
	}
	return s.accessDelay
}

func (s *Store) wait() {
	if s.accessDelay > 0 {
		time.Sleep(s.accessDelay)
	}
}

// lookup finds an event under the store read lock and releases it before
// returning.
func (s *Store) lookup(id uint32) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.wait()
	ev, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ev, nil
}

// Create adds an event with a zeroed rows x cols grid.
func (s *Store) Create(id uint32, rows, cols uint64) error {
	if s == nil {
		return ErrNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wait()
	if _, exists := s.byID[id]; exists {
		return ErrAlreadyExists
	}
	if rows == 0 || cols == 0 {
		return ErrInvalidDimensions
	}
	if rows > MaxSeats/cols {
		return ErrAllocationFailed
	}

	ev := &Event{
		id:   id,
		rows: rows,
		cols: cols,
		data: make([]uint32, rows*cols),
	}
	s.events = append(s.events, ev)
	s.byID[id] = ev
	return nil
}

// Reserve claims every seat in seats for a single new reservation and
// returns its id. Either all seats are claimed or none are.
func (s *Store) Reserve(id uint32, seats []Seat) (uint32, error) {
	if s == nil {
		return 0, ErrNotInitialized
	}
	if len(seats) == 0 {
		return 0, ErrNoSeats
	}
	if len(seats) > MaxSeats {
		return 0, ErrOutOfBounds
	}
	ev, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.reserve(seats)
}

// Show returns a copy of the event's grid. It takes the same exclusive
// lock as Reserve so a snapshot never observes a half-written claim.
func (s *Store) Show(id uint32) (Grid, error) {
	if s == nil {
		return Grid{}, ErrNotInitialized
	}
	ev, err := s.lookup(id)
	if err != nil {
		return Grid{}, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.snapshot(), nil
}

// List returns every event id in creation order.
func (s *Store) List() ([]uint32, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.wait()
	ids := make([]uint32, len(s.events))
	for i, ev := range s.events {
		ids[i] = ev.id
	}
	return ids, nil
}
