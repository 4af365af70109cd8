package session

import (
	"context"
	"log/slog"
	"sync"

	"mvp/internal/observability"
)

// Observer is notified after every transition, in subscription order.
// Observers must not call Dispatch.
type Observer func(ctx context.Context, prev, next State, action Action)

// Store owns the current State and serializes transitions.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	observers []observerEntry
	nextID    int

	kv KV
}

type observerEntry struct {
	id int
	fn Observer
}

// NewStore creates a Store starting at initial. kv answers onboarding
// lookups when the user changes.
func NewStore(kv KV, initial State) *Store {
	return &Store{kv: kv, state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies action and notifies observers. It returns the new state.
func (s *Store) Dispatch(ctx context.Context, action Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.RLock()
	prev := s.state
	s.mu.RUnlock()

	next := Reduce(prev, action, func(userID string) bool {
		return s.lookupOnboarded(ctx, userID)
	})

	s.mu.Lock()
	s.state = next
	observers := append([]observerEntry(nil), s.observers...)
	s.mu.Unlock()

	observability.SessionTransitions.WithLabelValues(action.Name()).Inc()
	for _, o := range observers {
		o.fn(ctx, prev, next, action)
	}
	return next
}

func (s *Store) lookupOnboarded(ctx context.Context, userID string) bool {
	if s.kv == nil {
		return false
	}
	v, ok, err := s.kv.Get(ctx, OnboardedKey(userID))
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "onboarding lookup failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok && v == "true"
}
