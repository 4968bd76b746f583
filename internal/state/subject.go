package state

import (
	"sort"
	"sync"
)

// Listener receives the committed value after a store mutation.
type Listener[T any] func(T)

// Subject fans a committed value out to every subscribed listener. The zero
// value is ready to use.
type Subject[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener[T]
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (s *Subject[T]) Subscribe(fn Listener[T]) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]Listener[T])
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Notify calls every listener synchronously, in subscription order, on the
// calling goroutine. Callers must not hold their own store lock while
// notifying.
func (s *Subject[T]) Notify(value T) {
	for _, fn := range s.snapshot() {
		fn(value)
	}
}

// Len reports the number of active listeners.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Subject[T]) snapshot() []Listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
