// Package state provides the small primitives every Larder store is built on.
//
// # Overview
//
// Larder keeps its client-side state in explicit containers (the extraction
// session, the gallery collection, favorites, device identity, consent) that
// the application root constructs and injects. Each container owns a mutex
// for its own data and uses the types in this package for the two concerns
// they all share:
//
//   - Subject: synchronous observers, notified after a mutation commits
//   - Hydration: a flag separating "not yet loaded" from "loaded and empty"
//
// # Notification Semantics
//
// Stores follow one rule:
//
//	s.mu.Lock()
//	mutate
//	snap := copy of state
//	s.mu.Unlock()
//	s.changes.Notify(snap)
//
// Listeners therefore never run under a store lock and always receive an
// immutable copy. A listener may call back into the store that notified it.
//
// Listeners run on the goroutine that performed the mutation. Listeners that
// feed a UI event loop should hand the value off (for example with
// tea.Program.Send in its own goroutine) instead of blocking.
//
// # Hydration
//
// Persisted stores load asynchronously relative to the UI. Consumers that
// make rendering decisions on persisted values (the consent prompt, the empty
// gallery screen) check Hydrated first so nothing flashes before the stored
// value is known.
package state
