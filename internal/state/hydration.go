package state

import "sync/atomic"

// Hydration tracks whether a persisted store has finished its initial load.
// "Not yet loaded" and "loaded and empty" are different states for callers
// that make rendering decisions on persisted data.
type Hydration struct {
	done atomic.Bool
}

// MarkHydrated records that the initial load finished, successfully or not.
func (h *Hydration) MarkHydrated() {
	h.done.Store(true)
}

// Hydrated reports whether the initial load has finished.
func (h *Hydration) Hydrated() bool {
	return h.done.Load()
}
