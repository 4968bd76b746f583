package gallery

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/state"
)

// FavoritesStoreName is the kv name favorites are persisted under.
const FavoritesStoreName = "favorites"

type persistedFavorites struct {
	FavoriteIDs []string `json:"favorite_ids"`
}

// Favorites is the set of favorited card ids, kept in the order they were
// added. It never drives fetching; it only filters what is displayed.
type Favorites struct {
	slot   kv.Slot[persistedFavorites]
	logger *slog.Logger

	mu      sync.Mutex
	ids     []string
	touched bool

	persistMu sync.Mutex
	hydration state.Hydration
	changes   state.Subject[[]string]
}

// NewFavorites returns an empty set backed by store.
func NewFavorites(store kv.Store, logger *slog.Logger) *Favorites {
	if logger == nil {
		logger = slog.Default()
	}
	return &Favorites{
		slot:   kv.NewSlot[persistedFavorites](store, FavoritesStoreName),
		logger: logger,
	}
}

// Load restores persisted favorites and marks the set hydrated.
func (f *Favorites) Load(ctx context.Context) error {
	defer f.hydration.MarkHydrated()
	doc, found, err := f.slot.Load(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if found && !f.touched {
		f.ids = nil
		for _, id := range doc.FavoriteIDs {
			if !slices.Contains(f.ids, id) {
				f.ids = append(f.ids, id)
			}
		}
	}
	ids := slices.Clone(f.ids)
	f.mu.Unlock()
	f.changes.Notify(ids)
	return nil
}

// Hydrated reports whether Load has finished.
func (f *Favorites) Hydrated() bool {
	return f.hydration.Hydrated()
}

// Subscribe registers fn for every committed change.
func (f *Favorites) Subscribe(fn func([]string)) func() {
	return f.changes.Subscribe(fn)
}

// IsFavorite reports whether id is favorited.
func (f *Favorites) IsFavorite(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.ids, id)
}

// Toggle adds id if absent or removes it if present, and returns the new
// membership.
func (f *Favorites) Toggle(id string) bool {
	f.mu.Lock()
	var on bool
	if i := slices.Index(f.ids, id); i >= 0 {
		f.ids = slices.Delete(f.ids, i, i+1)
	} else {
		f.ids = append(f.ids, id)
		on = true
	}
	f.touched = true
	f.mu.Unlock()
	f.commit()
	return on
}

// Remove drops id. The gallery delete flow calls it so a deleted card never
// stays favorited.
func (f *Favorites) Remove(id string) bool {
	f.mu.Lock()
	i := slices.Index(f.ids, id)
	if i < 0 {
		f.mu.Unlock()
		return false
	}
	f.ids = slices.Delete(f.ids, i, i+1)
	f.touched = true
	f.mu.Unlock()
	f.commit()
	return true
}

// IDs returns the favorited ids in the order they were added.
func (f *Favorites) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ids)
}

// Len returns the number of favorites.
func (f *Favorites) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

// Filter returns the favorited cards of cards, in the order of cards.
func (f *Favorites) Filter(cards []recipeapi.Card) []recipeapi.Card {
	f.mu.Lock()
	set := make(map[string]struct{}, len(f.ids))
	for _, id := range f.ids {
		set[id] = struct{}{}
	}
	f.mu.Unlock()

	out := make([]recipeapi.Card, 0, len(set))
	for _, card := range cards {
		if _, ok := set[card.CardID]; ok {
			out = append(out, card)
		}
	}
	return out
}

func (f *Favorites) commit() {
	f.persistMu.Lock()
	f.mu.Lock()
	doc := persistedFavorites{FavoriteIDs: slices.Clone(f.ids)}
	f.mu.Unlock()
	if doc.FavoriteIDs == nil {
		doc.FavoriteIDs = []string{}
	}
	if err := f.slot.Save(context.Background(), doc); err != nil {
		f.logger.Warn("persist favorites failed", "error", err)
	}
	f.persistMu.Unlock()
	f.changes.Notify(slices.Clone(doc.FavoriteIDs))
}
