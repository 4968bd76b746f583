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

// DefaultPageSize is the number of cards requested per gallery page.
const DefaultPageSize = 20

// CardsStoreName is the kv name the saved cards are persisted under.
const CardsStoreName = "gallery-cards"

// Snapshot is a copy of the collection state handed to observers.
type Snapshot struct {
	Cards       []recipeapi.Card
	Offset      int
	HasMore     bool
	ActiveIndex int
	Loading     bool
	Error       string
}

// Len returns the number of cards.
func (s Snapshot) Len() int {
	return len(s.Cards)
}

// Active returns the card at ActiveIndex, if any.
func (s Snapshot) Active() (recipeapi.Card, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Cards) {
		return recipeapi.Card{}, false
	}
	return s.Cards[s.ActiveIndex], true
}

type persistedCards struct {
	Cards []recipeapi.Card `json:"cards"`
}

// CollectionOptions configure a Collection.
type CollectionOptions struct {
	PageSize int
	Logger   *slog.Logger
}

// Collection is the ordered, id-unique list of saved cards shown in the
// carousel. Only the cards are persisted; cursor, active index and loading
// flags start fresh each run.
type Collection struct {
	slot     kv.Slot[persistedCards]
	pageSize int
	logger   *slog.Logger

	mu      sync.Mutex
	cards   []recipeapi.Card
	offset  int
	hasMore bool
	active  int
	loading bool
	errMsg  string
	touched bool

	persistMu sync.Mutex
	hydration state.Hydration
	changes   state.Subject[Snapshot]
}

// NewCollection returns an empty collection backed by store. A nil store
// keeps the collection in memory only.
func NewCollection(store kv.Store, opts CollectionOptions) *Collection {
	c := &Collection{
		slot:     kv.NewSlot[persistedCards](store, CardsStoreName),
		pageSize: opts.PageSize,
		logger:   opts.Logger,
		hasMore:  true,
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Load restores persisted cards and marks the collection hydrated. Cards
// written by a mutation that ran before Load finished win over the stored
// copy. The collection is marked hydrated even when loading fails.
func (c *Collection) Load(ctx context.Context) error {
	defer c.hydration.MarkHydrated()
	doc, found, err := c.slot.Load(ctx)
	if err != nil {
		c.notify()
		return err
	}
	c.mu.Lock()
	if found && !c.touched {
		c.cards = dedupe(doc.Cards)
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Hydrated reports whether Load has finished.
func (c *Collection) Hydrated() bool {
	return c.hydration.Hydrated()
}

// Subscribe registers fn for every committed change.
func (c *Collection) Subscribe(fn func(Snapshot)) func() {
	return c.changes.Subscribe(fn)
}

// PageSize returns the configured page size.
func (c *Collection) PageSize() int {
	return c.pageSize
}

// Snapshot returns a copy of the current state.
func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Cards returns a copy of the cards in display order.
func (c *Collection) Cards() []recipeapi.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards)
}

// Card returns the card with id.
func (c *Collection) Card(id string) (recipeapi.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.cards[i], true
	}
	return recipeapi.Card{}, false
}

// Has reports whether a card with id is present.
func (c *Collection) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexLocked(id) >= 0
}

// FindByVideo returns the first card saved from videoID.
func (c *Collection) FindByVideo(videoID string) (recipeapi.Card, bool) {
	if videoID == "" {
		return recipeapi.Card{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, card := range c.cards {
		if card.VideoID == videoID {
			return card, true
		}
	}
	return recipeapi.Card{}, false
}

// ReplaceAll swaps in a freshly fetched first page. HasMore is true when the
// page was full.
func (c *Collection) ReplaceAll(cards []recipeapi.Card) {
	c.mutate(true, func() bool {
		c.cards = dedupe(cards)
		c.offset = len(cards)
		c.hasMore = len(cards) >= c.pageSize
		c.errMsg = ""
		return true
	})
}

// Append adds a further page, skipping ids already present. The cursor
// advances by the number of cards actually kept.
func (c *Collection) Append(cards []recipeapi.Card, hasMore bool) {
	c.mutate(true, func() bool {
		seen := make(map[string]struct{}, len(c.cards)+len(cards))
		for _, card := range c.cards {
			seen[card.CardID] = struct{}{}
		}
		for _, card := range cards {
			if _, dup := seen[card.CardID]; dup {
				continue
			}
			seen[card.CardID] = struct{}{}
			c.cards = append(c.cards, card)
		}
		c.offset = len(c.cards)
		c.hasMore = hasMore
		return true
	})
}

// Prepend inserts a newly saved card at the front and makes it active. It
// does nothing when the id is already present.
func (c *Collection) Prepend(card recipeapi.Card) bool {
	return c.mutate(true, func() bool {
		if c.indexLocked(card.CardID) >= 0 {
			return false
		}
		c.cards = slices.Insert(c.cards, 0, card)
		c.active = 0
		c.offset = len(c.cards)
		return true
	})
}

// Remove deletes the card with id and re-clamps the active index.
func (c *Collection) Remove(id string) bool {
	return c.mutate(true, func() bool {
		idx := c.indexLocked(id)
		if idx < 0 {
			return false
		}
		c.cards = slices.Delete(c.cards, idx, idx+1)
		c.active = Reclamp(c.active, idx, len(c.cards))
		return true
	})
}

// UpdateImage sets the image URL of the card with id in place. Missing ids
// are ignored.
func (c *Collection) UpdateImage(id, imageURL string) bool {
	return c.mutate(true, func() bool {
		idx := c.indexLocked(id)
		if idx < 0 {
			return false
		}
		c.cards[idx].ImageURL = imageURL
		return true
	})
}

// SetActiveIndex stores index as given. Callers keep it in range.
func (c *Collection) SetActiveIndex(index int) {
	c.mutate(false, func() bool {
		c.active = index
		return true
	})
}

// SetLoading flags a fetch in progress.
func (c *Collection) SetLoading(loading bool) {
	c.mutate(false, func() bool {
		c.loading = loading
		return true
	})
}

// SetError records the last fetch failure; "" clears it.
func (c *Collection) SetError(msg string) {
	c.mutate(false, func() bool {
		c.errMsg = msg
		return true
	})
}

// Reset clears the collection back to its initial state.
func (c *Collection) Reset() {
	c.mutate(true, func() bool {
		c.cards = nil
		c.offset = 0
		c.hasMore = true
		c.active = 0
		c.loading = false
		c.errMsg = ""
		return true
	})
}

// mutate applies fn under the lock; when fn reports a change the result is
// optionally persisted and then published.
func (c *Collection) mutate(persist bool, fn func() bool) bool {
	c.mu.Lock()
	changed := fn()
	if changed && persist {
		c.touched = true
	}
	c.mu.Unlock()
	if !changed {
		return false
	}
	if persist {
		c.persist()
	}
	c.notify()
	return true
}

func (c *Collection) notify() {
	c.changes.Notify(c.Snapshot())
}

// persist writes the latest cards. Saving is serialised and always reads the
// current state, so the last write reflects the last mutation.
func (c *Collection) persist() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	c.mu.Lock()
	doc := persistedCards{Cards: slices.Clone(c.cards)}
	c.mu.Unlock()
	if doc.Cards == nil {
		doc.Cards = []recipeapi.Card{}
	}
	if err := c.slot.Save(context.Background(), doc); err != nil {
		c.logger.Warn("persist gallery cards failed", "error", err)
	}
}

func (c *Collection) snapshotLocked() Snapshot {
	return Snapshot{
		Cards:       slices.Clone(c.cards),
		Offset:      c.offset,
		HasMore:     c.hasMore,
		ActiveIndex: c.active,
		Loading:     c.loading,
		Error:       c.errMsg,
	}
}

func (c *Collection) indexLocked(id string) int {
	return slices.IndexFunc(c.cards, func(card recipeapi.Card) bool { return card.CardID == id })
}

func dedupe(cards []recipeapi.Card) []recipeapi.Card {
	out := make([]recipeapi.Card, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		if _, dup := seen[card.CardID]; dup {
			continue
		}
		seen[card.CardID] = struct{}{}
		out = append(out, card)
	}
	return out
}
