package gallery

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/larder/internal/metrics"
	"github.com/five82/larder/internal/recipeapi"
)

const (
	// DefaultImageInterval is the gap between image checks for one card.
	DefaultImageInterval = 3 * time.Second
	// DefaultImageAttempts is how many times a card is re-fetched before
	// giving up.
	DefaultImageAttempts = 30
)

// CardFetcher re-reads a single card.
type CardFetcher interface {
	GetCard(ctx context.Context, cardID string) (*recipeapi.Card, error)
}

// ImageTarget receives filled-in image URLs.
type ImageTarget interface {
	Has(cardID string) bool
	UpdateImage(cardID, imageURL string) bool
}

// BackfillOptions tune a Backfiller. Zero values use the defaults.
type BackfillOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

// Backfiller polls cards that were saved without an image until the image
// URL appears. Each card has at most one loop; loops for different cards run
// independently. Fetch errors are logged and retried on the next tick.
type Backfiller struct {
	source      CardFetcher
	target      ImageTarget
	interval    time.Duration
	maxAttempts int
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     metrics.Recorder

	mu      sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
}

// NewBackfiller builds a Backfiller that reads from source and writes to
// target.
func NewBackfiller(source CardFetcher, target ImageTarget, opts BackfillOptions) *Backfiller {
	b := &Backfiller{
		source:      source,
		target:      target,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     metrics.OrNoop(opts.Metrics),
		watches:     make(map[string]*watch),
	}
	if b.interval <= 0 {
		b.interval = DefaultImageInterval
	}
	if b.maxAttempts <= 0 {
		b.maxAttempts = DefaultImageAttempts
	}
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Watch starts polling cardID. It returns false when cardID is already being
// watched. ctx bounds the loop.
func (b *Backfiller) Watch(ctx context.Context, cardID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watches[cardID]; ok {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w := &watch{cancel: cancel}
	b.watches[cardID] = w
	b.wg.Add(1)
	go b.loop(loopCtx, cardID, w)
	return true
}

// Stop ends the loop for cardID, if any.
func (b *Backfiller) Stop(cardID string) {
	b.mu.Lock()
	w, ok := b.watches[cardID]
	delete(b.watches, cardID)
	b.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// StopAll ends every loop and waits for them to exit.
func (b *Backfiller) StopAll() {
	b.mu.Lock()
	for id, w := range b.watches {
		w.cancel()
		delete(b.watches, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// Wait blocks until every loop has exited.
func (b *Backfiller) Wait() {
	b.wg.Wait()
}

// Pending returns the ids currently being watched, sorted.
func (b *Backfiller) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.watches))
	for id := range b.watches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Backfiller) loop(ctx context.Context, cardID string, w *watch) {
	defer b.wg.Done()
	defer b.release(cardID, w)
	logger := b.logger.With("card_id", cardID)

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		timer := b.clock.NewTimer(b.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if !b.target.Has(cardID) {
			logger.Debug("image backfill target gone")
			b.metrics.IncBackfill(metrics.BackfillGone)
			return
		}
		card, err := b.source.GetCard(ctx, cardID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Debug("image backfill fetch failed", "attempt", attempt, "error", err)
			continue
		}
		if card.ImageURL == "" {
			continue
		}
		if b.target.UpdateImage(cardID, card.ImageURL) {
			logger.Debug("image backfilled", "attempt", attempt)
			b.metrics.IncBackfill(metrics.BackfillFilled)
		} else {
			b.metrics.IncBackfill(metrics.BackfillGone)
		}
		return
	}
	logger.Debug("image backfill gave up", "attempts", b.maxAttempts)
	b.metrics.IncBackfill(metrics.BackfillExhausted)
}

// release forgets cardID if w is still the registered loop for it.
func (b *Backfiller) release(cardID string, w *watch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watches[cardID] == w {
		delete(b.watches, cardID)
	}
	w.cancel()
}

type watch struct {
	cancel context.CancelFunc
}
