// Package settings holds the persisted terms-acceptance flag.
package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/state"
)

// ConsentStoreName is the kv name of the consent record.
const ConsentStoreName = "settings"

type consentDoc struct {
	HasAcceptedTerms bool `json:"has_accepted_terms"`
}

// Consent tracks whether the user accepted the terms. Until Load finishes
// the answer is unknown, and a prompt must not be shown.
type Consent struct {
	slot   kv.Slot[consentDoc]
	logger *slog.Logger

	mu       sync.Mutex
	accepted bool

	hydration state.Hydration
	changes   state.Subject[bool]
}

// NewConsent returns an unhydrated Consent backed by store.
func NewConsent(store kv.Store, logger *slog.Logger) *Consent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consent{slot: kv.NewSlot[consentDoc](store, ConsentStoreName), logger: logger}
}

// Load reads the stored flag. The store counts as hydrated afterwards even
// if reading failed, so a broken store asks for consent again.
func (c *Consent) Load(ctx context.Context) error {
	defer func() {
		c.hydration.MarkHydrated()
		c.changes.Notify(c.Accepted())
	}()
	doc, _, err := c.slot.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.accepted = c.accepted || doc.HasAcceptedTerms
	c.mu.Unlock()
	return nil
}

// Hydrated reports whether Load has finished.
func (c *Consent) Hydrated() bool {
	return c.hydration.Hydrated()
}

// Accepted reports the flag.
func (c *Consent) Accepted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// NeedsPrompt reports whether the consent prompt should be shown now.
func (c *Consent) NeedsPrompt() bool {
	return c.Hydrated() && !c.Accepted()
}

// Accept records acceptance.
func (c *Consent) Accept(ctx context.Context) error {
	c.mu.Lock()
	c.accepted = true
	c.mu.Unlock()
	err := c.slot.Save(ctx, consentDoc{HasAcceptedTerms: true})
	if err != nil {
		c.logger.Warn("persist consent failed", "error", err)
	}
	c.changes.Notify(true)
	return err
}

// Subscribe registers fn for changes of the flag.
func (c *Consent) Subscribe(fn func(accepted bool)) func() {
	return c.changes.Subscribe(fn)
}
