package device

import (
	"context"
	"sync"

	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/recipeapi"
)

// CredentialsStoreName is the kv name of the API key, kept apart from the
// identity record.
const CredentialsStoreName = "credentials"

type credentialsDoc struct {
	APIKey string `json:"api_key"`
}

var _ recipeapi.CredentialSource = (*Credentials)(nil)

// Credentials holds the per-device API key.
type Credentials struct {
	slot kv.Slot[credentialsDoc]

	mu     sync.Mutex
	key    string
	loaded bool
}

// NewCredentials returns credentials backed by store.
func NewCredentials(store kv.Store) *Credentials {
	return &Credentials{slot: kv.NewSlot[credentialsDoc](store, CredentialsStoreName)}
}

// APIKey returns the stored key, or "" when none is stored.
func (c *Credentials) APIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.key, nil
	}
	doc, _, err := c.slot.Load(ctx)
	if err != nil {
		return "", err
	}
	c.key, c.loaded = doc.APIKey, true
	return c.key, nil
}

// SetAPIKey stores key.
func (c *Credentials) SetAPIKey(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.slot.Save(ctx, credentialsDoc{APIKey: key}); err != nil {
		return err
	}
	c.key, c.loaded = key, true
	return nil
}

// Clear forgets the stored key.
func (c *Credentials) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.loaded = "", true
	return c.slot.Clear(ctx)
}
