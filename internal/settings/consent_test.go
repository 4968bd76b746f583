package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/kv"
)

func TestConsentPromptWaitsForHydration(t *testing.T) {
	c := NewConsent(kv.NewMemoryStore(), nil)
	assert.False(t, c.NeedsPrompt(), "unknown state must not prompt")

	require.NoError(t, c.Load(context.Background()))
	assert.True(t, c.Hydrated())
	assert.True(t, c.NeedsPrompt())
}

func TestConsentAcceptPersists(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	first := NewConsent(store, nil)
	require.NoError(t, first.Load(ctx))
	require.NoError(t, first.Accept(ctx))
	assert.False(t, first.NeedsPrompt())

	second := NewConsent(store, nil)
	require.NoError(t, second.Load(ctx))
	assert.True(t, second.Accepted())
	assert.False(t, second.NeedsPrompt())
}

func TestConsentCorruptStoreStillHydrates(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Put(ctx, ConsentStoreName, []byte("nope")))

	c := NewConsent(store, nil)
	var notified []bool
	defer c.Subscribe(func(v bool) { notified = append(notified, v) })()

	require.Error(t, c.Load(ctx))
	assert.True(t, c.NeedsPrompt())
	assert.Equal(t, []bool{false}, notified)
}
