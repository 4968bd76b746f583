package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/settings"
)

// completedJobAPI finishes every job on the first poll.
type completedJobAPI struct {
	results *recipeapi.Results
}

func (f *completedJobAPI) SubmitExtraction(context.Context, string) (*recipeapi.ExtractResponse, error) {
	return &recipeapi.ExtractResponse{JobID: "job-1", Status: recipeapi.StatusQueued}, nil
}

func (f *completedJobAPI) JobStatus(context.Context, string) (*recipeapi.JobStatusResponse, error) {
	return &recipeapi.JobStatusResponse{Status: recipeapi.StatusCompleted, Progress: 1}, nil
}

func (f *completedJobAPI) JobResults(context.Context, string) (*recipeapi.Results, error) {
	return f.results, nil
}

type stubSwaps struct {
	mu   sync.Mutex
	reqs []recipeapi.SwapRequest
}

func (s *stubSwaps) SwapSuggestions(_ context.Context, req recipeapi.SwapRequest) (*recipeapi.SwapResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return &recipeapi.SwapResponse{OriginalIngredient: req.Ingredient}, nil
}

func pancakeResults() *recipeapi.Results {
	return &recipeapi.Results{
		VideoID:    "dQw4w9WgXcQ",
		RecipeName: "Pancakes",
		Ingredients: []recipeapi.Ingredient{
			{Name: "Flour", Category: "pantry", Quantity: "200", Unit: "g"},
			{Name: "Eggs", Category: "dairy", Quantity: "2"},
			{Name: "Milk", Category: "dairy", Quantity: "300", Unit: "ml"},
		},
		ShoppingList: recipeapi.ShoppingList{
			{Name: "pantry", Items: []string{"flour"}},
			{Name: "dairy", Items: []string{"eggs", "milk"}},
		},
		TotalIngredientCount: 3,
		ShownIngredientCount: 3,
	}
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	if opts.PrefsPath == "" {
		opts.PrefsPath = filepath.Join(t.TempDir(), "prefs.toml")
	}
	if opts.Clipboard == nil {
		opts.Clipboard = func(string) error { return nil }
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m, cmd
}

func TestConsentPromptBlocksUntilAccepted(t *testing.T) {
	ctx := context.Background()
	consent := settings.NewConsent(kv.NewMemoryStore(), nil)
	require.NoError(t, consent.Load(ctx))

	m := newTestModel(t, Options{Context: ctx, Consent: consent})
	assert.Contains(t, m.View(), "Before you start")

	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewExtract, m.currentView, "keys other than accept must not reach the views")

	m, cmd := press(t, m, "a")
	require.NotNil(t, cmd)
	msg := cmd()
	accepted, ok := msg.(consentAcceptedMsg)
	require.True(t, ok, "got %T", msg)
	require.NoError(t, accepted.err)
	assert.True(t, consent.Accepted())

	next, _ := m.Update(msg)
	m = next.(Model)
	assert.NotContains(t, m.View(), "Before you start")
}

func TestConsentPromptWaitsForHydration(t *testing.T) {
	consent := settings.NewConsent(kv.NewMemoryStore(), nil)
	m := newTestModel(t, Options{Consent: consent})
	assert.NotContains(t, m.View(), "Before you start")
}

func TestTabCyclesViews(t *testing.T) {
	m := newTestModel(t, Options{})
	require.Equal(t, ViewExtract, m.currentView)

	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewGallery, m.currentView)
	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewSettings, m.currentView)
	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewExtract, m.currentView)
	m, _ = press(t, m, "shift+tab")
	assert.Equal(t, ViewSettings, m.currentView)
}

func TestInvalidLinkShowsError(t *testing.T) {
	m := newTestModel(t, Options{})
	m.input.SetValue("https://example.com/watch")

	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.False(t, m.submitting)
	assert.NotEmpty(t, m.inputErr)
	assert.Contains(t, m.View(), m.inputErr)
}

func TestResultsChecklistAndShoppingList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := extraction.NewSession(&completedJobAPI{results: pancakeResults()}, extraction.SessionOptions{})
	var copied string
	m := newTestModel(t, Options{
		Context:   ctx,
		Session:   session,
		Clipboard: func(s string) error { copied = s; return nil },
	})

	_, err := session.Submit(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return session.Job().Results != nil }, 2*time.Second, 10*time.Millisecond)

	next, _ := m.Update(jobMsg(session.Job()))
	m = next.(Model)
	require.Equal(t, extraction.StatusCompleted, m.job.Status)
	assert.Contains(t, m.View(), "Pancakes")

	// Check the second ingredient.
	m, _ = press(t, m, "j", "space")
	assert.True(t, session.IsChecked("Eggs"))
	assert.False(t, session.IsChecked("Flour"))

	// The shopping list starts on the first item, skipping the header row.
	m, _ = press(t, m, "L")
	assert.True(t, m.results.shopping)
	rows := m.checkRows()
	require.NotEmpty(t, rows)
	assert.True(t, rows[0].header)
	assert.Equal(t, 1, m.results.cursor)

	m, cmd := press(t, m, "c")
	require.NotNil(t, cmd)
	msg := cmd()
	copiedItems, ok := msg.(copiedMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, 1, copiedItems.items)
	assert.Contains(t, copied, "Pancakes")
	assert.Contains(t, copied, "Eggs")
	assert.NotContains(t, copied, "Flour")

	// New recipe returns to the link input.
	m, _ = press(t, m, "n")
	assert.Equal(t, extraction.StatusIdle, m.job.Status)
	assert.True(t, m.inputFocused())
}

func TestResultsFetchErrorCanRetry(t *testing.T) {
	m := newTestModel(t, Options{})
	m.job = extraction.Job{ID: "job-9", Status: extraction.StatusCompleted}
	m.results = resultsState{jobID: "job-9", fetching: true}

	next, _ := m.Update(resultsMsg{jobID: "job-9", err: errors.New("boom")})
	m = next.(Model)
	assert.False(t, m.results.fetching)
	assert.NotEmpty(t, m.results.err)
	assert.Contains(t, m.View(), "Press r to try again")

	// Results for a job that is no longer live are ignored.
	next, _ = m.Update(resultsMsg{jobID: "job-1"})
	m = next.(Model)
	assert.NotEmpty(t, m.results.err)
}

func TestSwapPanelDropsStaleResponses(t *testing.T) {
	swaps := &stubSwaps{}
	m := newTestModel(t, Options{Swaps: swaps})
	m.job = extraction.Job{ID: "job-1", Status: extraction.StatusCompleted, Results: pancakeResults()}
	m.results = resultsState{jobID: "job-1"}

	m, cmd := press(t, m, "w")
	require.True(t, m.swapPanel.open)
	require.NotNil(t, cmd)
	first := cmd()

	// Toggling a filter supersedes the first request.
	m, cmd = press(t, m, "space")
	require.NotNil(t, cmd)
	second := cmd()
	assert.Equal(t, []string{"Vegan"}, m.swapPanel.selectedFilters())

	next, _ := m.Update(first)
	m = next.(Model)
	assert.True(t, m.swapPanel.loading, "stale response must be dropped")

	next, _ = m.Update(second)
	m = next.(Model)
	assert.False(t, m.swapPanel.loading)
	assert.Contains(t, m.View(), "No substitutes found")

	swaps.mu.Lock()
	defer swaps.mu.Unlock()
	require.Len(t, swaps.reqs, 2)
	assert.Equal(t, "Flour", swaps.reqs[0].Ingredient)
	require.NotNil(t, swaps.reqs[0].Quantity)
	assert.InDelta(t, 200, *swaps.reqs[0].Quantity, 0.001)
	assert.Equal(t, []string{"Vegan"}, swaps.reqs[1].DietaryFilters)
}

func newTestGallery(t *testing.T, ids ...string) *gallery.Service {
	t.Helper()
	store := kv.NewMemoryStore()
	cards := gallery.NewCollection(store, gallery.CollectionOptions{})
	var list []recipeapi.Card
	for _, id := range ids {
		list = append(list, recipeapi.Card{CardID: id, RecipeName: "Recipe " + id})
	}
	cards.ReplaceAll(list)
	return gallery.NewService(nil, cards, gallery.NewFavorites(store, nil), nil, gallery.ServiceOptions{})
}

func TestGalleryCarouselAndFavoritesFilter(t *testing.T) {
	svc := newTestGallery(t, "a", "b", "c")
	m := newTestModel(t, Options{Gallery: svc})
	m.galleryFetched = true

	m, _ = press(t, m, "tab")
	require.Equal(t, ViewGallery, m.currentView)
	assert.Contains(t, m.View(), "Recipe a")

	m, _ = press(t, m, "l")
	assert.Equal(t, 1, m.activeIndex())
	assert.Equal(t, 1, svc.Cards().Snapshot().ActiveIndex)
	assert.Contains(t, m.View(), "Recipe b")

	m, _ = press(t, m, "f", "l", "f")
	assert.ElementsMatch(t, []string{"b", "c"}, svc.Favorites().IDs())

	m, _ = press(t, m, "F")
	require.True(t, m.favoritesOnly)
	assert.Len(t, m.visibleCards(), 2)
	assert.Equal(t, 0, m.activeIndex())
	assert.Contains(t, m.View(), "Gallery · Favorites")

	// Unfavoriting the last visible card keeps the index in range.
	m, _ = press(t, m, "l", "f")
	assert.Len(t, m.visibleCards(), 1)
	assert.Equal(t, 0, m.activeIndex())
	assert.Contains(t, m.View(), "Recipe b")
}

func TestGalleryDeleteNeedsConfirmation(t *testing.T) {
	svc := newTestGallery(t, "a", "b")
	m := newTestModel(t, Options{Gallery: svc})
	m.galleryFetched = true
	m, _ = press(t, m, "tab")

	m, cmd := press(t, m, "d")
	assert.Nil(t, cmd)
	assert.Equal(t, "a", m.confirmDelete)
	assert.Contains(t, m.View(), "Delete this recipe?")

	m, cmd = press(t, m, "n")
	assert.Nil(t, cmd)
	assert.Empty(t, m.confirmDelete)

	_, cmd = press(t, m, "d", "y")
	assert.NotNil(t, cmd)
}

func TestHelpOverlayToggles(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = press(t, m, "tab", "?")
	require.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m, _ = press(t, m, "x")
	assert.False(t, m.showHelp)
}

func TestThemeCyclePersistsPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := newTestModel(t, Options{PrefsPath: path})
	m, _ = press(t, m, "tab", "T")
	assert.Equal(t, "Kanagawa", m.theme.Name)
	assert.Contains(t, m.renderCommandBar(), "Kanagawa")
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.4, 0.4},
		{1, 1},
		{45, 0.45},
		{100, 1},
		{250, 1},
		{-1, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, progressFraction(tt.in), 1e-9, "progressFraction(%v)", tt.in)
	}
}

func TestHeaderShowsPlanAndView(t *testing.T) {
	m := newTestModel(t, Options{})
	header := m.renderHeader()
	assert.Contains(t, header, "larder")
	assert.Contains(t, header, "[Extract]")
	assert.Contains(t, header, "offline")

	m.identity.IsRegistered = true
	m.identity.IsPremium = true
	assert.Contains(t, m.renderHeader(), "PREMIUM")
	assert.True(t, strings.Contains(m.renderCommandBar(), "Extract"))
}
