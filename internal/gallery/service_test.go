package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/videometa"
)

// fakeGallery is an in-memory server-side gallery.
type fakeGallery struct {
	mu        sync.Mutex
	server    []recipeapi.Card
	saved     []recipeapi.SaveCardRequest
	generated []string
	deleteErr error
	saveErr   error
	listCalls [][2]int
}

func (f *fakeGallery) ListCards(_ context.Context, limit, offset int) (*recipeapi.ListCardsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, [2]int{limit, offset})
	end := min(offset+limit, len(f.server))
	var page []recipeapi.Card
	if offset < len(f.server) {
		page = append(page, f.server[offset:end]...)
	}
	return &recipeapi.ListCardsResponse{Cards: page, Limit: limit, Offset: offset}, nil
}

func (f *fakeGallery) SaveCard(_ context.Context, req recipeapi.SaveCardRequest) (*recipeapi.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, req)
	card := recipeapi.Card{
		CardID:      fmt.Sprintf("saved-%d", len(f.saved)),
		RecipeName:  req.RecipeName,
		VideoID:     req.VideoID,
		Ingredients: req.Ingredients,
	}
	f.server = append([]recipeapi.Card{card}, f.server...)
	return &card, nil
}

func (f *fakeGallery) GetCard(_ context.Context, id string) (*recipeapi.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.server {
		if c.CardID == id {
			return &c, nil
		}
	}
	return nil, &recipeapi.APIError{StatusCode: 404, Message: "not found"}
}

func (f *fakeGallery) GenerateImage(_ context.Context, id string) (*recipeapi.GenerateImageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, id)
	return &recipeapi.GenerateImageResponse{CardID: id}, nil
}

func (f *fakeGallery) DeleteCard(_ context.Context, id string) (*recipeapi.DeleteCardResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &recipeapi.DeleteCardResponse{Deleted: true, CardID: id}, nil
}

func (f *fakeGallery) Generated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.generated...)
}

type staticMeta struct {
	meta videometa.Meta
	err  error
}

func (s staticMeta) Lookup(context.Context, string) (videometa.Meta, error) {
	return s.meta, s.err
}

func newService(api *fakeGallery, pageSize int, meta MetadataSource) *Service {
	col := NewCollection(nil, CollectionOptions{PageSize: pageSize})
	bf := NewBackfiller(api, col, BackfillOptions{Clock: clockwork.NewFakeClock()})
	return NewService(api, col, NewFavorites(nil, nil), bf, ServiceOptions{Metadata: meta})
}

func withImages(cs []recipeapi.Card) []recipeapi.Card {
	for i := range cs {
		cs[i].ImageURL = "https://img/" + cs[i].CardID
	}
	return cs
}

func TestServiceRefreshAndLoadMore(t *testing.T) {
	api := &fakeGallery{server: withImages(cards("a", "b", "c", "d", "e"))}
	svc := newService(api, 2, nil)
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	assert.Equal(t, []string{"a", "b"}, ids(svc.Cards().Cards()))
	assert.True(t, svc.Cards().Snapshot().HasMore)

	require.NoError(t, svc.LoadMore(ctx))
	require.NoError(t, svc.LoadMore(ctx))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(svc.Cards().Cards()))
	assert.False(t, svc.Cards().Snapshot().HasMore)

	require.NoError(t, svc.LoadMore(ctx))
	assert.Equal(t, [][2]int{{2, 0}, {2, 2}, {2, 4}}, api.listCalls)
	assert.Empty(t, svc.Backfiller().Pending())
}

func TestServiceRefreshWatchesCardsWithoutImages(t *testing.T) {
	list := withImages(cards("a", "b"))
	list[1].ImageURL = ""
	api := &fakeGallery{server: list}
	svc := newService(api, 20, nil)

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, []string{"b"}, svc.Backfiller().Pending())
	svc.Backfiller().StopAll()
}

func TestServiceSaveBuildsRequestAndTriggersImage(t *testing.T) {
	api := &fakeGallery{}
	svc := newService(api, 20, staticMeta{meta: videometa.Meta{Title: "Carbonara", Channel: "Pasta Chef"}})
	results := &recipeapi.Results{
		VideoID: "abc123",
		Ingredients: []recipeapi.Ingredient{
			{Name: "Olive  Oil", Quantity: "2", Unit: "tbsp", Category: "pantry"},
			{Name: "Salt", Category: "pantry"},
		},
		ShoppingList: recipeapi.ShoppingList{{Name: "pantry", Items: []string{"olive_oil", "salt"}}},
	}

	card, err := svc.Save(context.Background(), results, "https://youtu.be/abc123")
	require.NoError(t, err)
	defer svc.Backfiller().StopAll()

	require.Len(t, api.saved, 1)
	req := api.saved[0]
	assert.Equal(t, DefaultRecipeName, req.RecipeName)
	assert.True(t, req.GenerateImage)
	assert.Equal(t, "Carbonara", req.VideoTitle)
	assert.Equal(t, "Pasta Chef", req.Channel)
	require.Len(t, req.Ingredients, 2)
	assert.Equal(t, "olive_oil", req.Ingredients[0].CanonicalName)
	assert.Equal(t, "2 tbsp Olive  Oil", req.Ingredients[0].RawText)
	require.NotNil(t, req.Ingredients[0].Quantity)
	assert.InDelta(t, 2.0, *req.Ingredients[0].Quantity, 1e-9)
	assert.Nil(t, req.Ingredients[1].Quantity)
	assert.Nil(t, req.Ingredients[1].Unit)
	assert.Equal(t, "Salt", req.Ingredients[1].RawText)

	snap := svc.Cards().Snapshot()
	assert.Equal(t, []string{card.CardID}, ids(snap.Cards))
	assert.Zero(t, snap.ActiveIndex)
	assert.Equal(t, []string{card.CardID}, svc.Backfiller().Pending())
	assert.Eventually(t, func() bool { return len(api.Generated()) == 1 }, 5*time.Second, 5*time.Millisecond)
}

// slowImageGallery holds GenerateImage until release is closed.
type slowImageGallery struct {
	*fakeGallery
	release chan struct{}
}

func (s *slowImageGallery) GenerateImage(ctx context.Context, id string) (*recipeapi.GenerateImageResponse, error) {
	<-s.release
	return s.fakeGallery.GenerateImage(ctx, id)
}

func TestServiceWaitJoinsImageTrigger(t *testing.T) {
	api := &slowImageGallery{fakeGallery: &fakeGallery{}, release: make(chan struct{})}
	col := NewCollection(nil, CollectionOptions{})
	bf := NewBackfiller(api, col, BackfillOptions{Clock: clockwork.NewFakeClock()})
	svc := NewService(api, col, NewFavorites(nil, nil), bf, ServiceOptions{})
	defer bf.StopAll()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Save(ctx, &recipeapi.Results{VideoID: "abc123"}, "")
	require.NoError(t, err)
	cancel()

	waited := make(chan struct{})
	go func() {
		svc.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned before the image trigger finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(api.release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}
	assert.Equal(t, []string{"saved-1"}, api.Generated())
}

func TestServiceSaveIsIdempotentByVideo(t *testing.T) {
	api := &fakeGallery{}
	svc := newService(api, 20, nil)
	results := &recipeapi.Results{VideoID: "abc123", RecipeName: "Carbonara"}
	ctx := context.Background()

	first, err := svc.Save(ctx, results, "")
	require.NoError(t, err)
	again, err := svc.Save(ctx, results, "")
	require.ErrorIs(t, err, ErrAlreadySaved)
	assert.Equal(t, first.CardID, again.CardID)
	assert.Len(t, api.saved, 1)
	assert.Equal(t, 1, svc.Cards().Snapshot().Len())
	svc.Backfiller().StopAll()
}

func TestServiceSaveFailureLeavesStoresUntouched(t *testing.T) {
	api := &fakeGallery{saveErr: &recipeapi.APIError{StatusCode: 500, Message: "db down"}}
	svc := newService(api, 20, staticMeta{err: errors.New("offline")})

	_, err := svc.Save(context.Background(), &recipeapi.Results{VideoID: "abc123"}, "https://youtu.be/abc123")
	require.Error(t, err)
	assert.Zero(t, svc.Cards().Snapshot().Len())

	api.saveErr = nil
	_, err = svc.Save(context.Background(), &recipeapi.Results{VideoID: "abc123"}, "")
	require.NoError(t, err, "save can be retried")
	svc.Backfiller().StopAll()
}

func TestServiceDeleteKeepsFavoritesConsistent(t *testing.T) {
	list := withImages(cards("a", "b", "c"))
	list[1].ImageURL = ""
	api := &fakeGallery{server: list}
	svc := newService(api, 20, nil)
	ctx := context.Background()
	require.NoError(t, svc.Refresh(ctx))

	on, err := svc.ToggleFavorite("b")
	require.NoError(t, err)
	require.True(t, on)
	svc.Cards().SetActiveIndex(2)

	require.NoError(t, svc.Delete(ctx, "b"))
	assert.False(t, svc.Favorites().IsFavorite("b"))
	assert.False(t, svc.Cards().Has("b"))
	assert.Empty(t, svc.Backfiller().Pending())
	assert.Equal(t, 1, svc.Cards().Snapshot().ActiveIndex)

	for _, id := range svc.Favorites().IDs() {
		assert.True(t, svc.Cards().Has(id), "favorite %s has no card", id)
	}
}

func TestServiceDeleteFailureIsRetryable(t *testing.T) {
	api := &fakeGallery{server: withImages(cards("a")), deleteErr: errors.New("timeout")}
	svc := newService(api, 20, nil)
	ctx := context.Background()
	require.NoError(t, svc.Refresh(ctx))
	_, _ = svc.ToggleFavorite("a")

	require.Error(t, svc.Delete(ctx, "a"))
	assert.True(t, svc.Cards().Has("a"))
	assert.True(t, svc.Favorites().IsFavorite("a"))

	api.deleteErr = nil
	require.NoError(t, svc.Delete(ctx, "a"))
	assert.False(t, svc.Favorites().IsFavorite("a"))
}

func TestServiceToggleFavoriteUnknownCard(t *testing.T) {
	svc := newService(&fakeGallery{}, 20, nil)
	_, err := svc.ToggleFavorite("ghost")
	require.Error(t, err)
}

func TestServiceViewFavoritesOnly(t *testing.T) {
	api := &fakeGallery{server: withImages(cards("a", "b", "c"))}
	svc := newService(api, 20, nil)
	require.NoError(t, svc.Refresh(context.Background()))
	_, _ = svc.ToggleFavorite("c")
	_, _ = svc.ToggleFavorite("a")

	assert.Equal(t, []string{"a", "b", "c"}, ids(svc.View(false)))
	assert.Equal(t, []string{"a", "c"}, ids(svc.View(true)))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"2", ptr(2)},
		{"1.5", ptr(1.5)},
		{"1 1/2", ptr(1)},
		{".5 cup", ptr(0.5)},
		{"0", nil},
		{"a pinch", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseQuantity(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func ptr(v float64) *float64 { return &v }
