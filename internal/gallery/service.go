package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/videometa"
)

// DefaultRecipeName names cards whose results carry no recipe name.
const DefaultRecipeName = "Untitled Recipe"

var (
	// ErrAlreadySaved is returned by Save when a card for the same video is
	// already in the collection.
	ErrAlreadySaved = errors.New("recipe already saved")
	// ErrSaveInProgress is returned by Save while another save is running.
	ErrSaveInProgress = errors.New("save already in progress")
)

// MetadataSource looks up the title and channel of a video page.
type MetadataSource interface {
	Lookup(ctx context.Context, pageURL string) (videometa.Meta, error)
}

// ServiceOptions configure a Service.
type ServiceOptions struct {
	Metadata MetadataSource
	Logger   *slog.Logger
}

// Service runs the user-facing gallery flows against the server and keeps
// the local stores consistent: deleting a card also drops its favorite and
// stops its image back-fill.
type Service struct {
	api       recipeapi.GalleryAPI
	cards     *Collection
	favorites *Favorites
	backfill  *Backfiller
	meta      MetadataSource
	logger    *slog.Logger

	saving   sync.Mutex
	triggers sync.WaitGroup
}

// NewService wires the gallery stores to api.
func NewService(api recipeapi.GalleryAPI, cards *Collection, favorites *Favorites, backfill *Backfiller, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:       api,
		cards:     cards,
		favorites: favorites,
		backfill:  backfill,
		meta:      opts.Metadata,
		logger:    logger,
	}
}

// Cards returns the collection.
func (s *Service) Cards() *Collection {
	return s.cards
}

// Favorites returns the favorites overlay.
func (s *Service) Favorites() *Favorites {
	return s.favorites
}

// Backfiller returns the image back-fill loop manager.
func (s *Service) Backfiller() *Backfiller {
	return s.backfill
}

// Refresh replaces the collection with the first page from the server and
// starts back-fill for cards without images. ctx also bounds the back-fill
// loops.
func (s *Service) Refresh(ctx context.Context) error {
	s.cards.SetLoading(true)
	defer s.cards.SetLoading(false)

	resp, err := s.api.ListCards(ctx, s.cards.PageSize(), 0)
	if err != nil {
		s.cards.SetError(recipeapi.Message(err))
		return fmt.Errorf("list cards: %w", err)
	}
	s.cards.ReplaceAll(resp.Cards)
	s.watchMissing(ctx, resp.Cards)
	return nil
}

// LoadMore appends the next page. It does nothing when the server has no
// more cards or a fetch is already running.
func (s *Service) LoadMore(ctx context.Context) error {
	snap := s.cards.Snapshot()
	if !snap.HasMore || snap.Loading {
		return nil
	}
	s.cards.SetLoading(true)
	defer s.cards.SetLoading(false)

	limit := s.cards.PageSize()
	resp, err := s.api.ListCards(ctx, limit, snap.Offset)
	if err != nil {
		s.cards.SetError(recipeapi.Message(err))
		return fmt.Errorf("list cards: %w", err)
	}
	s.cards.Append(resp.Cards, len(resp.Cards) >= limit)
	s.watchMissing(ctx, resp.Cards)
	return nil
}

// Save stores results as a gallery card and puts it at the front of the
// collection. A video that is already saved is not posted again. When the
// server returns a card without an image, image generation is triggered and
// a back-fill loop is started; failures of either are only logged.
func (s *Service) Save(ctx context.Context, results *recipeapi.Results, sourceURL string) (recipeapi.Card, error) {
	if results == nil {
		return recipeapi.Card{}, errors.New("save: no results")
	}
	if existing, ok := s.cards.FindByVideo(results.VideoID); ok {
		return existing, ErrAlreadySaved
	}
	if !s.saving.TryLock() {
		return recipeapi.Card{}, ErrSaveInProgress
	}
	defer s.saving.Unlock()

	req := BuildSaveRequest(results)
	if s.meta != nil && sourceURL != "" {
		meta, err := s.meta.Lookup(ctx, sourceURL)
		if err != nil {
			s.logger.Debug("video metadata lookup failed", "url", sourceURL, "error", err)
		} else {
			req.VideoTitle = meta.Title
			req.Channel = meta.Channel
		}
	}

	card, err := s.api.SaveCard(ctx, req)
	if err != nil {
		return recipeapi.Card{}, fmt.Errorf("save card: %w", err)
	}
	s.cards.Prepend(*card)
	s.logger.Info("recipe saved", "card_id", card.CardID, "recipe", card.RecipeName)

	if card.ImageURL == "" {
		id := card.CardID
		bg := context.WithoutCancel(ctx)
		s.triggers.Add(1)
		go func() {
			defer s.triggers.Done()
			if _, err := s.api.GenerateImage(bg, id); err != nil {
				s.logger.Debug("image generation trigger failed", "card_id", id, "error", err)
			}
		}()
		s.backfill.Watch(ctx, id)
	}
	return *card, nil
}

// Wait blocks until every image generation trigger started by Save has
// returned.
func (s *Service) Wait() {
	s.triggers.Wait()
}

// Delete removes cardID on the server, then from the collection and the
// favorites, and stops its back-fill. On error the local stores are left
// untouched so the user can retry.
func (s *Service) Delete(ctx context.Context, cardID string) error {
	if _, err := s.api.DeleteCard(ctx, cardID); err != nil {
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	s.cards.Remove(cardID)
	s.favorites.Remove(cardID)
	s.backfill.Stop(cardID)
	s.logger.Info("recipe deleted", "card_id", cardID)
	return nil
}

// ToggleFavorite flips the favorite state of a card in the collection.
func (s *Service) ToggleFavorite(cardID string) (bool, error) {
	if !s.cards.Has(cardID) {
		return false, fmt.Errorf("card %s not in gallery", cardID)
	}
	return s.favorites.Toggle(cardID), nil
}

// View returns the cards to display: all of them, or only favorites.
func (s *Service) View(favoritesOnly bool) []recipeapi.Card {
	cards := s.cards.Cards()
	if !favoritesOnly {
		return cards
	}
	return s.favorites.Filter(cards)
}

func (s *Service) watchMissing(ctx context.Context, cards []recipeapi.Card) {
	for _, card := range cards {
		if card.ImageURL == "" {
			s.backfill.Watch(ctx, card.CardID)
		}
	}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// BuildSaveRequest converts extraction results into a gallery save request.
func BuildSaveRequest(results *recipeapi.Results) recipeapi.SaveCardRequest {
	name := results.RecipeName
	if name == "" {
		name = DefaultRecipeName
	}
	ingredients := make([]recipeapi.GalleryIngredient, 0, len(results.Ingredients))
	for _, ing := range results.Ingredients {
		ingredients = append(ingredients, galleryIngredient(ing))
	}
	return recipeapi.SaveCardRequest{
		RecipeName:    name,
		VideoID:       results.VideoID,
		Ingredients:   ingredients,
		Instructions:  results.Instructions,
		ShoppingList:  results.ShoppingList,
		GenerateImage: true,
	}
}

func galleryIngredient(ing recipeapi.Ingredient) recipeapi.GalleryIngredient {
	out := recipeapi.GalleryIngredient{
		Name:          ing.Name,
		CanonicalName: whitespaceRun.ReplaceAllString(strings.ToLower(ing.Name), "_"),
		Quantity:      parseQuantity(ing.Quantity),
		Category:      ing.Category,
	}
	if ing.Unit != "" {
		unit := ing.Unit
		out.Unit = &unit
	}
	var raw []string
	for _, part := range []string{ing.Quantity, ing.Unit, ing.Name} {
		if part != "" {
			raw = append(raw, part)
		}
	}
	out.RawText = strings.Join(raw, " ")
	return out
}

// parseQuantity reads the leading number of a quantity such as "1.5" or
// "2 cups". Zero and unparsable quantities yield nil.
func parseQuantity(raw string) *float64 {
	m := leadingNumber.FindString(strings.TrimSpace(raw))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
