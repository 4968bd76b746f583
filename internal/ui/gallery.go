package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/recipeapi"
)

// visibleCards returns the cards the carousel shows under the current filter.
func (m Model) visibleCards() []recipeapi.Card {
	if !m.favoritesOnly {
		return m.cards.Cards
	}
	favs := make(map[string]struct{}, len(m.favoriteIDs))
	for _, id := range m.favoriteIDs {
		favs[id] = struct{}{}
	}
	var out []recipeapi.Card
	for _, c := range m.cards.Cards {
		if _, ok := favs[c.CardID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// activeIndex is the carousel position in the visible cards. The unfiltered
// carousel uses the collection's own index; the favorites view keeps its own.
func (m Model) activeIndex() int {
	n := len(m.visibleCards())
	if m.favoritesOnly {
		return gallery.Clamp(m.favIndex, n)
	}
	return gallery.Clamp(m.cards.ActiveIndex, n)
}

func (m *Model) setActiveIndex(i int) {
	if m.favoritesOnly {
		m.favIndex = i
		return
	}
	m.cards.ActiveIndex = i
	if m.gallery != nil {
		m.gallery.Cards().SetActiveIndex(i)
	}
}

func (m Model) isFavorite(id string) bool {
	for _, f := range m.favoriteIDs {
		if f == id {
			return true
		}
	}
	return false
}

// handleGalleryKey processes keys for the gallery carousel.
func (m Model) handleGalleryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.gallery == nil {
		return m, nil
	}
	cards := m.visibleCards()
	idx := m.activeIndex()

	if m.confirmDelete != "" {
		id := m.confirmDelete
		m.confirmDelete = ""
		if msg.String() == "y" || key.Matches(msg, m.keys.Delete) {
			return m, deleteCardCmd(m.ctx, m.gallery, id, idx, len(cards))
		}
		m.setFlash("Delete cancelled", false)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Left):
		if idx > 0 {
			m.setActiveIndex(idx - 1)
		}
	case key.Matches(msg, m.keys.Right):
		if idx < len(cards)-1 {
			m.setActiveIndex(idx + 1)
			return m, nil
		}
		// Reaching the end pulls the next page, like scrolling the carousel.
		if !m.favoritesOnly && m.cards.HasMore && !m.cards.Loading {
			return m, loadMoreCmd(m.ctx, m.gallery)
		}
	case key.Matches(msg, m.keys.Favorite):
		if len(cards) == 0 {
			return m, nil
		}
		on, err := m.gallery.ToggleFavorite(cards[idx].CardID)
		if err != nil {
			m.setFlash(err.Error(), true)
			return m, nil
		}
		m.favoriteIDs = m.gallery.Favorites().IDs()
		if m.favoritesOnly && !on {
			m.favIndex = gallery.Reclamp(idx, idx, len(m.visibleCards()))
		}
	case key.Matches(msg, m.keys.FavoritesOnly):
		m.favoritesOnly = !m.favoritesOnly
		m.favIndex = 0
		m.savePrefs()
	case key.Matches(msg, m.keys.Delete):
		if len(cards) == 0 {
			return m, nil
		}
		m.confirmDelete = cards[idx].CardID
	case key.Matches(msg, m.keys.LoadMore):
		if m.cards.HasMore && !m.cards.Loading {
			return m, loadMoreCmd(m.ctx, m.gallery)
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, refreshGalleryCmd(m.ctx, m.gallery)
	case key.Matches(msg, m.keys.Upgrade):
		if !m.identity.IsPremium {
			m.modal = newPaywallModal(m.ctx, m.registrar, m.device)
		}
	}
	return m, nil
}

// handleGalleryOp handles the end of a gallery request.
func (m Model) handleGalleryOp(msg galleryOpMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setFlash(recipeapi.Message(msg.err), true)
		return m, nil
	}
	if m.gallery != nil {
		m.cards = m.gallery.Cards().Snapshot()
		m.favoriteIDs = m.gallery.Favorites().IDs()
	}
	if msg.op == opDelete {
		if m.favoritesOnly {
			m.favIndex = gallery.Reclamp(m.favIndex, msg.viewIndex, max(0, msg.viewLen-1))
		}
		m.setFlash("Recipe deleted", false)
	}
	return m, nil
}

func (m Model) renderGallery() string {
	styles := m.theme.Styles()
	width := min(m.width, LayoutMaxContentWidth)
	cards := m.visibleCards()

	title := "Gallery"
	if m.favoritesOnly {
		title = "Gallery · Favorites"
	}

	if len(cards) == 0 {
		var body string
		switch {
		case m.cards.Loading:
			body = m.spinner.View() + " " + styles.MutedText.Render("Loading your recipes...")
		case m.cards.Error != "":
			body = styles.DangerText.Render(m.cards.Error) + "\n" + styles.MutedText.Render("Press r to retry.")
		case m.favoritesOnly:
			body = styles.MutedText.Render("No favorites yet. Press F to show all recipes.")
		default:
			body = styles.Text.Render("No saved recipes yet.") + "\n" +
				styles.MutedText.Render("Extract a recipe and press s to save it here.")
		}
		return m.renderBox(title, body, width, true)
	}

	idx := m.activeIndex()
	card := cards[idx]

	var b strings.Builder
	pos := fmt.Sprintf("‹ %d / %d ›", idx+1, len(cards))
	if m.cards.HasMore && !m.favoritesOnly {
		pos += "+"
	}
	b.WriteString(styles.MutedText.Render(pos))
	if m.isFavorite(card.CardID) {
		b.WriteString("  ")
		b.WriteString(styles.WarningText.Render("♥ favorite"))
	}
	if m.cards.Loading {
		b.WriteString("  ")
		b.WriteString(m.spinner.View())
	}
	b.WriteString("\n\n")

	name := strings.TrimSpace(card.RecipeName)
	if name == "" {
		name = gallery.DefaultRecipeName
	}
	b.WriteString(styles.Text.Bold(true).Render(name))
	b.WriteString("\n")
	if card.ImageURL != "" {
		b.WriteString(styles.InfoText.Render(truncateMiddle(card.ImageURL, width-6)))
	} else {
		b.WriteString(styles.FaintText.Render("[ image on the way ]"))
	}
	b.WriteString("\n\n")

	b.WriteString(styles.AccentText.Bold(true).Render("Ingredients"))
	b.WriteString("\n")
	for _, ing := range card.Ingredients {
		line := "• " + extraction.PrettyName(ing.Name)
		if q := formatQuantity(ing); q != "" {
			line = padRight(line, 30) + " " + q
		}
		b.WriteString(styles.Text.Render(truncate(line, width-6)))
		b.WriteString("\n")
	}
	if card.IsTruncated {
		hidden := card.TotalIngredientCount - card.ShownIngredientCount
		if hidden > 0 {
			b.WriteString(styles.WarningText.Render(fmt.Sprintf("%s hidden in free version", pluralize(hidden, "ingredient"))))
			b.WriteString("\n")
		}
	}
	if !m.identity.IsPremium {
		b.WriteString(styles.AccentText.Render("See full recipe card: press u to upgrade"))
		b.WriteString("\n")
	}

	if m.confirmDelete != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render("Delete this recipe? y/d to confirm, any other key to cancel"))
	}

	return m.renderBox(title, strings.TrimRight(b.String(), "\n"), width, true)
}

func formatQuantity(ing recipeapi.GalleryIngredient) string {
	var parts []string
	if ing.Quantity != nil {
		parts = append(parts, trimFloat(*ing.Quantity))
	}
	if ing.Unit != nil && strings.TrimSpace(*ing.Unit) != "" {
		parts = append(parts, strings.TrimSpace(*ing.Unit))
	}
	return strings.Join(parts, " ")
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
