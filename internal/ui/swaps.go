package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/larder/internal/recipeapi"
)

// swapState is the ingredient substitution panel on the results screen.
type swapState struct {
	open       bool
	ingredient recipeapi.Ingredient
	recipe     string
	filters    map[string]bool
	cursor     int // index into recipeapi.DietaryFilters
	loading    bool
	seq        int
	resp       *recipeapi.SwapResponse
	err        string
}

func newSwapState() swapState {
	return swapState{filters: make(map[string]bool)}
}

func (s *swapState) openFor(ing recipeapi.Ingredient, recipe string) {
	*s = newSwapState()
	s.open = true
	s.ingredient = ing
	s.recipe = recipe
}

func (s *swapState) close() {
	*s = newSwapState()
}

// selectedFilters returns the active filters in display order.
func (s swapState) selectedFilters() []string {
	var out []string
	for _, f := range recipeapi.DietaryFilters {
		if s.filters[f] {
			out = append(out, f)
		}
	}
	return out
}

// request builds the swap request for the current ingredient and filters.
func (s swapState) request() recipeapi.SwapRequest {
	req := recipeapi.SwapRequest{
		Ingredient:     s.ingredient.Name,
		Unit:           strings.TrimSpace(s.ingredient.Unit),
		RecipeContext:  strings.TrimSpace(s.recipe),
		DietaryFilters: s.selectedFilters(),
	}
	if q, err := strconv.ParseFloat(strings.TrimSpace(s.ingredient.Quantity), 64); err == nil {
		req.Quantity = &q
	}
	return req
}

// fetch starts a request for the current filters. Responses for an older
// sequence number are dropped when they arrive.
func (s *swapState) fetch(ctx context.Context, api recipeapi.SwapAPI) tea.Cmd {
	s.seq++
	s.loading = true
	s.err = ""
	return swapsCmd(ctx, api, s.request(), s.seq)
}

func (m Model) handleSwapKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(recipeapi.DietaryFilters)
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Swaps):
		m.swapPanel.close()
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Up):
		m.swapPanel.cursor = (m.swapPanel.cursor - 1 + n) % n
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Down):
		m.swapPanel.cursor = (m.swapPanel.cursor + 1) % n
	case key.Matches(msg, m.keys.Toggle):
		f := recipeapi.DietaryFilters[m.swapPanel.cursor]
		m.swapPanel.filters[f] = !m.swapPanel.filters[f]
		if m.swaps != nil {
			return m, m.swapPanel.fetch(m.ctx, m.swaps)
		}
	case key.Matches(msg, m.keys.Retry):
		if m.swaps != nil {
			return m, m.swapPanel.fetch(m.ctx, m.swaps)
		}
	}
	return m, nil
}

func (m Model) handleSwaps(msg swapsMsg) (tea.Model, tea.Cmd) {
	if !m.swapPanel.open || msg.seq != m.swapPanel.seq {
		return m, nil
	}
	m.swapPanel.loading = false
	if msg.err != nil {
		m.swapPanel.err = recipeapi.Message(msg.err)
		m.swapPanel.resp = nil
		return m, nil
	}
	m.swapPanel.err = ""
	m.swapPanel.resp = msg.resp
	return m, nil
}

func (m Model) renderSwapPanel(width int) string {
	styles := m.theme.Styles()
	sp := m.swapPanel

	var b strings.Builder
	amount := strings.TrimSpace(sp.ingredient.Quantity + " " + sp.ingredient.Unit)
	if amount != "" {
		b.WriteString(styles.MutedText.Render("Replacing " + amount))
		b.WriteString("\n\n")
	}

	chips := make([]string, 0, len(recipeapi.DietaryFilters))
	for i, f := range recipeapi.DietaryFilters {
		label := f
		style := styles.MutedText
		if sp.filters[f] {
			label = "✓ " + f
			style = styles.SuccessText
		}
		if i == sp.cursor {
			style = styles.Selected
		}
		chips = append(chips, style.Render(" "+label+" "))
	}
	b.WriteString(strings.Join(chips, " "))
	b.WriteString("\n\n")

	switch {
	case sp.loading:
		b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Finding substitutes..."))
	case sp.err != "":
		b.WriteString(styles.DangerText.Render(sp.err))
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("Press r to try again."))
	case sp.resp == nil || len(sp.resp.Suggestions) == 0:
		b.WriteString(styles.Text.Render("No substitutes found."))
		b.WriteString("\n")
		if len(sp.selectedFilters()) > 0 {
			b.WriteString(styles.MutedText.Render("Try removing dietary filters or try a different ingredient."))
		}
	default:
		for i, s := range sp.resp.Suggestions {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(styles.Text.Bold(true).Render(s.SubstituteName))
			b.WriteString("  ")
			b.WriteString(m.matchStyle(s.Confidence).Render(s.MatchLabel()))
			b.WriteString("\n")
			b.WriteString(styles.MutedText.Render(s.AmountText()))
			if len(s.DietaryTags) > 0 {
				b.WriteString(styles.FaintText.Render("  " + strings.Join(s.DietaryTags, ", ")))
			}
			if notes := strings.TrimSpace(s.Notes); notes != "" {
				b.WriteString("\n")
				b.WriteString(styles.Text.Render(truncate(notes, width-6)))
			}
			b.WriteString("\n")
		}
	}

	title := fmt.Sprintf("Swap %s", sp.ingredient.Name)
	return m.renderBox(title, strings.TrimRight(b.String(), "\n"), width, true)
}

func (m Model) matchStyle(confidence float64) lipgloss.Style {
	styles := m.theme.Styles()
	switch {
	case confidence >= 0.8:
		return styles.SuccessText
	case confidence >= 0.6:
		return styles.WarningText
	default:
		return styles.FaintText
	}
}
