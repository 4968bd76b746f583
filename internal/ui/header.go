package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/larder/internal/extraction"
)

// renderHeader renders the status bar: logo, view tabs, job and plan.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("larder", styles.Logo)}

	tabs := make([]string, 0, len(viewOrder))
	for _, v := range viewOrder {
		if v == m.currentView {
			tabs = append(tabs, bg.Render("["+v.String()+"]", styles.AccentText.Bold(true)))
		} else {
			tabs = append(tabs, bg.Render(v.String(), styles.MutedText))
		}
	}
	parts = append(parts, bg.Join(tabs, " "))

	if status := m.job.Status; status != "" && status != extraction.StatusIdle {
		badge := m.theme.Styles().StatusStyle(string(status)).Render(strings.ToUpper(string(status)))
		parts = append(parts, badge)
	}

	if m.identity.IsPremium {
		parts = append(parts, bg.Render("PREMIUM", styles.SuccessText))
	} else if m.identity.IsRegistered {
		parts = append(parts, bg.Render("free", styles.FaintText))
	} else {
		parts = append(parts, bg.Render("offline", styles.WarningText))
	}

	if len(m.cards.Cards) > 0 {
		parts = append(parts, bg.Render(pluralize(len(m.cards.Cards), "recipe"), styles.MutedText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(strings.Join(parts, sep))
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewGallery:
		favLabel := "Favorites"
		if m.favoritesOnly {
			favLabel = "All"
		}
		commands = []cmd{
			{"←/→", "Browse"},
			{"f", "Favorite"},
			{"F", favLabel},
			{"d", "Delete"},
			{"m", "More"},
			{"r", "Refresh"},
		}
	case ViewSettings:
		commands = []cmd{
			{"j/k", "Scroll log"},
			{"r", "Reload log"},
			{"u", "Upgrade"},
		}
	default:
		switch {
		case m.job.Active():
			commands = []cmd{{"esc", "Cancel"}}
		case m.job.Status == extraction.StatusCompleted && m.swapPanel.open:
			commands = []cmd{
				{"←/→", "Filter"},
				{"space", "Toggle"},
				{"esc", "Close"},
			}
		case m.job.Status == extraction.StatusCompleted:
			listLabel := "Shopping"
			if m.results.shopping {
				listLabel = "Ingredients"
			}
			commands = []cmd{
				{"space", "Check"},
				{"L", listLabel},
				{"c", "Copy"},
				{"s", "Save"},
				{"w", "Swap"},
				{"n", "New"},
			}
		default:
			commands = []cmd{
				{"enter", "Extract"},
				{"esc", "Clear"},
			}
		}
	}
	commands = append(commands, cmd{"tab", "Views"})
	if !m.inputFocused() {
		commands = append(commands, cmd{"?", "More"})
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderFlash renders the transient status line, if any.
func (m Model) renderFlash() string {
	if m.flash == "" {
		return ""
	}
	styles := m.theme.Styles()
	if m.flashDanger {
		return styles.DangerText.Render(m.flash)
	}
	return styles.InfoText.Render(m.flash)
}
