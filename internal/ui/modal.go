package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/larder/internal/device"
	"github.com/five82/larder/internal/settings"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// renderModal centers a bordered dialog on the screen.
func renderModal(theme Theme, width, height int, content string) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(60, max(30, width-4)))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// consentModal asks the user to accept the terms before first use. It
// cannot be dismissed; it goes away once the consent store reports acceptance.
type consentModal struct {
	ctx     context.Context
	consent *settings.Consent
}

func (c consentModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Accept):
		return c, acceptConsentCmd(c.ctx, c.consent), false
	case keyMsg.String() == "q":
		return c, tea.Quit, false
	}
	return c, nil, false
}

func (consentModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Before you start"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render("Larder sends the video links you submit to the recipe service for processing. " +
		"Saved recipes are stored with your device id."))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("By continuing you agree to the Terms & Conditions and Privacy Policy."))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("a") + styles.MutedText.Render(" accept   ") +
		styles.AccentText.Render("q") + styles.MutedText.Render(" quit"))
	return renderModal(theme, width, height, b.String())
}

var paywallFeatures = []string{
	"See all detected ingredients for every video",
	"Never miss a hidden spice or garnish",
	"Full recipe cards in your gallery",
}

// paywallModal explains the premium tier and restores an existing purchase.
type paywallModal struct {
	ctx       context.Context
	registrar *device.Registrar
	store     *device.Store
	restoring bool
	message   string
	danger    bool
}

func newPaywallModal(ctx context.Context, registrar *device.Registrar, store *device.Store) *paywallModal {
	return &paywallModal{ctx: ctx, registrar: registrar, store: store}
}

func (p *paywallModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape), msg.String() == "q":
			return p, nil, true
		case key.Matches(msg, keys.Restore):
			if p.restoring || p.registrar == nil || p.store == nil {
				return p, nil, false
			}
			p.restoring = true
			p.message = ""
			return p, restoreCmd(p.ctx, p.registrar, p.store), false
		case key.Matches(msg, keys.Upgrade):
			p.message = "Purchases are made in the Larder mobile app. Press r here afterwards to restore."
			p.danger = false
		}
	case restoreMsg:
		p.restoring = false
		switch {
		case msg.err != nil:
			p.message = "Could not restore: " + msg.err.Error()
			p.danger = true
		case msg.premium:
			return p, nil, true
		default:
			p.message = "No purchase found for this device."
			p.danger = false
		}
	}
	return p, nil, false
}

func (p *paywallModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Get the full ingredient list"))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("The free version shows up to 5 ingredients per recipe. Premium unlocks all ingredients for every video."))
	b.WriteString("\n\n")
	for _, f := range paywallFeatures {
		b.WriteString(styles.SuccessText.Render("✓ "))
		b.WriteString(styles.Text.Render(f))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if p.restoring {
		b.WriteString(styles.MutedText.Render("Checking purchases..."))
		b.WriteString("\n\n")
	} else if p.message != "" {
		style := styles.InfoText
		if p.danger {
			style = styles.DangerText
		}
		b.WriteString(style.Render(p.message))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.AccentText.Render("u") + styles.MutedText.Render(" upgrade   ") +
		styles.AccentText.Render("r") + styles.MutedText.Render(" restore purchase   ") +
		styles.AccentText.Render("esc") + styles.MutedText.Render(" close"))
	return renderModal(theme, width, height, b.String())
}

// handleRestore routes a restore result to the open paywall, if any.
func (m Model) handleRestore(msg restoreMsg) (tea.Model, tea.Cmd) {
	if msg.err == nil && msg.premium {
		m.identity.IsPremium = true
		m.setFlash("Premium restored. Thanks for your support!", false)
	}
	if m.modal == nil {
		return m, nil
	}
	next, cmd, closed := m.modal.Update(msg, m.keys)
	if closed {
		m.modal = nil
	} else {
		m.modal = next
	}
	return m, cmd
}
