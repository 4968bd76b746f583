package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/larder/internal/logtail"
)

func (m Model) logPath() string {
	if m.config == nil {
		return ""
	}
	return m.config.LogFile
}

func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath()
	if path == "" {
		return nil
	}
	return readLogsCmd(path)
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logErr = msg.err.Error()
		return
	}
	m.logErr = ""
	follow := m.logViewport.AtBottom() || len(m.logLines) == 0
	m.logLines = msg.lines
	m.refreshLogViewport()
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m *Model) refreshLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	width := m.logViewport.Width
	lines := logtail.ColorizeLines(m.logLines, m.logPalette())
	for i, line := range lines {
		lines[i] = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
}

func (m Model) logPalette() logtail.Palette {
	styles := m.theme.Styles()
	return logtail.Palette{
		Time:  styles.FaintText,
		Debug: styles.InfoText,
		Info:  styles.SuccessText,
		Warn:  styles.WarningText,
		Error: styles.DangerText,
		Key:   styles.MutedText,
		Value: styles.AccentText,
		Plain: styles.Text,
	}
}

// handleSettingsKey processes keys for the settings view.
func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Upgrade):
		if !m.identity.IsPremium {
			m.modal = newPaywallModal(m.ctx, m.registrar, m.device)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.readLogsCmd()
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m Model) renderSettings() string {
	styles := m.theme.Styles()
	width := min(m.width, LayoutMaxContentWidth)

	row := func(label, value string, valueStyle lipgloss.Style) string {
		return styles.MutedText.Render(padRight(label, 14)) + valueStyle.Render(value)
	}

	deviceID := m.identity.DeviceID
	if deviceID == "" {
		deviceID = "not registered yet"
	}
	plan := "Free"
	planStyle := styles.Text
	if m.identity.IsPremium {
		plan = "Premium"
		planStyle = styles.SuccessText
	}
	registered := "no"
	if m.identity.IsRegistered {
		registered = "yes"
	}
	backend := ""
	if m.config != nil {
		backend = m.config.BackendURL
	}

	lines := []string{
		row("Device", deviceID, styles.Text),
		row("Registered", registered, styles.Text),
		row("Plan", plan, planStyle),
		row("Backend", backend, styles.Text),
		row("Theme", m.theme.Name, styles.AccentText),
		row("Gallery", pluralize(len(m.cards.Cards), "saved recipe")+", "+pluralize(len(m.favoriteIDs), "favorite"), styles.Text),
	}
	if !m.identity.IsPremium {
		lines = append(lines, "", styles.AccentText.Render("Press u to upgrade or restore a purchase."))
	}
	top := m.renderBox("Settings", strings.Join(lines, "\n"), width, false)

	logTitle := "Log"
	if p := m.logPath(); p != "" {
		logTitle = "Log · " + truncateMiddle(p, width-12)
	}
	logBody := m.logViewport.View()
	switch {
	case m.logErr != "":
		logBody = styles.DangerText.Render(m.logErr)
	case len(m.logLines) == 0:
		logBody = styles.FaintText.Render("No log output yet.")
	}
	bottom := m.renderBox(logTitle, logBody, m.width, true)
	return top + "\n" + bottom
}
