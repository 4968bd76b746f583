package ui

// renderHelp renders the help overlay from the key map.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	h := m.help
	h.ShowAll = true
	h.Width = max(m.width-8, 0)
	content := styles.Text.Bold(true).Render("Keyboard Shortcuts") + "\n\n" + h.View(m.keys)
	return renderModal(m.theme, m.width, m.height, content)
}
