package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/youtube"
)

// progressMessages rotate under the spinner while a job runs.
var progressMessages = []string{
	"Watching the video...",
	"Listening for ingredients...",
	"Measuring everything out...",
	"Checking the pantry...",
	"Writing up the shopping list...",
}

// resultsState holds per-job results view state. It resets when the job id
// changes.
type resultsState struct {
	jobID    string
	fetching bool
	err      string
	cursor   int
	shopping bool
	saving   bool
	savedID  string
}

// checkRow is one line of the ingredient or shopping list. Header rows are
// category titles and cannot be checked.
type checkRow struct {
	name   string
	label  string
	detail string
	header bool
}

// applyJob records a new job snapshot and starts the results fetch once the
// job completes.
func (m Model) applyJob(job extraction.Job) (Model, tea.Cmd) {
	prev := m.job
	m.job = job
	if job.ID != m.results.jobID {
		m.results = resultsState{jobID: job.ID}
		m.swapPanel.close()
	}

	var cmds []tea.Cmd
	if acceptsLink(job.Status) && !acceptsLink(prev.Status) && m.currentView == ViewExtract {
		cmds = append(cmds, m.input.Focus())
	}
	if job.Status == extraction.StatusCompleted && job.Results == nil && !m.results.fetching && m.results.err == "" && m.session != nil {
		m.results.fetching = true
		cmds = append(cmds, fetchResultsCmd(m.ctx, m.session, job.ID))
	}
	return m, tea.Batch(cmds...)
}

// handleInputKey processes keys while the link input has focus.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		link, err := youtube.Validate(m.input.Value())
		if err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		m.inputErr = ""
		m.input.Blur()
		m.submitting = true
		return m, submitCmd(m.ctx, m.session, link)
	case key.Matches(msg, m.keys.Escape):
		m.input.SetValue("")
		m.inputErr = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputErr != "" && youtube.IsValid(m.input.Value()) {
		m.inputErr = ""
	}
	return m, cmd
}

// handleSubmitDone handles the end of a submit request.
func (m Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		if errors.Is(msg.err, extraction.ErrSuperseded) {
			return m, nil
		}
		m.inputErr = submitErrorText(msg.err)
		return m, m.input.Focus()
	}
	m.input.SetValue("")
	next, cmd := m.applyJob(msg.job)
	return next, cmd
}

func submitErrorText(err error) string {
	if errors.Is(err, youtube.ErrInvalidLink) {
		return err.Error()
	}
	return recipeapi.Message(err)
}

// handleResults handles a finished results fetch.
func (m Model) handleResults(msg resultsMsg) (tea.Model, tea.Cmd) {
	if msg.jobID != m.results.jobID {
		return m, nil
	}
	m.results.fetching = false
	switch {
	case errors.Is(msg.err, extraction.ErrSuperseded), errors.Is(msg.err, extraction.ErrNoJob):
		return m, nil
	case msg.err != nil:
		m.results.err = recipeapi.Message(msg.err)
		return m, nil
	}
	m.results.err = ""
	if m.session != nil {
		m.job = m.session.Job()
	}
	return m, nil
}

// handleSaved handles the end of a save-to-gallery request.
func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.results.saving = false
	switch {
	case errors.Is(msg.err, gallery.ErrAlreadySaved):
		m.results.savedID = msg.card.CardID
		m.setFlash("Already in your gallery", false)
	case errors.Is(msg.err, gallery.ErrSaveInProgress):
		m.setFlash("Save already in progress", false)
	case msg.err != nil:
		m.setFlash("Save failed: "+recipeapi.Message(msg.err), true)
	default:
		m.results.savedID = msg.card.CardID
		m.setFlash("Saved \""+msg.card.RecipeName+"\" to your gallery", false)
	}
	return m, nil
}

// handleExtractKey processes keys for the progress and results screens.
func (m Model) handleExtractKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.job.Active() {
		if key.Matches(msg, m.keys.Escape) && m.session != nil {
			m.session.Reset()
			m.job = m.session.Job()
			m.setFlash("Extraction cancelled", false)
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.job.Status != extraction.StatusCompleted {
		if m.submitting {
			return m, nil
		}
		return m, m.input.Focus()
	}

	if m.swapPanel.open {
		return m.handleSwapKey(msg)
	}

	res := m.job.Results
	switch {
	case key.Matches(msg, m.keys.NewRecipe):
		if m.session != nil {
			m.session.Reset()
			m.job = m.session.Job()
		}
		m.results = resultsState{}
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Retry):
		if res == nil && !m.results.fetching && m.session != nil {
			m.results.err = ""
			m.results.fetching = true
			return m, fetchResultsCmd(m.ctx, m.session, m.job.ID)
		}
		return m, nil
	}

	if res == nil {
		return m, nil
	}

	rows := m.checkRows()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.results.cursor = prevSelectable(rows, m.results.cursor)
	case key.Matches(msg, m.keys.Down):
		m.results.cursor = nextSelectable(rows, m.results.cursor)
	case key.Matches(msg, m.keys.Toggle):
		if m.results.cursor < len(rows) && !rows[m.results.cursor].header && m.session != nil {
			m.session.ToggleChecked(rows[m.results.cursor].name)
		}
	case key.Matches(msg, m.keys.ShoppingList):
		m.results.shopping = !m.results.shopping
		m.results.cursor = firstSelectable(m.checkRows())
	case key.Matches(msg, m.keys.Copy):
		if m.session == nil {
			return m, nil
		}
		items := len(m.session.CheckedKeys())
		if items == 0 {
			m.setFlash("Check some items first", false)
			return m, nil
		}
		return m, copyCmd(m.copyText, m.session.ShoppingText(), items)
	case key.Matches(msg, m.keys.Save):
		if m.gallery == nil || m.results.saving {
			return m, nil
		}
		m.results.saving = true
		return m, saveCmd(m.ctx, m.gallery, res, m.job.SourceURL)
	case key.Matches(msg, m.keys.Swaps):
		if m.results.shopping || m.results.cursor >= len(rows) || m.swaps == nil {
			return m, nil
		}
		ing := res.Ingredients[m.results.cursor]
		m.swapPanel.openFor(ing, res.RecipeName)
		return m, m.swapPanel.fetch(m.ctx, m.swaps)
	case key.Matches(msg, m.keys.Upgrade):
		if !m.identity.IsPremium {
			m.modal = newPaywallModal(m.ctx, m.registrar, m.device)
		}
	}
	return m, nil
}

// checkRows lists the rows of the current results list.
func (m Model) checkRows() []checkRow {
	res := m.job.Results
	if res == nil {
		return nil
	}
	if !m.results.shopping {
		rows := make([]checkRow, 0, len(res.Ingredients))
		for _, ing := range res.Ingredients {
			rows = append(rows, checkRow{
				name:   ing.Name,
				label:  strings.TrimSpace(ing.Emoji + " " + ing.Name),
				detail: strings.TrimSpace(ing.Quantity + " " + ing.Unit),
			})
		}
		return rows
	}
	var rows []checkRow
	for _, cat := range res.ShoppingList {
		if len(cat.Items) == 0 {
			continue
		}
		rows = append(rows, checkRow{label: extraction.PrettyName(cat.Name), header: true})
		for _, item := range cat.Items {
			rows = append(rows, checkRow{name: item, label: extraction.PrettyName(item)})
		}
	}
	return rows
}

func firstSelectable(rows []checkRow) int {
	for i, r := range rows {
		if !r.header {
			return i
		}
	}
	return 0
}

func nextSelectable(rows []checkRow, from int) int {
	for i := from + 1; i < len(rows); i++ {
		if !rows[i].header {
			return i
		}
	}
	return from
}

func prevSelectable(rows []checkRow, from int) int {
	for i := from - 1; i >= 0; i-- {
		if !rows[i].header {
			return i
		}
	}
	return from
}

// renderExtract renders the home, progress or results screen for the job.
func (m Model) renderExtract() string {
	switch {
	case m.job.Active():
		return m.renderProgress()
	case m.job.Status == extraction.StatusCompleted:
		return m.renderResults()
	default:
		return m.renderHome()
	}
}

func (m Model) renderHome() string {
	styles := m.theme.Styles()
	width := min(m.width, LayoutMaxContentWidth)

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Turn a cooking video into a recipe"))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Paste a YouTube link and press enter."))
	b.WriteString("\n\n")

	if m.job.Status == extraction.StatusError && m.job.Error != "" {
		b.WriteString(styles.DangerText.Render(m.job.Error))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.submitting {
		b.WriteString(m.spinner.View() + " " + styles.MutedText.Render("Submitting..."))
	} else if m.inputErr != "" {
		b.WriteString(styles.DangerText.Render(m.inputErr))
	} else if v := strings.TrimSpace(m.input.Value()); v != "" && youtube.IsValid(v) {
		b.WriteString(styles.SuccessText.Render("✓ " + youtube.VideoID(v)))
	}
	return m.renderBox("New recipe", b.String(), width, true)
}

func (m Model) renderProgress() string {
	styles := m.theme.Styles()
	width := min(m.width, LayoutMaxContentWidth)

	status := string(m.job.Status)
	badge := styles.StatusStyle(status).Render(strings.ToUpper(status))

	message := strings.TrimSpace(m.job.StatusMessage)
	if message == "" {
		idx := int(time.Now().Unix()/3) % len(progressMessages)
		message = progressMessages[idx]
	}

	var b strings.Builder
	b.WriteString(badge)
	b.WriteString("  ")
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(message))
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(progressFraction(m.job.Progress)))
	b.WriteString("\n\n")
	if m.job.CurrentTier > 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("Extraction tier %d", m.job.CurrentTier)))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render(truncate(m.job.SourceURL, width-6)))
	return m.renderBox("Processing", b.String(), width, true)
}

// progressFraction normalizes a server progress value, which may be a
// fraction or a percentage, to [0, 1].
func progressFraction(p float64) float64 {
	if p > 1 {
		p /= 100
	}
	return max(0, min(1, p))
}

func (m Model) renderResults() string {
	styles := m.theme.Styles()
	width := min(m.width, LayoutMaxContentWidth)
	res := m.job.Results

	if res == nil {
		var body string
		switch {
		case m.results.err != "":
			body = styles.DangerText.Render(m.results.err) + "\n" +
				styles.MutedText.Render("Press r to try again.")
		default:
			body = m.spinner.View() + " " + styles.MutedText.Render("Loading results...")
		}
		return m.renderBox("Results", body, width, true)
	}

	if m.swapPanel.open {
		return m.renderSwapPanel(width)
	}

	title := strings.TrimSpace(res.RecipeName)
	if title == "" {
		title = gallery.DefaultRecipeName
	}

	var b strings.Builder
	summary := fmt.Sprintf("%s · %d checked",
		pluralize(len(res.Ingredients), "ingredient"),
		len(m.sessionCheckedKeys()))
	b.WriteString(styles.MutedText.Render(summary))
	if m.results.savedID != "" {
		b.WriteString("  ")
		b.WriteString(styles.SuccessText.Render("★ saved"))
	}
	b.WriteString("\n\n")

	rows := m.checkRows()
	for i, row := range rows {
		b.WriteString(m.renderCheckRow(row, i == m.results.cursor, width-4))
		b.WriteString("\n")
	}

	if !m.results.shopping && res.IsTruncated {
		hidden := res.HiddenIngredients()
		for i := 0; i < min(hidden, TeaserPlaceholders); i++ {
			b.WriteString(styles.FaintText.Render("  ░░░░░░░░░░░░"))
			b.WriteString("\n")
		}
		teaser := fmt.Sprintf("You're seeing %d of %d ingredients.", res.ShownIngredientCount, res.TotalIngredientCount)
		b.WriteString("\n")
		b.WriteString(styles.WarningText.Render(teaser))
		if res.UpgradeMessage != "" {
			b.WriteString(" ")
			b.WriteString(styles.MutedText.Render(res.UpgradeMessage))
		}
		if !m.identity.IsPremium {
			b.WriteString("\n")
			b.WriteString(styles.AccentText.Render("Press u to upgrade."))
		}
		b.WriteString("\n")
	}

	if !m.results.shopping && len(res.Instructions) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Steps"))
		b.WriteString("\n")
		for _, step := range res.Instructions {
			line := fmt.Sprintf("%2d. %s", step.StepNumber, step.Text)
			b.WriteString(styles.Text.Render(truncate(line, width-6)))
			b.WriteString("\n")
		}
	}

	boxTitle := title
	if m.results.shopping {
		boxTitle = title + " · Shopping list"
	}
	return m.renderBox(boxTitle, strings.TrimRight(b.String(), "\n"), width, true)
}

func (m Model) renderCheckRow(row checkRow, selected bool, width int) string {
	styles := m.theme.Styles()
	if row.header {
		return styles.AccentText.Bold(true).Render(row.label)
	}
	mark := "[ ]"
	labelStyle := styles.Text
	if m.session != nil && m.session.IsChecked(row.name) {
		mark = "[x]"
		labelStyle = styles.MutedText.Strikethrough(true)
	}
	line := mark + " " + row.label
	if row.detail != "" {
		line = padRight(line, 32) + " " + row.detail
	}
	line = truncate(line, width)
	if selected {
		return styles.Selected.Render(padRight(line, width))
	}
	return labelStyle.Render(line)
}

func (m Model) sessionCheckedKeys() []string {
	if m.session == nil {
		return nil
	}
	return m.session.CheckedKeys()
}

// renderBox draws content inside a titled rounded border.
func (m Model) renderBox(title, content string, width int, focused bool) string {
	borderColor := m.theme.Border
	if focused {
		borderColor = m.theme.BorderFocus
	}
	styles := m.theme.Styles()
	heading := styles.AccentText.Bold(true).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(max(10, width-2)).
		Render(heading + "\n" + content)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
