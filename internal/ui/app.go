package ui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/larder/internal/config"
	"github.com/five82/larder/internal/device"
	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/prefs"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/settings"
)

// View represents the current active view.
type View int

const (
	ViewExtract View = iota
	ViewGallery
	ViewSettings
)

var viewOrder = []View{ViewExtract, ViewGallery, ViewSettings}

func (v View) String() string {
	switch v {
	case ViewGallery:
		return "Gallery"
	case ViewSettings:
		return "Settings"
	default:
		return "Extract"
	}
}

// Options configures the UI.
type Options struct {
	Context       context.Context
	Session       *extraction.Session
	Gallery       *gallery.Service
	Device        *device.Store
	Registrar     *device.Registrar
	Consent       *settings.Consent
	Swaps         recipeapi.SwapAPI
	Config        *config.Config
	PollTick      time.Duration
	ThemeName     string
	FavoritesOnly bool
	PrefsPath     string
	// Clipboard writes text to the system clipboard; clipboard.WriteAll
	// when nil.
	Clipboard func(string) error
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	session   *extraction.Session
	gallery   *gallery.Service
	device    *device.Store
	registrar *device.Registrar
	consent   *settings.Consent
	swaps     recipeapi.SwapAPI
	config    *config.Config
	prefsPath string
	pollTick  time.Duration
	copyText  func(string) error
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal
	flash       string
	flashDanger bool
	flashAt     time.Time

	// Data state
	job             extraction.Job
	cards           gallery.Snapshot
	favoriteIDs     []string
	identity        device.Identity
	consentReady    bool
	consentAccepted bool

	// Extract view
	input      textinput.Model
	inputErr   string
	submitting bool
	spinner    spinner.Model
	progress   progress.Model
	results    resultsState
	swapPanel  swapState

	// Gallery view
	favoritesOnly  bool
	favIndex       int
	confirmDelete  string
	galleryFetched bool

	// Settings view
	logViewport viewport.Model
	logLines    []string
	logErr      string

	help help.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	theme := GetTheme(themeName)

	ti := textinput.New()
	ti.Placeholder = "Paste a YouTube link"
	ti.Prompt = "› "
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:           ctx,
		session:       opts.Session,
		gallery:       opts.Gallery,
		device:        opts.Device,
		registrar:     opts.Registrar,
		consent:       opts.Consent,
		swaps:         opts.Swaps,
		config:        opts.Config,
		prefsPath:     prefsPath,
		pollTick:      pollTick,
		copyText:      copyText,
		keys:          DefaultKeyMap(),
		theme:         theme,
		currentView:   ViewExtract,
		input:         ti,
		spinner:       sp,
		progress:      progress.New(progress.WithWidth(40), progress.WithoutPercentage()),
		favoritesOnly: opts.FavoritesOnly,
		logViewport:   viewport.New(0, 0),
		help:          help.New(),
		swapPanel:     newSwapState(),
	}
	m.applyTheme()
	m.pull()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		tickCmd(m.pollTick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case jobMsg:
		next, cmd := m.applyJob(extraction.Job(msg))
		return next, cmd

	case cardsMsg:
		m.cards = gallery.Snapshot(msg)
		m.favIndex = gallery.Clamp(m.favIndex, len(m.visibleCards()))
		return m, nil

	case favoritesMsg:
		m.favoriteIDs = []string(msg)
		m.favIndex = gallery.Clamp(m.favIndex, len(m.visibleCards()))
		return m, nil

	case identityMsg:
		m.identity = device.Identity(msg)
		return m, nil

	case consentMsg:
		m.consentReady = true
		m.consentAccepted = bool(msg)
		return m, nil

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case resultsMsg:
		return m.handleResults(msg)

	case savedMsg:
		return m.handleSaved(msg)

	case galleryOpMsg:
		return m.handleGalleryOp(msg)

	case swapsMsg:
		return m.handleSwaps(msg)

	case consentAcceptedMsg:
		if msg.err != nil {
			m.setFlash("Could not save consent: "+msg.err.Error(), true)
			return m, nil
		}
		m.consentAccepted = true
		return m, nil

	case restoreMsg:
		return m.handleRestore(msg)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setFlash("Copy failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("Copied "+pluralize(msg.items, "item")+" to the clipboard", false)
		}
		return m, nil
	}

	if m.inputFocused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.needsConsent() {
		return m.consentPrompt().View(m.theme, m.width, m.height)
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// needsConsent reports whether the consent prompt must be shown. It stays
// false until the consent store has loaded, so the prompt never flashes for
// a user who already accepted.
func (m Model) needsConsent() bool {
	return m.consent != nil && m.consentReady && !m.consentAccepted
}

func (m Model) consentPrompt() Modal {
	return consentModal{ctx: m.ctx, consent: m.consent}
}

// inputFocused reports whether key presses go to the link input.
func (m Model) inputFocused() bool {
	return m.currentView == ViewExtract && m.input.Focused() && acceptsLink(m.job.Status)
}

// acceptsLink reports whether the extract view shows the link input.
func acceptsLink(s extraction.Status) bool {
	return s == extraction.StatusIdle || s == extraction.StatusError || s == ""
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.needsConsent() {
		_, cmd, _ := m.consentPrompt().Update(msg, m.keys)
		return m, cmd
	}

	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(1)
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(-1)
	}

	if m.inputFocused() {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()
		return m, nil
	}

	switch m.currentView {
	case ViewGallery:
		return m.handleGalleryKey(msg)
	case ViewSettings:
		return m.handleSettingsKey(msg)
	default:
		return m.handleExtractKey(msg)
	}
}

// switchView moves through the views in order, wrapping around.
func (m Model) switchView(step int) (tea.Model, tea.Cmd) {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
		}
	}
	idx = (idx + step + len(viewOrder)) % len(viewOrder)
	return m.enterView(viewOrder[idx])
}

// enterView makes v current and starts whatever fetch it needs.
func (m Model) enterView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	m.confirmDelete = ""
	switch v {
	case ViewExtract:
		if acceptsLink(m.job.Status) {
			return m, m.input.Focus()
		}
	case ViewGallery:
		m.input.Blur()
		if !m.galleryFetched && m.gallery != nil {
			m.galleryFetched = true
			return m, refreshGalleryCmd(m.ctx, m.gallery)
		}
	case ViewSettings:
		m.input.Blur()
		return m, m.readLogsCmd()
	}
	return m, nil
}

// handleTick pulls fresh snapshots and schedules the next tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.pull()
	if !m.flashAt.IsZero() && time.Since(m.flashAt) > FlashDuration {
		m.flash = ""
		m.flashAt = time.Time{}
	}

	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.currentView == ViewSettings {
		cmds = append(cmds, m.readLogsCmd())
	}
	m, jobCmd := m.applyJob(m.job)
	cmds = append(cmds, jobCmd)
	return m, tea.Batch(cmds...)
}

// pull copies the current state of every store into the model.
func (m *Model) pull() {
	if m.session != nil {
		m.job = m.session.Job()
	}
	if m.gallery != nil {
		m.cards = m.gallery.Cards().Snapshot()
		m.favoriteIDs = m.gallery.Favorites().IDs()
		m.favIndex = gallery.Clamp(m.favIndex, len(m.visibleCards()))
	}
	if m.device != nil {
		m.identity = m.device.Identity()
	}
	if m.consent != nil && m.consent.Hydrated() {
		m.consentReady = true
		m.consentAccepted = m.consent.Accepted()
	}
}

// resize propagates the window size to sized components.
func (m *Model) resize() {
	contentWidth := min(m.width-4, LayoutMaxContentWidth)
	m.input.Width = max(10, contentWidth-6)
	m.progress.Width = max(10, min(60, contentWidth-10))
	m.logViewport.Width = max(10, m.width-4)
	m.logViewport.Height = max(3, m.height-14)
	m.help.Width = m.width
	m.refreshLogViewport()
}

// applyTheme restyles the bubbles components for the current theme.
func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	m.spinner.Style = styles.AccentText
	m.input.PromptStyle = styles.AccentText
	m.input.TextStyle = styles.Text
	m.input.PlaceholderStyle = styles.FaintText
	m.progress.FullColor = m.theme.Accent
	m.progress.EmptyColor = m.theme.SurfaceAlt
	m.help.Styles.ShortKey = styles.AccentText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.help.Styles.FullKey = styles.WarningText
	m.help.Styles.FullDesc = styles.Text
	m.help.Styles.FullSeparator = styles.FaintText
}

// savePrefs persists the theme and gallery filter. Failures are ignored.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, FavoritesOnly: m.favoritesOnly})
}

func (m *Model) setFlash(text string, danger bool) {
	m.flash = text
	m.flashDanger = danger
	m.flashAt = time.Now()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	// Main content
	b.WriteString(m.renderContent())

	if footer := m.renderFlash(); footer != "" {
		b.WriteString("\n")
		b.WriteString(footer)
	}
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewGallery:
		return m.renderGallery()
	case ViewSettings:
		return m.renderSettings()
	default:
		return m.renderExtract()
	}
}

// Run starts the Bubble Tea program. Store observers post their changes into
// the program in commit order; the tick covers anything missed while a
// message was queued.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	queue := newMsgQueue(p.Send)
	defer queue.close()

	for _, unsub := range subscribeStores(opts, queue.post) {
		defer unsub()
	}

	if opts.Context != nil {
		go func() {
			<-opts.Context.Done()
			p.Quit()
		}()
	}

	_, err := p.Run()
	return err
}

// subscribeStores wires every store observer to post and returns the
// unsubscribe funcs.
func subscribeStores(opts Options, post func(tea.Msg)) []func() {
	var unsubs []func()
	if opts.Session != nil {
		unsubs = append(unsubs, opts.Session.Subscribe(func(j extraction.Job) { post(jobMsg(j)) }))
	}
	if opts.Gallery != nil {
		unsubs = append(unsubs,
			opts.Gallery.Cards().Subscribe(func(s gallery.Snapshot) { post(cardsMsg(s)) }),
			opts.Gallery.Favorites().Subscribe(func(ids []string) { post(favoritesMsg(ids)) }),
		)
	}
	if opts.Device != nil {
		unsubs = append(unsubs, opts.Device.Subscribe(func(id device.Identity) { post(identityMsg(id)) }))
	}
	if opts.Consent != nil {
		unsubs = append(unsubs, opts.Consent.Subscribe(func(accepted bool) { post(consentMsg(accepted)) }))
	}
	return unsubs
}
