package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/playback"
	"github.com/tessro/cadence/internal/store"
	"github.com/tessro/cadence/internal/tui/components"
	"github.com/tessro/cadence/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelQueue
	PanelLibrary
	PanelHistory

	panelCount = 4
)

const (
	searchDebounce = 300 * time.Millisecond
	volumeStep     = 0.05
	libraryLimit   = 50
	historyShown   = 20
	commandTimeout = 15 * time.Second
)

// Player is the controller surface the UI drives.
type Player interface {
	core.Player
	Subscribe(obs playback.Observer) func()
}

// Catalog supplies tracks for the library panel and search.
type Catalog interface {
	ListTracks(ctx context.Context, q api.TrackQuery) (*api.TrackPage, error)
}

// HistorySource supplies the listening history.
type HistorySource interface {
	Recent(ctx context.Context, n int) ([]core.HistoryEntry, error)
}

// Liker toggles likes against the server.
type Liker interface {
	Toggle(ctx context.Context, track core.Track) (api.LikeResult, error)
}

// Deps wires the UI to the rest of the application.
type Deps struct {
	Player   Player
	Catalog  Catalog
	History  HistorySource
	Likes    Liker
	SignedIn func() bool

	// HistoryChanges reports store keys changed by other processes.
	HistoryChanges <-chan string

	// LinkBase is the web origin used for shareable track links.
	LinkBase    string
	RefreshRate time.Duration
	Theme       string
	Logger      *zap.Logger
}

// Model is the main TUI model
type Model struct {
	deps         Deps
	feed         *feed
	width        int
	height       int
	focusedPanel Panel

	// State
	state   core.PlaybackState
	library []core.Track
	history []core.HistoryEntry

	// Components
	nowPlaying  *components.NowPlaying
	queueView   *components.Queue
	libraryView *components.Library
	historyView *components.History

	// Overlays
	showHelp bool

	// Search state
	showSearch    bool
	searchInput   textinput.Model
	searchResults []core.Track
	searchCursor  int
	searching     bool
	lastQuery     string
	searchErr     error

	// Status line
	lastError   error
	errorExpiry time.Time
	notice      string

	quitting bool
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RefreshRate <= 0 {
		deps.RefreshRate = time.Second
	}
	if deps.SignedIn == nil {
		deps.SignedIn = func() bool { return false }
	}

	ti := textinput.New()
	ti.Placeholder = "Search tracks and artists..."
	ti.CharLimit = 100
	ti.Width = 50

	return Model{
		deps:         deps,
		feed:         newFeed(),
		focusedPanel: PanelNowPlaying,
		state:        deps.Player.State(),
		nowPlaying:   components.NewNowPlaying(),
		queueView:    components.NewQueue(),
		libraryView:  components.NewLibrary(),
		historyView:  components.NewHistory(),
		searchInput:  ti,
	}
}

// Messages
type tickMsg time.Time
type stateMsg struct {
	state        core.PlaybackState
	trackStarted bool
	err          error
}
type libraryMsg []core.Track
type historyMsg []core.HistoryEntry
type historyChangedMsg struct{}
type errMsg struct{ err error }
type noticeMsg string

type searchDebounceMsg struct{ query string }
type searchResultsMsg struct {
	results []core.Track
	err     error
}

func errCmd(err error) tea.Msg {
	if err == nil {
		return nil
	}
	return errMsg{err}
}

// Commands
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.deps.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchLibrary() tea.Cmd {
	catalog := m.deps.Catalog
	return func() tea.Msg {
		if catalog == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		page, err := catalog.ListTracks(ctx, api.TrackQuery{Limit: libraryLimit, SortBy: "createdAt", SortOrder: "desc"})
		if err != nil {
			return errMsg{err}
		}
		return libraryMsg(page.Tracks)
	}
}

func (m Model) fetchHistory() tea.Cmd {
	src := m.deps.History
	return func() tea.Msg {
		if src == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		entries, err := src.Recent(ctx, historyShown)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(entries)
	}
}

func (m Model) waitHistoryChange() tea.Cmd {
	ch := m.deps.HistoryChanges
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for key := range ch {
			if store.IsHistoryKey(key) {
				return historyChangedMsg{}
			}
		}
		return nil
	}
}

func (m Model) doSearch(query string) tea.Cmd {
	catalog := m.deps.Catalog
	return func() tea.Msg {
		if query == "" || catalog == nil {
			return searchResultsMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		page, err := catalog.ListTracks(ctx, api.TrackQuery{Search: query, Limit: 20})
		if err != nil {
			return searchResultsMsg{err: err}
		}
		return searchResultsMsg{results: page.Tracks}
	}
}

// play starts track with list as the queue.
func (m Model) play(track core.Track, list []core.Track, index int) tea.Cmd {
	player := m.deps.Player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return errCmd(player.PlayTrack(ctx, track, list, index))
	}
}

func (m Model) playQueueIndex(i int) tea.Cmd {
	player := m.deps.Player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return errCmd(player.PlayQueueIndex(ctx, i))
	}
}

func (m Model) nextTrack() tea.Cmd {
	player := m.deps.Player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return errCmd(player.PlayNext(ctx))
	}
}

func (m Model) prevTrack() tea.Cmd {
	player := m.deps.Player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return errCmd(player.PlayPrevious(ctx))
	}
}

func (m Model) toggleLike(track core.Track) tea.Cmd {
	likes := m.deps.Likes
	player := m.deps.Player
	return func() tea.Msg {
		if likes == nil || !m.deps.SignedIn() {
			// Anonymous: the advisory flag is all there is.
			player.ToggleLike(&track)
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if _, err := likes.Toggle(ctx, track); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) copyLink(track core.Track) tea.Cmd {
	link := trackLink(m.deps.LinkBase, track)
	return func() tea.Msg {
		if err := clipboard.WriteAll(link); err != nil {
			return errMsg{fmt.Errorf("copy link: %w", err)}
		}
		return noticeMsg("Copied " + link)
	}
}

// trackLink returns the web page for track under base.
func trackLink(base string, track core.Track) string {
	return strings.TrimRight(base, "/") + "/track/" + url.PathEscape(track.ID)
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	styles.ApplyTheme(m.deps.Theme)
	m.deps.Player.Subscribe(m.feed.observe)
	return tea.Batch(
		m.tick(),
		m.feed.wait(),
		m.fetchLibrary(),
		m.fetchHistory(),
		m.waitHistoryChange(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if time.Now().After(m.errorExpiry) {
			m.lastError = nil
			m.notice = ""
		}
		return m, m.tick()

	case stateMsg:
		m.state = msg.state
		cmds := []tea.Cmd{m.feed.wait()}
		if msg.err != nil {
			m.setError(msg.err)
		}
		if msg.trackStarted {
			cmds = append(cmds, m.fetchHistory())
		}
		return m, tea.Batch(cmds...)

	case libraryMsg:
		m.library = msg
		return m, nil

	case historyMsg:
		m.history = msg
		return m, nil

	case historyChangedMsg:
		return m, tea.Batch(m.fetchHistory(), m.waitHistoryChange())

	case errMsg:
		m.setError(msg.err)
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		m.errorExpiry = time.Now().Add(3 * time.Second)
		return m, nil

	case searchDebounceMsg:
		if msg.query == m.searchInput.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}

	case searchResultsMsg:
		m.searching = false
		m.searchResults = msg.results
		m.searchErr = msg.err
		m.searchCursor = 0
		return m, nil
	}

	// Forward other messages to textinput when search is active
	if m.showSearch {
		var inputCmd tea.Cmd
		m.searchInput, inputCmd = m.searchInput.Update(msg)
		return m, inputCmd
	}

	return m, nil
}

func (m *Model) setError(err error) {
	m.lastError = err
	m.notice = ""
	m.errorExpiry = time.Now().Add(5 * time.Second)
	m.deps.Logger.Debug("ui error", zap.Error(err))
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		m.feed.close()
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showSearch {
		return m.handleSearchKeyPress(msg)
	}

	player := m.deps.Player

	switch msg.String() {
	case "q":
		m.quitting = true
		m.feed.close()
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "/":
		m.showSearch = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		m.lastQuery = ""
		m.searchErr = nil
		return m, textinput.Blink

	case "tab":
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
		return m, nil

	// Playback controls
	case " ":
		player.TogglePlayPause()
		return m, nil
	case "n":
		return m, m.nextTrack()
	case "p":
		return m, m.prevTrack()
	case "right", "l":
		player.SkipForward()
		return m, nil
	case "left", "h":
		player.SkipBack()
		return m, nil
	case "+", "=":
		player.SetVolume(m.state.Volume + volumeStep)
		return m, nil
	case "-":
		player.SetVolume(m.state.Volume - volumeStep)
		return m, nil
	case "s":
		player.ToggleShuffle()
		return m, nil
	case "r":
		player.ToggleRepeat()
		return m, nil
	case "ctrl+r":
		return m, tea.Batch(m.fetchLibrary(), m.fetchHistory())
	}

	switch m.focusedPanel {
	case PanelNowPlaying:
		switch msg.String() {
		case "f":
			if m.state.Track != nil {
				return m, m.toggleLike(*m.state.Track)
			}
		case "y":
			if m.state.Track != nil {
				return m, m.copyLink(*m.state.Track)
			}
		}

	case PanelQueue:
		n := m.state.Queue.Len()
		switch msg.String() {
		case "j", "down":
			m.queueView.SelectNext(n)
		case "k", "up":
			m.queueView.SelectPrev()
		case "enter":
			if n > 0 {
				return m, m.playQueueIndex(m.queueView.Selected())
			}
		case "x", "delete":
			if n > 0 {
				player.RemoveFromQueue(m.queueView.Selected())
			}
		case "c":
			player.ClearQueue()
		}

	case PanelLibrary:
		n := len(m.library)
		sel := m.libraryView.Selected()
		switch msg.String() {
		case "j", "down":
			m.libraryView.SelectNext(n)
		case "k", "up":
			m.libraryView.SelectPrev()
		case "enter":
			if sel < n {
				return m, m.play(m.library[sel], m.library, sel)
			}
		case "a":
			if sel < n {
				player.AddToQueue(m.library[sel])
				return m, func() tea.Msg { return noticeMsg("Queued " + m.library[sel].Title) }
			}
		case "f":
			if sel < n {
				return m, m.toggleLike(m.library[sel])
			}
		case "y":
			if sel < n {
				return m, m.copyLink(m.library[sel])
			}
		}

	case PanelHistory:
		n := len(m.history)
		switch msg.String() {
		case "j", "down":
			m.historyView.SelectNext(n)
		case "k", "up":
			m.historyView.SelectPrev()
		case "enter":
			if sel := m.historyView.Selected(); sel < n && m.history[sel].Track != nil {
				t := *m.history[sel].Track
				return m, m.play(t, []core.Track{t}, 0)
			}
		}
	}

	return m, nil
}

func (m Model) handleSearchKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.showSearch = false
		m.searchInput.Blur()
		return m, nil

	case "enter":
		if m.searchCursor < len(m.searchResults) {
			m.showSearch = false
			m.searchInput.Blur()
			return m, m.play(m.searchResults[m.searchCursor], m.searchResults, m.searchCursor)
		}
		return m, nil

	case "up", "ctrl+p":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil

	case "ctrl+q":
		if m.searchCursor < len(m.searchResults) {
			t := m.searchResults[m.searchCursor]
			m.deps.Player.AddToQueue(t)
			m.showSearch = false
			m.searchInput.Blur()
			return m, func() tea.Msg { return noticeMsg("Queued " + t.Title) }
		}
		return m, nil
	}

	var inputCmd tea.Cmd
	m.searchInput, inputCmd = m.searchInput.Update(msg)
	cmds = append(cmds, inputCmd)

	// Debounce search
	if q := m.searchInput.Value(); q != m.lastQuery {
		cmds = append(cmds, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{query: q}
		}))
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.showSearch {
		return m.renderSearch()
	}

	// Left: Now Playing (top), Queue (bottom)
	// Right: Library (top), History (bottom)
	leftWidth := m.width * 55 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 40 / 100
	bottomHeight := m.height - topHeight - 3

	state := m.state
	liked := func(id string) bool { return state.IsLiked(id) }

	nowPlaying := m.nowPlaying.Render(&state, leftWidth-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	queueView := m.queueView.Render(&state.Queue, leftWidth-2, bottomHeight-2, m.focusedPanel == PanelQueue)
	libraryView := m.libraryView.Render(m.library, liked, rightWidth-2, topHeight-2, m.focusedPanel == PanelLibrary)
	historyView := m.historyView.Render(m.history, m.deps.SignedIn(), rightWidth-2, bottomHeight-2, m.focusedPanel == PanelHistory)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, queueView)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, libraryView, historyView)
	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	status := styles.Dim.Render("q:quit  ?:help  /:search  space:play/pause  n/p:next/prev  s:shuffle  r:repeat  tab:panel")

	switch {
	case m.lastError != nil:
		status = styles.ErrorText.Render("Error: " + m.lastError.Error())
	case m.notice != "":
		status = styles.Playing.Render(m.notice)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "Cadence - Keyboard Shortcuts"
	divider := strings.Repeat("═", len(title))

	help := `
  ` + title + `
  ` + divider + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  /            Search
  Tab          Next panel
  Shift+Tab    Previous panel
  Ctrl+R       Refresh library and history

  Playback
  ────────
  Space        Play/Pause
  n / p        Next / previous track
  ← / →        Seek back / forward
  + / -        Volume up / down
  s            Toggle shuffle
  r            Cycle repeat (off, all, one)

  Now Playing / Library
  ─────────────────────
  f            Like / unlike
  y            Copy track link
  Enter        Play selected (library)
  a            Add to queue (library)

  Queue
  ─────
  j/↓ k/↑      Move selection
  Enter        Play selected
  x            Remove selected
  c            Clear queue

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Render(help))
}

func (m Model) renderSearch() string {
	var b strings.Builder

	b.WriteString(styles.Highlight.Render("Search"))
	b.WriteString("\n\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	selectedStyle := lipgloss.NewStyle().Background(styles.Border)

	switch {
	case m.searchErr != nil:
		b.WriteString(styles.ErrorText.Render("Error: " + m.searchErr.Error()))
	case m.searching:
		b.WriteString(styles.Muted.Render("Searching..."))
	case len(m.searchResults) == 0 && m.searchInput.Value() != "" && m.lastQuery != "":
		b.WriteString(styles.Muted.Render("No results found"))
	default:
		const maxResults = 10
		for i, t := range m.searchResults {
			if i >= maxResults {
				b.WriteString(styles.Muted.Render("  ...and more"))
				break
			}

			line := t.Title + " " + styles.Muted.Render(t.DisplayArtist()+" · "+core.FormatClock(t.Duration))
			if i == m.searchCursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("↑/↓:nav  Enter:play  Ctrl+q:queue  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

// Run starts the TUI and blocks until it exits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	model := NewModel(deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	model.feed.close()
	return err
}
