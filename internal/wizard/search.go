package wizard

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tessro/cadence/internal/core"
)

// SearchOrder selects how results are ranked.
type SearchOrder int

const (
	OrderRelevance SearchOrder = iota
	OrderNewest
	OrderMostPlayed
	OrderMostLiked

	orderCount = 4
)

var orderLabels = []string{"Relevance", "Newest", "Most played", "Most liked"}

// SortBy returns the server sort field for the order, empty for relevance.
func (o SearchOrder) SortBy() string {
	switch o {
	case OrderNewest:
		return "createdAt"
	case OrderMostPlayed:
		return "playCount"
	case OrderMostLiked:
		return "likeCount"
	}
	return ""
}

// SearchFunc is a function that performs a search.
type SearchFunc func(query string, order SearchOrder) ([]core.Track, error)

// SearchModel is the bubbletea model for the search wizard.
type SearchModel struct {
	input      textinput.Model
	results    []core.Track
	cursor     int
	order      SearchOrder
	searchFunc SearchFunc
	selected   *core.Track
	err        error
	debounce   time.Duration
	lastQuery  string
	searching  bool
	width      int
	height     int
}

// Styles
var (
	searchTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	searchTabStyle = lipgloss.NewStyle().
			Padding(0, 2)

	searchActiveTabStyle = lipgloss.NewStyle().
				Padding(0, 2).
				Background(lipgloss.Color("205")).
				Foreground(lipgloss.Color("0"))

	searchResultStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	searchSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("237"))

	searchSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))
)

// NewSearchModel creates a new search wizard model.
func NewSearchModel(searchFunc SearchFunc) SearchModel {
	ti := textinput.New()
	ti.Placeholder = "Search tracks and artists..."
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	return SearchModel{
		input:      ti,
		searchFunc: searchFunc,
		debounce:   300 * time.Millisecond,
		width:      80,
		height:     20,
	}
}

// Init initializes the model.
func (m SearchModel) Init() tea.Cmd {
	return textinput.Blink
}

// debounceMsg is sent after the debounce period.
type debounceMsg struct {
	query string
}

// searchResultsMsg contains search results.
type searchResultsMsg struct {
	results []core.Track
	err     error
}

// Update handles messages.
func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			if len(m.results) > 0 && m.cursor < len(m.results) {
				m.selected = &m.results[m.cursor]
				return m, tea.Quit
			}

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil

		case "tab":
			m.order = (m.order + 1) % orderCount
			if m.input.Value() != "" {
				m.searching = true
				return m, m.doSearch(m.input.Value())
			}
			return m, nil

		case "shift+tab":
			m.order = (m.order + orderCount - 1) % orderCount
			if m.input.Value() != "" {
				m.searching = true
				return m, m.doSearch(m.input.Value())
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case debounceMsg:
		if msg.query == m.input.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}
		return m, nil

	case searchResultsMsg:
		m.searching = false
		m.results = msg.results
		m.err = msg.err
		m.cursor = 0
		return m, nil
	}

	// Handle text input
	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	// Debounce search
	if q := m.input.Value(); q != m.lastQuery {
		cmds = append(cmds, tea.Tick(m.debounce, func(time.Time) tea.Msg {
			return debounceMsg{query: q}
		}))
	}

	return m, tea.Batch(cmds...)
}

// doSearch performs the search.
func (m SearchModel) doSearch(query string) tea.Cmd {
	order := m.order
	fn := m.searchFunc
	return func() tea.Msg {
		if query == "" || fn == nil {
			return searchResultsMsg{}
		}
		results, err := fn(query, order)
		return searchResultsMsg{results: results, err: err}
	}
}

// View renders the model.
func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(searchTitleStyle.Render("🔍 Search"))
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	for i, tab := range orderLabels {
		if SearchOrder(i) == m.order {
			b.WriteString(searchActiveTabStyle.Render(tab))
		} else {
			b.WriteString(searchTabStyle.Render(tab))
		}
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: " + m.err.Error()))
	case m.searching:
		b.WriteString("Searching...")
	case len(m.results) == 0 && m.lastQuery != "":
		b.WriteString("No results found")
	default:
		maxResults := m.height - 10
		if maxResults < 5 {
			maxResults = 5
		}
		for i, t := range m.results {
			if i >= maxResults {
				b.WriteString(searchSubtitleStyle.Render("  ...and more"))
				break
			}

			line := t.Title + " " + searchSubtitleStyle.Render(resultSubtitle(t))
			if i == m.cursor {
				b.WriteString(searchSelectedStyle.Render("▸ " + line))
			} else {
				b.WriteString(searchResultStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(searchSubtitleStyle.Render("↑/↓ navigate • tab sort • enter select • esc quit"))

	return b.String()
}

func resultSubtitle(t core.Track) string {
	parts := []string{t.DisplayArtist()}
	if t.Duration > 0 {
		parts = append(parts, core.FormatClock(t.Duration))
	}
	if t.PlayCount > 0 {
		parts = append(parts, humanize.Comma(int64(t.PlayCount))+" plays")
	}
	return strings.Join(parts, " · ")
}

// Selected returns the selected track, or nil if none.
func (m SearchModel) Selected() *core.Track {
	return m.selected
}

// RunSearch runs the search wizard and returns the selected track.
func RunSearch(searchFunc SearchFunc) (*core.Track, error) {
	model := NewSearchModel(searchFunc)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(SearchModel).Selected(), nil
}
