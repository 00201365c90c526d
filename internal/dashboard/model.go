// Package dashboard is the interactive terminal front-end.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

const (
	title       = "User Management Dashboard"
	placeholder = "Search by name, username, or email..."
	noResults   = "No users found"
	footerLines = 2

	tickInterval = 100 * time.Millisecond
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	loadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	markStyle    = lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Options configures a Model
type Options struct {
	Session    *session.Session
	Collator   *view.Collator
	Sort       user.SortField
	Search     string
	LinkScheme string
	Source     string              // shown under the title
	Logs       *LogBuffer          // optional footer
	Mark       func(string) string // renders matched text, defaults to a highlight style
	Hyperlinks bool                // emit OSC 8 links for the website column
}

// Model is the Bubble Tea model of the dashboard. The search text and sort
// field live here, outside the fetch cycle, so they survive reloads.
type Model struct {
	session    *session.Session
	collator   *view.Collator
	linkScheme string
	source     string
	logs       *LogBuffer
	mark       func(string) string
	hyperlinks bool

	state  session.State
	search string
	sort   user.SortField

	spinner   int
	ticking   bool
	tickEvery time.Duration
	width     int
	height    int
}

// Settings are the parts of the model that come from the config file and
// can change when it is reloaded
type Settings struct {
	Collator   *view.Collator
	LinkScheme string
	Source     string
	Sort       user.SortField // empty keeps the current field
}

// Message types
type (
	reloadMsg    struct{}
	settingsMsg  Settings
	tickMsg      time.Time
	fetchDoneMsg struct {
		cycle uint64
		users []user.User
		err   error
	}
)

// Reload returns a message that starts a new fetch cycle
func Reload() tea.Msg {
	return reloadMsg{}
}

// Apply returns a message that swaps in reloaded settings and starts a new
// fetch cycle
func Apply(s Settings) tea.Msg {
	return settingsMsg(s)
}

// NewModel creates a dashboard model in the Loading state
func NewModel(opts Options) Model {
	mark := opts.Mark
	if mark == nil {
		mark = func(s string) string { return markStyle.Render(s) }
	}
	sort := opts.Sort
	if sort == "" {
		sort = user.SortByName
	}
	return Model{
		session:    opts.Session,
		collator:   opts.Collator,
		linkScheme: opts.LinkScheme,
		source:     opts.Source,
		logs:       opts.Logs,
		mark:       mark,
		hyperlinks: opts.Hyperlinks,
		state:      session.Loading{},
		search:     opts.Search,
		sort:       sort,
		tickEvery:  tickInterval,
	}
}

// Init starts the first fetch cycle
func (m Model) Init() tea.Cmd {
	return Reload
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case reloadMsg:
		cmd := m.startFetch()
		return m, cmd

	case settingsMsg:
		if msg.Collator != nil {
			m.collator = msg.Collator
		}
		m.linkScheme = msg.LinkScheme
		m.source = msg.Source
		if msg.Sort != "" {
			m.sort = msg.Sort
		}
		cmd := m.startFetch()
		return m, cmd

	case fetchDoneMsg:
		m.session.Complete(msg.cycle, msg.users, msg.err)
		m.state = m.session.State()
		return m, nil

	case tickMsg:
		if _, ok := m.state.(session.Loading); !ok {
			m.ticking = false
			return m, nil
		}
		m.spinner++
		return m, m.tick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.state.(type) {
	case session.Loading:
		if msg.String() == "q" {
			return m, tea.Quit
		}
	case session.Failed:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "r", "enter":
			cmd := m.startFetch()
			return m, cmd
		}
	case session.Ready:
		switch msg.Type {
		case tea.KeyRunes:
			m.search += string(msg.Runes)
		case tea.KeySpace:
			m.search += " "
		case tea.KeyBackspace:
			if r := []rune(m.search); len(r) > 0 {
				m.search = string(r[:len(r)-1])
			}
		case tea.KeyEsc, tea.KeyCtrlU:
			m.search = ""
		case tea.KeyTab:
			m.sort = m.sort.Next()
		case tea.KeyShiftTab:
			m.sort = m.sort.Prev()
		case tea.KeyCtrlR:
			cmd := m.startFetch()
			return m, cmd
		}
	}
	return m, nil
}

// startFetch begins a cycle synchronously, so the Loading state is visible
// on the next render, and fetches in a command. The spinner tick runs only
// while loading.
func (m *Model) startFetch() tea.Cmd {
	ctx, cycle, fetcher := m.session.Begin(context.Background())
	m.state = session.Loading{}
	fetch := func() tea.Msg {
		users, err := fetcher.Fetch(ctx)
		return fetchDoneMsg{cycle: cycle, users: users, err: err}
	}
	if m.ticking {
		return fetch
	}
	m.ticking = true
	return tea.Batch(fetch, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Search returns the current search text
func (m Model) Search() string {
	return m.search
}

// SortField returns the current sort field
func (m Model) SortField() user.SortField {
	return m.sort
}

// State returns the display state
func (m Model) State() session.State {
	return m.state
}

// View renders the UI
func (m Model) View() string {
	var s strings.Builder

	switch st := m.state.(type) {
	case session.Loading:
		frame := spinnerFrames[m.spinner%len(spinnerFrames)]
		s.WriteString(loadingStyle.Render(frame + " Loading users..."))
		s.WriteString("\n\n")
		s.WriteString(dimStyle.Render("Press 'q' to quit"))

	case session.Failed:
		s.WriteString(errorStyle.Render("Error: "))
		s.WriteString(st.Message)
		s.WriteString("\n\n")
		s.WriteString(dimStyle.Render("[ Retry ]  press 'r' or enter to retry, 'q' to quit"))

	case session.Ready:
		m.renderReady(&s, st.Users)
	}

	if m.logs != nil {
		var lines []string
		for _, e := range m.logs.Recent(footerLines) {
			line := fmt.Sprintf("[%s] %s", e.Timestamp.Format("15:04:05"), e.Message)
			if m.width > 0 {
				line = ansi.Truncate(line, m.width, "...")
			}
			lines = append(lines, footerStyle(e.Level).Render(line))
		}
		if len(lines) > 0 {
			s.WriteString("\n\n")
			s.WriteString(strings.Join(lines, "\n"))
		}
	}

	return s.String()
}

func footerStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return errorStyle
	case level >= slog.LevelWarn:
		return warnStyle
	default:
		return dimStyle
	}
}

func (m Model) renderReady(s *strings.Builder, users []user.User) {
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")
	if m.source != "" {
		s.WriteString(dimStyle.Render("Source: " + m.source))
		s.WriteString("\n")
	}
	s.WriteString(fmt.Sprintf("Total Users: %s\n\n", activeStyle.Render(strconv.Itoa(len(users)))))

	if m.search == "" {
		s.WriteString("Search: " + dimStyle.Render(placeholder))
	} else {
		s.WriteString("Search: " + m.search + "█")
	}
	s.WriteString("\n")

	var options []string
	for _, f := range user.SortFields() {
		if f == m.sort {
			options = append(options, activeStyle.Render("● "+f.Label()))
		} else {
			options = append(options, dimStyle.Render("○ "+f.Label()))
		}
	}
	s.WriteString(strings.Join(options, "  "))
	s.WriteString("\n\n")

	s.WriteString(m.renderTable(users))
	s.WriteString("\n")
	s.WriteString(dimStyle.Render("type to search • tab: sort field • esc: clear • ctrl+r: reload • ctrl+c: quit"))
}

func (m Model) renderTable(users []user.User) string {
	derived := view.Derive(users, m.search, m.sort, m.collator)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "Name", "Username", "Email", "Phone", "Website").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if m.width > 0 {
		t = t.Width(m.width)
	}

	if len(derived) == 0 {
		return t.Row("", noResults, "", "", "", "").String()
	}

	for _, r := range view.Rows(derived, m.search, m.collator) {
		t = t.Row(
			strconv.Itoa(r.User.ID),
			view.Join(r.Name, m.mark),
			r.User.Username,
			view.Join(r.Email, m.mark),
			r.User.Phone,
			m.website(r.User),
		)
	}
	return t.String()
}

func (m Model) website(u user.User) string {
	if !m.hyperlinks {
		return u.Website
	}
	return ansi.SetHyperlink(u.Link(m.linkScheme)) + u.Website + ansi.ResetHyperlink()
}
