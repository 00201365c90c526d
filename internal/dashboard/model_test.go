package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var testUsers = []user.User{
	{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz", Phone: "1-770-736-8031 x56442", Website: "hildegard.org"},
	{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Phone: "010-692-6593 x09125", Website: "anastasia.net"},
	{ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net", Phone: "1-463-123-4447", Website: "ramiro.info"},
}

type queuedFetcher struct {
	results []error
	calls   int
}

func (f *queuedFetcher) Fetch(ctx context.Context) ([]user.User, error) {
	var err error
	if f.calls < len(f.results) {
		err = f.results[f.calls]
	}
	f.calls++
	if err != nil {
		return nil, err
	}
	return testUsers, nil
}

func newTestModel(t *testing.T, f *queuedFetcher) Model {
	t.Helper()
	c, err := view.NewCollator("en")
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(Options{
		Session:  session.New(f, quiet),
		Collator: c,
		Mark:     func(s string) string { return "[" + s + "]" },
	})
	m.tickEvery = time.Millisecond
	return m
}

// run executes cmd, expanding batches, and returns the messages produced
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, run(c)...)
	}
	return msgs
}

// fetched returns the fetch result produced by cmd
func fetched(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	for _, msg := range run(cmd) {
		if done, ok := msg.(fetchDoneMsg); ok {
			return done
		}
	}
	t.Fatal("Command did not fetch")
	return nil
}

// send applies msg and runs any fetch command it returns to completion
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, msg := range run(cmd) {
		if done, ok := msg.(fetchDoneMsg); ok {
			next, _ = m.Update(done)
			m = next.(Model)
		}
	}
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialStateIsLoading(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	if _, ok := m.State().(session.Loading); !ok {
		t.Fatalf("Expected Loading, got %T", m.State())
	}
	if !strings.Contains(m.View(), "Loading users...") {
		t.Errorf("Loading view missing text:\n%s", m.View())
	}
	if m.Init() == nil {
		t.Error("Init should return a command")
	}
}

func TestReloadShowsLoadingUntilFetchCompletes(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	next, cmd := m.Update(Reload())
	m = next.(Model)
	if _, ok := m.State().(session.Loading); !ok {
		t.Fatalf("Expected Loading while fetching, got %T", m.State())
	}

	next, _ = m.Update(fetched(t, cmd))
	m = next.(Model)
	if _, ok := m.State().(session.Ready); !ok {
		t.Fatalf("Expected Ready after fetch, got %T", m.State())
	}
}

func TestReadyViewShowsAllRowsAndCount(t *testing.T) {
	m := send(t, newTestModel(t, &queuedFetcher{}), Reload())

	out := m.View()
	for _, want := range []string{"User Management Dashboard", "Total Users: 3", "Leanne Graham", "Shanna@melissa.tv", "ramiro.info", "Sort by Name"} {
		if !strings.Contains(out, want) {
			t.Errorf("Ready view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, noResults) {
		t.Errorf("Ready view should not show the empty row")
	}
}

func TestSearchFiltersAndHighlights(t *testing.T) {
	m := send(t, newTestModel(t, &queuedFetcher{}), Reload())
	m = send(t, m, keys("me"))

	if m.Search() != "me" {
		t.Fatalf("Expected search 'me', got %q", m.Search())
	}
	out := m.View()
	if !strings.Contains(out, "Cle[me]ntine Bauch") {
		t.Errorf("Expected highlighted name:\n%s", out)
	}
	if !strings.Contains(out, "Shanna@[me]lissa.tv") {
		t.Errorf("Expected highlighted email:\n%s", out)
	}
	if strings.Contains(out, "Leanne Graham") {
		t.Errorf("Non-matching users should be filtered:\n%s", out)
	}
	// Header count is the unfiltered total
	if !strings.Contains(out, "Total Users: 3") {
		t.Errorf("Expected unfiltered total:\n%s", out)
	}
}

func TestSearchEditing(t *testing.T) {
	m := send(t, newTestModel(t, &queuedFetcher{}), Reload())

	m = send(t, m, keys("zz"))
	if !strings.Contains(m.View(), noResults) {
		t.Errorf("Expected empty result row:\n%s", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.Search() != "z" {
		t.Errorf("Backspace should remove one rune, got %q", m.Search())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if m.Search() != "z " {
		t.Errorf("Space should append, got %q", m.Search())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Search() != "" {
		t.Errorf("Esc should clear search, got %q", m.Search())
	}
	// 'q' is text while ready
	m = send(t, m, keys("q"))
	if m.Search() != "q" {
		t.Errorf("Expected 'q' to be typed, got %q", m.Search())
	}
}

func TestTabCyclesSortField(t *testing.T) {
	m := send(t, newTestModel(t, &queuedFetcher{}), Reload())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.SortField() != user.SortByEmail {
		t.Fatalf("Expected email after tab, got %q", m.SortField())
	}

	// By email: Nathan@, Shanna@, Sincere@
	out := m.View()
	nathan := strings.Index(out, "Nathan@yesenia.net")
	shanna := strings.Index(out, "Shanna@melissa.tv")
	sincere := strings.Index(out, "Sincere@april.biz")
	if !(nathan < shanna && shanna < sincere) {
		t.Errorf("Rows not sorted by email:\n%s", out)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.SortField() != user.SortByName {
		t.Errorf("Expected name after shift+tab, got %q", m.SortField())
	}
}

func TestFailureShowsErrorAndRetryFetchesOnce(t *testing.T) {
	f := &queuedFetcher{results: []error{errors.New("connection refused")}}
	m := send(t, newTestModel(t, f), Reload())

	if _, ok := m.State().(session.Failed); !ok {
		t.Fatalf("Expected Failed, got %T", m.State())
	}
	out := m.View()
	if !strings.Contains(out, "Error: ") || !strings.Contains(out, "connection refused") || !strings.Contains(out, "Retry") {
		t.Errorf("Error view incomplete:\n%s", out)
	}

	m = send(t, m, keys("r"))
	if f.calls != 2 {
		t.Errorf("Retry should issue exactly one new fetch, got %d calls", f.calls)
	}
	if _, ok := m.State().(session.Ready); !ok {
		t.Errorf("Expected Ready after retry, got %T", m.State())
	}
}

func TestSearchAndSortSurviveReload(t *testing.T) {
	m := send(t, newTestModel(t, &queuedFetcher{}), Reload())
	m = send(t, m, keys("an"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = next.(Model)
	if _, ok := m.State().(session.Loading); !ok {
		t.Fatalf("Expected Loading during reload, got %T", m.State())
	}
	next, _ = m.Update(fetched(t, cmd))
	m = next.(Model)

	if m.Search() != "an" || m.SortField() != user.SortByEmail {
		t.Errorf("Inputs lost across reload: search %q sort %q", m.Search(), m.SortField())
	}
}

func TestStaleFetchResultIgnored(t *testing.T) {
	f := &queuedFetcher{results: []error{errors.New("slow and stale"), nil}}
	m := newTestModel(t, f)

	next, first := m.Update(Reload())
	m = next.(Model)
	next, second := m.Update(Reload())
	m = next.(Model)

	// Run the second before the first, as a slow first response would
	staleMsg := fetched(t, first)
	next, _ = m.Update(fetched(t, second))
	m = next.(Model)
	next, _ = m.Update(staleMsg)
	m = next.(Model)

	if _, ok := m.State().(session.Ready); !ok {
		t.Errorf("Stale result replaced newer state: %T", m.State())
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatal("Expected quit command while loading")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected QuitMsg")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected quit command on ctrl+c")
	}
}

func TestLogFooter(t *testing.T) {
	buf := NewLogBuffer(10)
	m := newTestModel(t, &queuedFetcher{})
	m.logs = buf

	for _, msg := range []string{"one", "two", "three"} {
		buf.Record(slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0))
	}
	out := m.View()
	if strings.Contains(out, "one") || !strings.Contains(out, "two") || !strings.Contains(out, "three") {
		t.Errorf("Footer should show the newest %d lines:\n%s", footerLines, out)
	}
}

func TestLogBufferLimit(t *testing.T) {
	buf := NewLogBuffer(2)
	for _, msg := range []string{"a", "b", "c"} {
		buf.Record(slog.NewRecord(time.Now(), slog.LevelWarn, msg, 0))
	}
	got := buf.Recent(5)
	if len(got) != 2 || got[0].Message != "[WARN] b" || got[1].Message != "[WARN] c" {
		t.Errorf("Unexpected entries %+v", got)
	}
}

func TestWebsiteHyperlink(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	m.hyperlinks = true
	m.linkScheme = "https://"

	got := m.website(testUsers[0])
	if !strings.Contains(got, "https://hildegard.org") || !strings.Contains(got, "hildegard.org") {
		t.Errorf("Expected hyperlink to scheme-prefixed website, got %q", got)
	}
}

func TestTickRunsOnlyWhileLoading(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	next, cmd := m.Update(Reload())
	m = next.(Model)

	var done tea.Msg
	var ticked bool
	for _, msg := range run(cmd) {
		switch msg.(type) {
		case tickMsg:
			ticked = true
		case fetchDoneMsg:
			done = msg
		}
	}
	if !ticked {
		t.Fatal("Starting a fetch should start the spinner tick")
	}

	next, cmd = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("Tick should re-arm while loading")
	}

	next, _ = m.Update(done)
	m = next.(Model)
	if _, cmd = m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("Tick should stop once the fetch is done")
	}
}

func TestSecondFetchWhileTickingDoesNotStartAnotherTick(t *testing.T) {
	m := newTestModel(t, &queuedFetcher{})
	next, _ := m.Update(Reload())
	m = next.(Model)
	_, cmd := m.Update(Reload())

	for _, msg := range run(cmd) {
		if _, ok := msg.(tickMsg); ok {
			t.Error("Only one tick loop should run")
		}
	}
}

func TestApplySettingsSwapsCollatorAndRefetches(t *testing.T) {
	f := &queuedFetcher{}
	m := send(t, newTestModel(t, f), Reload())
	m = send(t, m, keys("an"))

	de, err := view.NewCollator("de")
	if err != nil {
		t.Fatal(err)
	}
	m = send(t, m, Apply(Settings{
		Collator:   de,
		LinkScheme: "https://",
		Source:     "https://users.example/api",
		Sort:       user.SortByEmail,
	}))

	if f.calls != 2 {
		t.Errorf("Applying settings should fetch once, got %d calls", f.calls)
	}
	if m.collator != de || m.linkScheme != "https://" || m.SortField() != user.SortByEmail {
		t.Errorf("Settings not applied: locale %s scheme %q sort %q", m.collator.Locale(), m.linkScheme, m.SortField())
	}
	if m.Search() != "an" {
		t.Errorf("Search lost on settings change: %q", m.Search())
	}
	if !strings.Contains(m.View(), "Source: https://users.example/api") {
		t.Errorf("Expected new source:\n%s", m.View())
	}

	// An empty sort keeps what the user picked
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = send(t, m, Apply(Settings{Collator: de}))
	if m.SortField() != user.SortByName {
		t.Errorf("Expected sort kept, got %q", m.SortField())
	}
}

func TestFooterStyleFollowsLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  lipgloss.TerminalColor
	}{
		{slog.LevelError, lipgloss.Color("9")},
		{slog.LevelWarn, lipgloss.Color("11")},
		{slog.LevelInfo, lipgloss.Color("241")},
		{slog.LevelDebug, lipgloss.Color("241")},
	}
	for _, tt := range tests {
		if got := footerStyle(tt.level).GetForeground(); got != tt.want {
			t.Errorf("footerStyle(%s) foreground = %v, want %v", tt.level, got, tt.want)
		}
	}
}
