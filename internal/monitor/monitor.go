package monitor

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpr16/jobminer/internal/model"
	"github.com/vpr16/jobminer/internal/pipeline"
)

const (
	refreshInterval = 500 * time.Millisecond
	// Lines per record in the jobs view (title + subtitle + blank separator).
	jobItemHeight = 3
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(16)

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Source is what the monitor observes. *pipeline.Collector implements it.
type Source interface {
	Snapshot() []model.JobRecord
	Progress() pipeline.Summary
	Running() bool
}

// DoneMsg tells the monitor that the collection goroutine has returned.
// Send it with tea.Program.Send.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

type viewState int

const (
	viewStatus viewState = iota
	viewJobs
	viewDetail
)

// Model is the bubbletea model of the live collection monitor.
type Model struct {
	source  Source
	query   string
	records []model.JobRecord
	summary pipeline.Summary
	done    bool
	err     error

	view     viewState
	cursor   int
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	quitting bool
}

// New creates a monitor over source. query is shown in the title bar.
func New(source Source, query string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{source: source, query: query, spinner: sp}
}

// Quitting reports whether the user asked to quit, as opposed to the
// program ending for another reason.
func (m Model) Quitting() bool { return m.quitting }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "j":
		if m.view == viewStatus {
			m.view = viewJobs
		} else {
			m.view = viewStatus
		}
		m.renderContent()
		return m, nil
	case "esc", "backspace":
		switch m.view {
		case viewDetail:
			m.view = viewJobs
		case viewJobs:
			m.view = viewStatus
		}
		m.renderContent()
		return m, nil
	}

	switch m.view {
	case viewJobs:
		switch msg.String() {
		case "up", "k":
			m.moveCursor(-1)
			return m, nil
		case "down":
			m.moveCursor(1)
			return m, nil
		case "enter":
			if len(m.records) > 0 {
				m.view = viewDetail
				m.renderContent()
				m.viewport.SetYOffset(0)
			}
			return m, nil
		}
	case viewDetail:
		if msg.String() == "o" && m.cursor < len(m.records) {
			openURL(m.records[m.cursor].URL)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	m.records = m.source.Snapshot()
	m.summary = m.source.Progress()
	if m.cursor >= len(m.records) {
		m.cursor = max(len(m.records)-1, 0)
	}
	m.renderContent()
}

func (m *Model) resize() {
	// Title (1) + border (2) + status bar (1).
	w := max(m.width-4, 20)
	h := max(m.height-4, 5)
	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	m.renderContent()
}

func (m *Model) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.records)-1, 0))
	m.renderContent()

	top := m.cursor * jobItemHeight
	bottom := top + jobItemHeight - 1
	if top < m.viewport.YOffset {
		m.viewport.SetYOffset(top)
	} else if bottom >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(bottom - m.viewport.Height + 1)
	}
}

func (m *Model) renderContent() {
	if !m.ready {
		return
	}
	switch m.view {
	case viewJobs:
		m.viewport.SetContent(renderJobs(m.records, m.cursor))
	case viewDetail:
		if m.cursor < len(m.records) {
			m.viewport.SetContent(renderDetail(m.records[m.cursor], max(m.width-8, 20)))
		}
	default:
		m.viewport.SetContent(m.renderStatus())
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("jobminer · " + m.query)
	content := borderStyle.Width(m.width - 2).Render(m.viewport.View())

	var status string
	switch m.view {
	case viewJobs:
		status = fmt.Sprintf(" %d jobs    ↑/↓ cursor  enter detail  j status  q quit", len(m.records))
	case viewDetail:
		status = " o open URL  esc back  ↑/↓ scroll  q quit"
	default:
		status = " j jobs  q quit"
	}
	return title + "\n" + content + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func (m Model) renderStatus() string {
	var b strings.Builder
	switch {
	case m.done && m.err != nil:
		b.WriteString(errorStyle.Render("⚠ collection failed: "+m.err.Error()) + "\n\n")
	case m.done:
		b.WriteString(doneStyle.Render("✓ collection finished") + "\n\n")
	default:
		b.WriteString(m.spinner.View() + " collecting...\n\n")
	}

	s := m.summary
	addRow := func(label string, v int) {
		b.WriteString(labelStyle.Render(label) + strconv.Itoa(v) + "\n")
	}
	addRow("Listings", s.Listings)
	addRow("Processed", s.Processed)
	addRow("Saved", s.Accepted)
	addRow("Already seen", s.AlreadySeen)
	addRow("Malformed", s.Malformed)

	if len(s.Rejected) > 0 {
		b.WriteByte('\n')
		reasons := make([]string, 0, len(s.Rejected))
		for r := range s.Rejected {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			addRow(r, s.Rejected[model.RejectReason(r)])
		}
	}
	return b.String()
}

func renderJobs(records []model.JobRecord, cursor int) string {
	if len(records) == 0 {
		return "  (no jobs yet)"
	}

	var b strings.Builder
	for i, r := range records {
		titleSt, subtitleSt, prefix := jobTitleStyle, jobSubtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedJobTitleStyle, selectedJobSubtitleStyle, "> "
		}

		b.WriteString(prefix + titleSt.Render(r.Title) + "\n")
		posted := r.PostedDate
		if posted == "" {
			posted = "n/a"
		}
		b.WriteString(prefix + subtitleSt.Render(fmt.Sprintf("%s · %s · %s", r.Company, r.Location, posted)) + "\n")
		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderDetail(r model.JobRecord, width int) string {
	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}

	cols := model.RecordColumns
	row := r.Row()
	// Everything but the sections cell, which is rendered as lists below.
	for i := 0; i < len(cols)-1; i++ {
		addField(cols[i], row[i])
	}

	if len(r.Sections) > 0 {
		titles := make([]string, 0, len(r.Sections))
		for t := range r.Sections {
			titles = append(titles, t)
		}
		sort.Strings(titles)
		for _, t := range titles {
			b.WriteString("\n" + jobTitleStyle.Render(t) + "\n")
			for _, item := range r.Sections[t] {
				b.WriteString(wordWrap("• "+item, width) + "\n")
			}
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = "  " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run starts the monitor on the terminal's alternate screen and blocks until
// the user quits or the program is killed. onQuit runs when the user presses
// q or ctrl+c, typically to cancel the collection. done delivers the
// collection result; it may be nil.
func Run(m Model, done <-chan error, onQuit func()) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if done != nil {
		go func() {
			err, ok := <-done
			if ok {
				p.Send(DoneMsg{Err: err})
			}
		}()
	}

	result, err := p.Run()
	if err != nil {
		return err
	}
	if final, ok := result.(Model); ok && final.Quitting() && onQuit != nil {
		onQuit()
	}
	return nil
}
