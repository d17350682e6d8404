// Package tui renders the node and relationship count as a terminal
// status bar.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// MaxWidth caps the status bar width.
	MaxWidth = 200
	// Hint is shown under the status bar.
	Hint = "node / relationship count"

	maxHistory     = 20
	viewportHeight = 10
	defaultWidth   = 80
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	barStyle = lipgloss.NewStyle().
			Bold(true).
			Align(lipgloss.Right).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	historyTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
)

// FetchFunc returns the current status text, typically from a remote daemon.
type FetchFunc func() (string, error)

// renderMsg carries a text from Presenter.Render; done is closed once the
// model has taken it.
type renderMsg struct {
	text string
	done chan struct{}
}

type tickMsg time.Time

type statusMsg struct {
	text string
	err  error
}

type historyEntry struct {
	at   time.Time
	text string
}

// Model is the Bubble Tea model of the status bar.
type Model struct {
	spinner  spinner.Model
	viewport viewport.Model
	text     string
	history  []historyEntry
	err      error
	width    int
	ready    bool

	fetch    FetchFunc
	pollRate time.Duration
}

// NewModel creates a model that is fed through Presenter.Render.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		spinner:  s,
		viewport: newViewport(defaultWidth),
		width:    defaultWidth,
	}
}

// NewRemoteModel creates a model that calls fetch every pollRate.
func NewRemoteModel(fetch FetchFunc, pollRate time.Duration) Model {
	m := NewModel()
	m.fetch = fetch
	m.pollRate = pollRate
	return m
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62"))
	return vp
}

// Text returns the text currently displayed.
func (m Model) Text() string {
	return m.text
}

func (m Model) Init() tea.Cmd {
	if m.fetch == nil {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, fetchStatus(m.fetch), tick(m.pollRate))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case renderMsg:
		m.show(msg.text)
		m.err = nil
		close(msg.done)

	case tickMsg:
		return m, tea.Batch(fetchStatus(m.fetch), tick(m.pollRate))

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			if msg.text != m.text || !m.ready {
				m.show(msg.text)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = m.barWidth()
		m.viewport.Height = viewportHeight
	}

	return m, nil
}

func (m *Model) show(text string) {
	m.text = text
	m.ready = true
	m.history = append(m.history, historyEntry{at: time.Now(), text: text})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}

	var sb strings.Builder
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		sb.WriteString(fmt.Sprintf("%s %s\n", historyTimeStyle.Render(e.at.Format("15:04:05")), e.text))
	}
	m.viewport.SetContent(sb.String())
}

func (m Model) barWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	if m.width > MaxWidth {
		return MaxWidth
	}
	return m.width
}

func (m Model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Waiting for the first count...", m.spinner.View())
	}

	bar := barStyle.Width(m.barWidth()).Render(m.text)
	hint := subtleStyle.Width(m.barWidth()).Align(lipgloss.Right).Render(Hint)

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("%s Live • %d updates", m.spinner.View(), len(m.history)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, bar, hint, m.viewport.View(), footer)
}

// Commands

func fetchStatus(fetch FetchFunc) tea.Cmd {
	return func() tea.Msg {
		text, err := fetch()
		return statusMsg{text: text, err: err}
	}
}

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
