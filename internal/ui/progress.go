// Package ui renders the interactive progress view of loxmin check.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"loxmin/internal/driver"
)

type checkModel struct {
	title   string
	events  <-chan driver.CheckEvent
	spinner spinner.Model
	prog    progress.Model
	items   []scriptItem
	index   map[string]int
	passed  int
	failed  int
	width   int
	done    bool
}

type scriptItem struct {
	path   string
	status driver.CheckStatus
}

type eventMsg driver.CheckEvent
type doneMsg struct{}

// NewCheckModel returns a Bubble Tea model that follows a check run. The
// model quits once events is closed.
func NewCheckModel(title string, files []string, events <-chan driver.CheckEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]scriptItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, scriptItem{path: file, status: driver.CheckQueued})
		index[file] = i
	}
	return &checkModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *checkModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *checkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.CheckEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// View lists running and failed scripts; passed ones only count.
func (m *checkModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, m.passed+m.failed, len(m.items))
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-12, 20)
	for _, item := range m.items {
		if item.status != driver.CheckRunning && item.status != driver.CheckFailed {
			continue
		}
		status := styleStatus(item.status).Render(fmt.Sprintf("%8s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.path, nameWidth))
	}

	fmt.Fprintf(&b, "\n  %s  %s\n",
		styleStatus(driver.CheckPassed).Render(fmt.Sprintf("%d passed", m.passed)),
		styleStatus(driver.CheckFailed).Render(fmt.Sprintf("%d failed", m.failed)))
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *checkModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *checkModel) applyEvent(ev driver.CheckEvent) tea.Cmd {
	idx, ok := m.index[ev.Path]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.status == driver.CheckPassed || item.status == driver.CheckFailed {
		return nil
	}
	item.status = ev.Status
	switch ev.Status {
	case driver.CheckPassed:
		m.passed++
	case driver.CheckFailed:
		m.failed++
	}
	return m.prog.SetPercent(float64(m.passed+m.failed) / float64(len(m.items)))
}

func styleStatus(status driver.CheckStatus) lipgloss.Style {
	switch status {
	case driver.CheckPassed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case driver.CheckFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case driver.CheckRunning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
