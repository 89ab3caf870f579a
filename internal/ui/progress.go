// Package ui renders live compilation progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"forget/internal/pipeline"
)

type progressModel struct {
	title   string
	events  <-chan pipeline.Event
	stages  map[pipeline.Stage]int
	spinner spinner.Model
	prog    progress.Model
	items   []funcItem
	index   map[string]int
	failed  int
	width   int
	done    bool
}

type funcItem struct {
	key    string
	status string
	// step is the number of stages finished so far.
	step int
	end  bool
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-function
// progress. stages lists every stage a function passes through, in order;
// rows are added as functions report their first event. The model quits
// once events is closed.
func NewProgressModel(title string, stages []pipeline.Stage, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	order := make(map[pipeline.Stage]int, len(stages))
	for i, s := range stages {
		order[s] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		stages:  order,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int),
		width:   80,
	}
}

// Stages returns the stages of a function compiled with passes.
func Stages(passes []pipeline.Pass) []pipeline.Stage {
	out := make([]pipeline.Stage, 0, len(passes)+2)
	out = append(out, pipeline.StageBuild)
	for _, p := range passes {
		out = append(out, pipeline.Stage(p.Name))
	}
	return append(out, pipeline.StagePrint)
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
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

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d functions", m.title, len(m.items))
	if m.failed > 0 {
		header += fmt.Sprintf(", %d failed", m.failed)
	}
	header += ")"
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 24
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, truncate(item.status, statusWidth)))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.key, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	key := ev.Function
	if ev.File != "" {
		key = ev.File + ": " + ev.Function
	}
	idx, ok := m.index[key]
	if !ok {
		idx = len(m.items)
		m.index[key] = idx
		m.items = append(m.items, funcItem{key: key})
	}
	item := &m.items[idx]
	if item.end {
		return nil
	}

	pos, known := m.stages[ev.Stage]
	switch ev.Status {
	case pipeline.StatusWorking:
		item.status = string(ev.Stage)
	case pipeline.StatusDone:
		if known {
			item.step = pos + 1
		}
		if ev.Stage == pipeline.StagePrint {
			item.status = "done"
			item.end = true
		}
	case pipeline.StatusError:
		item.status = "error: " + string(ev.Stage)
		item.end = true
		m.failed++
	}
	return m.prog.SetPercent(m.fraction())
}

// fraction is the share of finished stages over the rows seen so far.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 || len(m.stages) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		if item.end {
			total++
			continue
		}
		total += float64(item.step) / float64(len(m.stages))
	}
	return total / float64(len(m.items))
}

func styleStatus(status string) lipgloss.Style {
	switch {
	case status == "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case strings.HasPrefix(status, "error"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case status == "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
