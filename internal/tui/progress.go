package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// RenderModel is a bubbletea model showing a single render's progress
// bar, spinner and current pipeline step.
type RenderModel struct {
	title   string
	bar     progress.Model
	spin    spinner.Model
	percent int
	step    string
	detail  string
	done    bool
	err     error
	started time.Time
}

// NewRenderModel creates the progress display for one render.
func NewRenderModel(title string) RenderModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return RenderModel{
		title:   title,
		bar:     progress.New(progress.WithDefaultGradient()),
		spin:    sp,
		step:    "starting",
		started: time.Now(),
	}
}

// Init satisfies the tea.Model interface.
func (m RenderModel) Init() tea.Cmd {
	return m.spin.Tick
}

// Update satisfies the tea.Model interface.
func (m RenderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.percent = msg.Percent
		m.step = msg.Step
		return m, nil

	case DoneMsg:
		m.done = true
		m.percent = 100
		m.detail = msg.Detail
		return m, tea.Quit

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// The render itself keeps running; only the display stops.
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View satisfies the tea.Model interface.
func (m RenderModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteByte('\n')

	if m.err != nil {
		fmt.Fprintf(&b, "%s %v\n", ErrorStyle.Render("error:"), m.err)
		return b.String()
	}

	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteByte('\n')

	if m.done {
		fmt.Fprintf(&b, "%s in %s", OkStyle.Render("done"), time.Since(m.started).Round(time.Second))
		if m.detail != "" {
			fmt.Fprintf(&b, " -> %s", m.detail)
		}
		b.WriteByte('\n')
	} else {
		fmt.Fprintf(&b, "%s %s\n", m.spin.View(), StepStyle.Render(m.step))
	}
	return b.String()
}

// Done reports whether the model has finished.
func (m RenderModel) Done() bool { return m.done }

// Err returns any fatal error that ended the display.
func (m RenderModel) Err() error { return m.err }
