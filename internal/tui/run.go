package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunRender drives the progress display while work executes in the
// background. The work function receives a progress callback safe to
// call from its own goroutine; its returned detail string is shown on
// completion.
func RunRender(title string, work func(report func(percent int, step string)) (string, error)) error {
	p := tea.NewProgram(NewRenderModel(title))

	go func() {
		report := func(percent int, step string) {
			p.Send(ProgressMsg{Percent: percent, Step: step})
		}
		detail, err := work(report)
		if err != nil {
			p.Send(ErrorMsg{Err: err})
			return
		}
		p.Send(DoneMsg{Detail: detail})
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress display: %w", err)
	}
	if m, ok := final.(RenderModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
