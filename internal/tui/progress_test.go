package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressUpdatesAdvanceModel(t *testing.T) {
	m := NewRenderModel("render promo")

	next, _ := m.Update(ProgressMsg{Percent: 40, Step: "encoding segments"})
	m = next.(RenderModel)
	if m.percent != 40 || m.step != "encoding segments" {
		t.Fatalf("model = %d%% %q", m.percent, m.step)
	}
	if m.Done() {
		t.Fatalf("model finished early")
	}

	view := m.View()
	if !strings.Contains(view, "encoding segments") {
		t.Fatalf("view missing step: %s", view)
	}
}

func TestDoneMessageQuits(t *testing.T) {
	m := NewRenderModel("render promo")
	next, cmd := m.Update(DoneMsg{Detail: "/out/video.mp4"})
	m = next.(RenderModel)
	if !m.Done() || m.percent != 100 {
		t.Fatalf("model = done=%v %d%%", m.Done(), m.percent)
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if !strings.Contains(m.View(), "/out/video.mp4") {
		t.Fatalf("view missing output detail: %s", m.View())
	}
}

func TestErrorMessageSurfaces(t *testing.T) {
	m := NewRenderModel("render promo")
	next, _ := m.Update(ErrorMsg{Err: errors.New("encode exited 1")})
	m = next.(RenderModel)
	if m.Err() == nil {
		t.Fatalf("error lost")
	}
	if !strings.Contains(m.View(), "encode exited 1") {
		t.Fatalf("view missing error: %s", m.View())
	}
}

func TestCtrlCStopsDisplay(t *testing.T) {
	m := NewRenderModel("render promo")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(RenderModel)
	if !m.Done() || cmd == nil {
		t.Fatalf("ctrl+c should quit the display")
	}
}
