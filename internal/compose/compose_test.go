package compose

import (
	"image/color"
	"math"
	"testing"

	"vidforge/internal/clip"
	"vidforge/internal/effects"
)

func solid(id string, d float64, z int, video bool) clip.Clip {
	c := clip.Solid(color.White, 32, 32, d)
	c.LayerID = id
	c.ZIndex = z
	c.IsVideo = video
	return c
}

func TestComposeNeedsBackboneOrBackground(t *testing.T) {
	clips := []clip.Clip{solid("text", 5, 1, false)}
	if _, err := Compose(clips, nil, "", 5, Options{Width: 640, Height: 360, FPS: 30}); err == nil {
		t.Fatalf("expected input error without background")
	}

	bg := solid("bg", 5, 0, false)
	tl, err := Compose(clips, &bg, "/tmp/a.m4a", 5, Options{Width: 640, Height: 360, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(tl.Units) != 1 || tl.Units[0].Clip.LayerID != "bg" {
		t.Fatalf("background should form the backbone: %+v", tl.Units)
	}
	if len(tl.Overlays) != 1 {
		t.Fatalf("text layer should overlay, got %d", len(tl.Overlays))
	}
}

func TestComposeOrdersBackboneByStart(t *testing.T) {
	a := solid("a", 3, 0, true)
	a.Start = 5
	b := solid("b", 5, 0, true)
	b.Start = 0

	tl, err := Compose([]clip.Clip{a, b}, nil, "", 8, Options{Width: 640, Height: 360, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if tl.Units[0].Clip.LayerID != "b" || tl.Units[1].Clip.LayerID != "a" {
		t.Fatalf("backbone order wrong: %s, %s", tl.Units[0].Clip.LayerID, tl.Units[1].Clip.LayerID)
	}
	if tl.Units[1].Start != 5 {
		t.Fatalf("second unit starts at %v, want 5", tl.Units[1].Start)
	}
	if tl.Duration != 8 {
		t.Fatalf("duration = %v, want 8", tl.Duration)
	}
}

func TestComposeOrdersOverlaysByZIndex(t *testing.T) {
	bg := solid("bg", 10, 0, false)
	clips := []clip.Clip{solid("hi", 10, 9, false), solid("lo", 10, 1, false)}
	tl, err := Compose(clips, &bg, "", 10, Options{Width: 640, Height: 360, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if tl.Overlays[0].LayerID != "lo" || tl.Overlays[1].LayerID != "hi" {
		t.Fatalf("overlay z order wrong: %s, %s", tl.Overlays[0].LayerID, tl.Overlays[1].LayerID)
	}
}

func TestComposeLoopsVisualsToAudio(t *testing.T) {
	bg := solid("bg", 4, 0, false)
	tl, err := Compose(nil, &bg, "/tmp/a.m4a", 10, Options{Width: 640, Height: 360, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if tl.Loops != 2 {
		t.Fatalf("loops = %d, want 2 (4s visuals under 10s audio)", tl.Loops)
	}
	if tl.Duration != 10 {
		t.Fatalf("timeline trimmed to %v, want the audio length 10", tl.Duration)
	}

	// Time lookups wrap with the looped visuals.
	u, local, ok := tl.UnitAt(9)
	if !ok || u.Clip.LayerID != "bg" || math.Abs(local-1) > 1e-9 {
		t.Fatalf("UnitAt(9) = %v local=%v ok=%v", u.Clip.LayerID, local, ok)
	}
}

func TestComposeCrossfadeShortensBackbone(t *testing.T) {
	a := solid("a", 5, 0, true)
	b := solid("b", 5, 0, true)
	b.Start = 5

	tl, err := Compose([]clip.Clip{a, b}, nil, "", 0, Options{
		Width: 640, Height: 360, FPS: 30,
		Transition: effects.TransitionCrossfade, TransDur: 1,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(tl.Units) != 1 {
		t.Fatalf("crossfade should merge segments, got %d", len(tl.Units))
	}
	if math.Abs(tl.Duration-9.0) > 1e-9 {
		t.Fatalf("duration = %v, want 9.0", tl.Duration)
	}
}

func TestComposeFileBackedTransitionFallsBackToCut(t *testing.T) {
	a := clip.Clip{FilePath: "/tmp/a.mp4", Duration: 5, IsVideo: true, LayerID: "a"}
	b := clip.Clip{FilePath: "/tmp/b.mp4", Duration: 5, IsVideo: true, LayerID: "b", Start: 5}

	tl, err := Compose([]clip.Clip{a, b}, nil, "", 0, Options{
		Width: 640, Height: 360, FPS: 30,
		Transition: effects.TransitionCrossfade, TransDur: 1,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(tl.Units) != 2 {
		t.Fatalf("expected hard cut fallback, got %d units", len(tl.Units))
	}
	if tl.Duration != 10 {
		t.Fatalf("duration = %v, want 10", tl.Duration)
	}
}

func TestOverlaysAtTimeWindow(t *testing.T) {
	bg := solid("bg", 10, 0, false)
	banner := solid("banner", 3, 2, false)
	banner.Start = 2

	tl, err := Compose([]clip.Clip{banner}, &bg, "", 10, Options{Width: 640, Height: 360, FPS: 30})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := tl.OverlaysAt(1); len(got) != 0 {
		t.Fatalf("overlay active before its window: %v", got)
	}
	if got := tl.OverlaysAt(3); len(got) != 1 {
		t.Fatalf("overlay missing inside its window")
	}
	if got := tl.OverlaysAt(5.5); len(got) != 0 {
		t.Fatalf("overlay active after its window: %v", got)
	}
}
