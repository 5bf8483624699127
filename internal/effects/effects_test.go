package effects

import (
	"image/color"
	"math"
	"testing"

	"vidforge/internal/clip"
	"vidforge/internal/template"
)

func TestZoomPanEndpoints(t *testing.T) {
	for _, easing := range []string{"linear", "quad-in", "quad-out", "quad-in-out"} {
		z := &ZoomPan{ZoomStart: 1.0, ZoomEnd: 1.5, PanStyle: "zoom_center", Easing: easing}
		if err := z.Validate(); err != nil {
			t.Fatalf("%s: %v", easing, err)
		}
		if got := z.ZoomAt(0, 10); math.Abs(got-1.0) > 1e-9 {
			t.Fatalf("%s: zoom at t=0 is %v, want 1.0", easing, got)
		}
		if got := z.ZoomAt(10, 10); math.Abs(got-1.5) > 1e-9 {
			t.Fatalf("%s: zoom at t=d is %v, want 1.5", easing, got)
		}
	}
}

func TestZoomPanCropStaysInBounds(t *testing.T) {
	const w, h = 640, 360
	for style := range panStyles {
		z := &ZoomPan{ZoomStart: 1.0, ZoomEnd: 1.8, PanStyle: style, Easing: "quad-in-out"}
		for i := 0; i <= 20; i++ {
			tt := float64(i) * 0.5
			zoom := z.ZoomAt(tt, 10)
			zw := int(math.Round(w * zoom))
			zh := int(math.Round(h * zoom))
			x, y := z.CropWindow(tt, 10, w, h, zw, zh)
			if x < 0 || y < 0 || x+w > zw || y+h > zh {
				t.Fatalf("%s t=%.1f: crop (%d,%d)+%dx%d outside %dx%d", style, tt, x, y, w, h, zw, zh)
			}
		}
	}
}

func TestZoomPanTransformsFrames(t *testing.T) {
	z := &ZoomPan{ZoomStart: 1.0, ZoomEnd: 2.0, PanStyle: "zoom_center", Easing: "linear"}
	c := clip.Solid(color.White, 64, 64, 4)
	out, err := z.Apply(c)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Static {
		t.Fatalf("zoomed clip should not classify as static")
	}
	frame := out.Frame(2)
	if frame.Bounds().Dx() != 64 || frame.Bounds().Dy() != 64 {
		t.Fatalf("output frame resized to %v", frame.Bounds())
	}
}

func TestZoomPanFileBackedGetsFilter(t *testing.T) {
	z := &ZoomPan{ZoomStart: 1.0, ZoomEnd: 1.3, PanStyle: "left_to_right", Easing: "linear"}
	c := clip.Clip{FilePath: "/tmp/x.mp4", Width: 1280, Height: 720, Duration: 5, IsVideo: true}
	out, err := z.Apply(c)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(out.Filters) != 1 {
		t.Fatalf("filters = %v", out.Filters)
	}
}

func TestFadeEndpointsAndMiddle(t *testing.T) {
	f := &Fade{In: 1, Out: 1}
	if got := f.OpacityAt(0, 10); got != 0 {
		t.Fatalf("opacity at start = %v, want 0", got)
	}
	if got := f.OpacityAt(10, 10); got != 0 {
		t.Fatalf("opacity at end = %v, want 0", got)
	}
	if got := f.OpacityAt(5, 10); got != 1 {
		t.Fatalf("opacity in steady middle = %v, want 1", got)
	}
}

func TestFadeRampsScaleDown(t *testing.T) {
	f := &Fade{In: 3, Out: 3}
	// 3+3 > 4: both scale to 2, meeting exactly at the midpoint.
	if got := f.OpacityAt(2, 4); math.Abs(got-1) > 1e-9 {
		t.Fatalf("opacity at midpoint = %v, want 1", got)
	}
	if got := f.OpacityAt(1, 4); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("opacity at t=1 = %v, want 0.5", got)
	}
}

func TestCrossfadeDuration(t *testing.T) {
	a := clip.Solid(color.White, 32, 32, 5)
	b := clip.Solid(color.Black, 32, 32, 5)
	joined, err := Join(a, b, TransitionCrossfade, 1)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if math.Abs(joined.Duration-9.0) > 1e-9 {
		t.Fatalf("crossfade duration = %v, want 9.0", joined.Duration)
	}

	// Before the overlap the frame is pure a, after it pure b.
	if px := joined.Frame(1).Pix[0]; px != 255 {
		t.Fatalf("frame at t=1 should be white, got %d", px)
	}
	if px := joined.Frame(8).Pix[0]; px != 0 {
		t.Fatalf("frame at t=8 should be black, got %d", px)
	}
	// Mid-overlap is a blend.
	if px := joined.Frame(4.5).Pix[0]; px == 0 || px == 255 {
		t.Fatalf("frame mid-overlap should blend, got %d", px)
	}
}

func TestFadeBlackInsertsGap(t *testing.T) {
	a := clip.Solid(color.White, 32, 32, 4)
	b := clip.Solid(color.White, 32, 32, 4)
	joined, err := Join(a, b, TransitionFadeBlack, 2)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if math.Abs(joined.Duration-9.0) > 1e-9 {
		t.Fatalf("fade_black duration = %v, want 4+1+4", joined.Duration)
	}
	if px := joined.Frame(4.5).Pix[0]; px != 0 {
		t.Fatalf("gap frame should be black, got %d", px)
	}
	// Halfway through the fade-out the white frame has dimmed toward
	// black, not just lost alpha.
	px := joined.Frame(3.5).RGBAAt(1, 1)
	if px.R < 120 || px.R > 135 {
		t.Fatalf("fade-out midpoint R = %d, want about 127", px.R)
	}
	if px.A != 255 {
		t.Fatalf("fade-out midpoint should stay opaque over black, alpha = %d", px.A)
	}
}

func TestJoinRejectsFileBacked(t *testing.T) {
	a := clip.Clip{FilePath: "/tmp/a.mp4", Duration: 5}
	b := clip.Solid(color.White, 32, 32, 5)
	if _, err := Join(a, b, TransitionCrossfade, 1); err == nil {
		t.Fatalf("expected error for file-backed input")
	}
	if _, err := Join(b, b, "spin", 1); err == nil {
		t.Fatalf("expected error for unknown transition")
	}
}

func TestApplyAllSoftFails(t *testing.T) {
	c := clip.Solid(color.White, 16, 16, 2)
	specs := []template.Effect{
		{Type: "no_such_effect"},
		{Type: "zoompan", Params: map[string]any{"zoom_start": 0.2}}, // invalid
		{Type: "fade", Params: map[string]any{"fade_in_duration": 0.5}},
	}
	out := ApplyAll(c, specs, nil)
	if out.Duration != 2 {
		t.Fatalf("duration changed: %v", out.Duration)
	}
	// Only the valid fade applied: the first frame is transparent.
	if a := out.Frame(0).Pix[3]; a != 0 {
		t.Fatalf("fade-in not applied, alpha = %d", a)
	}
}

func TestApplyAllBadEffectKeepsOriginalFrames(t *testing.T) {
	c := clip.Solid(color.White, 16, 16, 2)
	out := ApplyAll(c, []template.Effect{{Type: "zoompan", Params: map[string]any{"pan_style": "sideways"}}}, nil)
	if out.Frame(1).Pix[0] != 255 {
		t.Fatalf("original clip not preserved")
	}
	if !out.Static {
		t.Fatalf("failed effect should leave the clip static")
	}
}

func TestTickerOffsetWrapsAround(t *testing.T) {
	tk := &Ticker{Speed: 100}
	if got := tk.OffsetAt(0, 400); got != 0 {
		t.Fatalf("offset at t=0 = %v", got)
	}
	if got := tk.OffsetAt(3, 400); math.Abs(got-300) > 1e-9 {
		t.Fatalf("offset at t=3 = %v, want 300", got)
	}
	if got := tk.OffsetAt(5, 400); math.Abs(got-100) > 1e-9 {
		t.Fatalf("offset at t=5 should wrap to 100, got %v", got)
	}
}

func TestTickerDrawsBanner(t *testing.T) {
	tk := &Ticker{
		Heading:      "Breaking",
		Text:         "Quarterly launch recap",
		HeadingColor: "#ffffff",
		TextColor:    "#ffffff",
		Background:   "#102030",
		Height:       0.2,
		Speed:        80,
	}
	if err := tk.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	c := clip.Solid(color.RGBA{200, 0, 0, 255}, 200, 100, 3)
	out, err := tk.Apply(c)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	frame := out.Frame(1)
	// Bottom rows carry the banner background, not the red base clip.
	off := frame.PixOffset(5, 95)
	if frame.Pix[off] == 200 && frame.Pix[off+1] == 0 {
		t.Fatalf("banner not drawn over base clip")
	}
	// Top of the frame stays untouched.
	if frame.Pix[frame.PixOffset(5, 5)] != 200 {
		t.Fatalf("banner bled into the frame body")
	}
}

func TestLogoSizeCappedAtFrameHeight(t *testing.T) {
	// A tall 100x400 mark at scale 0.5 of a 640x360 frame would be
	// 320x1280; the 30% height cap brings it to 108 high.
	l := &Logo{Image: clip.Blank(100, 400, color.White), Position: "bottom_right", Opacity: 1, Scale: 0.5, Margin: 10}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	w, h := l.SizeFor(640, 360)
	if h != 108 {
		t.Fatalf("height = %d, want 108", h)
	}
	if w != 27 {
		t.Fatalf("width = %d, want 27 (aspect preserved)", w)
	}
}

func TestLogoAnchors(t *testing.T) {
	cases := []struct {
		anchor string
		x, y   int
	}{
		{"top_left", 10, 10},
		{"top_right", 590, 10},
		{"bottom_left", 10, 310},
		{"bottom_right", 590, 310},
		{"center", 300, 160},
	}
	for _, tc := range cases {
		got := anchorPoint(tc.anchor, 640, 360, 40, 40, 10)
		if got.X != tc.x || got.Y != tc.y {
			t.Fatalf("%s: anchor = %v, want (%d,%d)", tc.anchor, got, tc.x, tc.y)
		}
	}
}

func TestRegistryNames(t *testing.T) {
	want := map[string]bool{"zoompan": true, "fade": true, "logo": true, "ticker": true, "qr_overlay": true}
	for _, n := range Names() {
		delete(want, n)
	}
	if len(want) != 0 {
		t.Fatalf("missing registrations: %v", want)
	}
}
