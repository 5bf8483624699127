package clip

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"vidforge/internal/assets"
	"vidforge/internal/template"
)

func testSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	return &Synthesizer{
		Fetcher: &assets.Fetcher{Dir: t.TempDir()},
		Width:   320,
		Height:  180,
		FPS:     30,
		WorkDir: t.TempDir(),
	}
}

func dur(v float64) *float64 { return &v }

func TestSynthesizeMissingImageDegradesToPlaceholder(t *testing.T) {
	s := testSynthesizer(t)
	layer := template.Layer{
		ID:       "hero",
		Type:     template.LayerImage,
		Source:   template.Scalar("/no/such/file.jpg"),
		Duration: dur(3),
	}

	c, err := s.Synthesize(context.Background(), layer)
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if !c.Static {
		t.Fatalf("placeholder clip should be static")
	}
	if c.Width != 320 || c.Height != 180 {
		t.Fatalf("placeholder dims = %dx%d", c.Width, c.Height)
	}
	if c.Duration != 3 {
		t.Fatalf("duration = %v, want 3", c.Duration)
	}
}

func TestSynthesizeTextClip(t *testing.T) {
	s := testSynthesizer(t)
	layer := template.Layer{
		ID:       "title",
		Type:     template.LayerText,
		Source:   template.Scalar(""),
		Text:     "Launch Day",
		Color:    "#ffffff",
		Size:     template.Size{Width: 0.8, Height: 0.2},
		Duration: dur(2),
		ZIndex:   5,
	}

	c, err := s.Synthesize(context.Background(), layer)
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if c.Width != 256 || c.Height != 36 {
		t.Fatalf("text box = %dx%d, want 256x36", c.Width, c.Height)
	}
	if c.ZIndex != 5 {
		t.Fatalf("z-index not carried: %d", c.ZIndex)
	}

	// Some pixel in the box must be non-transparent white text.
	frame := c.Frame(0)
	found := false
	for i := 3; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] > 0 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("text clip rendered fully transparent")
	}
}

func TestSynthesizeRequiresDuration(t *testing.T) {
	s := testSynthesizer(t)
	layer := template.Layer{ID: "x", Type: template.LayerText, Source: template.Scalar("")}
	if _, err := s.Synthesize(context.Background(), layer); err == nil {
		t.Fatalf("expected error for nil duration")
	}
}

func TestNormalizeArgs(t *testing.T) {
	args := NormalizeArgs("/in.mp4", "/out.mp4", 4.5, 2, 1280, 720, 30)
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-stream_loop 2",
		"-i /in.mp4",
		"-t 4.500",
		"scale=w=1280:h=720",
		"fps=30",
		"-an",
		"-pix_fmt yuv420p",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}

	noLoop := strings.Join(NormalizeArgs("/in.mp4", "/out.mp4", 4.5, 0, 1280, 720, 30), " ")
	if strings.Contains(noLoop, "-stream_loop") {
		t.Fatalf("unexpected stream_loop without loops: %s", noLoop)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
	}{
		{"#ff6600", color.RGBA{255, 102, 0, 255}},
		{"#ff660080", color.RGBA{255, 102, 0, 128}},
		{"#f60", color.RGBA{255, 102, 0, 255}},
		{"white", color.RGBA{255, 255, 255, 255}},
		{"not-a-color", color.RGBA{128, 128, 128, 255}},
	}
	for _, tc := range cases {
		if got := ParseColor(tc.in); got != tc.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFitIntoPreservesAspect(t *testing.T) {
	src := Blank(100, 50, color.White)
	out := FitInto(src, 200, 200)

	b := out.Bounds()
	if b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("canvas = %dx%d", b.Dx(), b.Dy())
	}
	// Scaled content is 200x100 centred: rows 0..49 stay transparent.
	if _, _, _, a := out.At(100, 10).RGBA(); a != 0 {
		t.Fatalf("letterbox area should be transparent")
	}
	if _, _, _, a := out.At(100, 100).RGBA(); a == 0 {
		t.Fatalf("content area should be opaque")
	}
}

func TestWithOpacityScalesAllChannels(t *testing.T) {
	img := Blank(2, 2, color.RGBA{10, 20, 30, 200})
	out := WithOpacity(img, 0.5)
	for i, want := range []uint8{5, 10, 15, 100} {
		if out.Pix[i] != want {
			t.Fatalf("channel %d = %d, want %d (premultiplied scaling)", i, out.Pix[i], want)
		}
	}
	// Original untouched.
	if img.Pix[3] != 200 {
		t.Fatalf("source image mutated")
	}
}

func TestDrawOverHonoursOpacity(t *testing.T) {
	red := Blank(4, 4, color.RGBA{255, 0, 0, 255})

	dst := Blank(4, 4, color.RGBA{0, 0, 0, 255})
	DrawOver(dst, red, image.Point{}, 0)
	if r := dst.RGBAAt(1, 1).R; r != 0 {
		t.Fatalf("opacity 0: pixel R = %d, want 0 (frame invisible)", r)
	}

	dst = Blank(4, 4, color.RGBA{0, 0, 0, 255})
	DrawOver(dst, red, image.Point{}, 0.5)
	got := dst.RGBAAt(1, 1)
	if got.R < 120 || got.R > 135 {
		t.Fatalf("opacity 0.5: pixel R = %d, want about 127", got.R)
	}
	if got.G != 0 || got.B != 0 {
		t.Fatalf("opacity 0.5: pixel G/B = %d/%d, want 0", got.G, got.B)
	}
}
