package render

import (
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"vidforge/internal/assets"
	"vidforge/internal/clip"
	"vidforge/internal/config"
	"vidforge/internal/jobs"
	"vidforge/internal/template"
	"vidforge/internal/timing"
	"vidforge/internal/tools"
)

type fakeRunner struct {
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string, _ tools.RunOptions) (tools.RunResult, error) {
	f.calls = append(f.calls, args)
	if len(args) > 0 {
		_ = os.WriteFile(args[len(args)-1], []byte("segment"), 0o644)
	}
	return tools.RunResult{}, nil
}

func testEngine(t *testing.T) (*Engine, *fakeRunner) {
	t.Helper()
	r := &fakeRunner{}
	cfg := config.Default()
	return &Engine{
		Config:  cfg,
		Runner:  r,
		Fetcher: &assets.Fetcher{Dir: t.TempDir()},
		Enc:     tools.ResolvedEncoding{VideoCodec: "libx264", Preset: "fast", CRF: 23, AudioCodec: "aac", AudioBitrate: "192k"},
		FFmpeg:  "ffmpeg",
	}, r
}

func promoTemplate() template.Template {
	return template.Template{
		TemplateID:  "promo",
		AspectRatio: "16:9",
		Resolution:  template.Resolution{Width: 64, Height: 36},
		Layers: []template.Layer{
			{
				ID:     "slides",
				Type:   template.LayerImage,
				Source: template.List("/img/a.png", "/img/b.png", "/img/c.png"),
				Size:   template.Size{Width: 1, Height: 1},
			},
		},
	}
}

func promoRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		Template: promoTemplate(),
		Assets: []timing.MediaAsset{
			{URL: "/img/a.png", Type: timing.MediaImage},
			{URL: "/img/b.png", Type: timing.MediaImage},
			{URL: "/img/c.png", Type: timing.MediaImage},
		},
		Sections: []timing.Section{
			{Title: "Intro", AudioDuration: 4},
			{Title: "Features", AudioDuration: 6},
		},
		Mode:       timing.ModeAuto,
		Background: "/img/background.png",
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}
}

func TestRenderEndToEnd(t *testing.T) {
	e, _ := testEngine(t)
	req := promoRequest(t)

	var steps []string
	res, err := e.Render(context.Background(), req, func(p int, step string) {
		steps = append(steps, step)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Status != "success" {
		t.Fatalf("result = %+v", res)
	}
	// 2 sections of 4s and 6s: the three images cover [2,2] then [6],
	// the backbone runs the full 10s.
	if res.Duration != 10.0 {
		t.Fatalf("duration = %v, want 10.0", res.Duration)
	}
	if res.SizeBytes == 0 {
		t.Fatalf("output file missing")
	}
	if _, err := os.Stat(req.OutputPath); err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if len(steps) == 0 || steps[len(steps)-1] != "done" {
		t.Fatalf("progress steps = %v", steps)
	}
}

func writeTestLogo(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
		img.Pix[i+3] = 255
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create logo: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode logo: %v", err)
	}
	return path
}

func TestRenderFetchesEachRemoteAssetOnce(t *testing.T) {
	logoBytes, err := os.ReadFile(writeTestLogo(t))
	if err != nil {
		t.Fatalf("read logo: %v", err)
	}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(logoBytes)
	}))
	defer srv.Close()

	e, _ := testEngine(t)
	req := promoRequest(t)
	// Background and watermark point at the same remote asset; the
	// prefetch pass downloads it once and every later Get reuses it.
	req.Background = srv.URL + "/brand.png"
	req.Template.Logo = srv.URL + "/brand.png"

	if _, err := e.Render(context.Background(), req, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("remote asset downloaded %d times, want 1", n)
	}
}

func TestVideoBackboneGetsOverlayPlane(t *testing.T) {
	e, _ := testEngine(t)
	tpl := template.Template{Logo: writeTestLogo(t)}
	clips := []clip.Clip{{
		FilePath: "/work/a.mp4",
		IsVideo:  true,
		Width:    64,
		Height:   36,
		Duration: 5,
		Opacity:  1,
	}}

	out := e.applyGlobalEffects(context.Background(), clips, nil, tpl, 64, 36, 5)
	if len(out) != 2 {
		t.Fatalf("got %d clips, want backbone plus overlay plane", len(out))
	}

	backbone := out[0]
	if len(backbone.Filters) != 0 {
		t.Fatalf("logo must not land in the filter chain, got %v", backbone.Filters)
	}

	plane := out[1]
	if plane.FileBacked() || plane.IsVideo {
		t.Fatalf("overlay plane should be frame-backed, got %+v", plane)
	}
	if plane.ZIndex != overlayPlaneZ {
		t.Fatalf("plane z-index = %d, want %d", plane.ZIndex, overlayPlaneZ)
	}
	if plane.Duration != 5 || plane.Start != 0 {
		t.Fatalf("plane window = [%v, %v), want [0, 5)", plane.Start, plane.End())
	}

	// The watermark pixels must be on the plane.
	frame := plane.Frame(0)
	stamped := false
	for i := 3; i < len(frame.Pix); i += 4 {
		if frame.Pix[i] != 0 {
			stamped = true
			break
		}
	}
	if !stamped {
		t.Fatalf("overlay plane is fully transparent, logo was not stamped")
	}
}

func TestRenderRequiresBackgroundWithoutVideoLayers(t *testing.T) {
	e, _ := testEngine(t)
	req := promoRequest(t)
	req.Background = ""

	res, err := e.Render(context.Background(), req, nil)
	if err == nil {
		t.Fatalf("expected input error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindInput {
		t.Fatalf("kind = %v, %v", kind, ok)
	}
	if res.Status != "error" || res.Message == "" {
		t.Fatalf("error result = %+v", res)
	}
}

func TestRenderRejectsInvalidTemplate(t *testing.T) {
	e, _ := testEngine(t)
	req := promoRequest(t)
	req.Template.Layers = nil

	_, err := e.Render(context.Background(), req, nil)
	if kind, ok := KindOf(err); !ok || kind != KindInput {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderRequiresOutputPath(t *testing.T) {
	e, _ := testEngine(t)
	req := promoRequest(t)
	req.OutputPath = ""
	if _, err := e.Render(context.Background(), req, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderWithoutSectionsUsesLayerSpan(t *testing.T) {
	e, _ := testEngine(t)
	dur := 3.0
	req := promoRequest(t)
	req.Sections = nil
	req.Assets = nil
	req.Template.Layers = []template.Layer{{
		ID:       "card",
		Type:     template.LayerText,
		Source:   template.Scalar(""),
		Text:     "Hello",
		Duration: &dur,
	}}

	res, err := e.Render(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Duration != 3.0 {
		t.Fatalf("duration = %v, want 3.0", res.Duration)
	}
}

func TestRenderAsyncReportsThroughJobStore(t *testing.T) {
	e, _ := testEngine(t)
	store, err := jobs.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	defer store.Close()
	e.Jobs = store

	id, err := e.RenderAsync(promoRequest(t))
	if err != nil {
		t.Fatalf("RenderAsync: %v", err)
	}

	// Wait is the contract keeping the detached render alive; once it
	// returns the job record must be terminal with no further polling.
	e.Wait()

	j, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if j.Status == jobs.StatusFailed {
		t.Fatalf("render failed: %s", j.Error)
	}
	if j.Status != jobs.StatusDone {
		t.Fatalf("status after Wait = %s, want %s", j.Status, jobs.StatusDone)
	}
	if j.Progress != 100 || j.Output == "" {
		t.Fatalf("done job = %+v", j)
	}
	if _, err := os.Stat(j.Output); err != nil {
		t.Fatalf("output file missing after Wait: %v", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	err := inputErr("missing field")
	var re *Error
	if kind, ok := KindOf(err); !ok || kind != KindInput {
		t.Fatalf("kind = %v", kind)
	}
	if !errors.As(err, &re) || !re.Fatal() {
		t.Fatalf("input errors are fatal")
	}
	if (&Error{Kind: KindMix}).Fatal() {
		t.Fatalf("mix errors must not be fatal")
	}
	if KindAssetFetch.String() != "asset_fetch" {
		t.Fatalf("kind string = %s", KindAssetFetch)
	}
}
