// Package render drives a template through timing, synthesis,
// composition and encoding to a finished video file.
package render

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"os"
	"sync"

	"vidforge/internal/assets"
	"vidforge/internal/audio"
	"vidforge/internal/clip"
	"vidforge/internal/compose"
	"vidforge/internal/config"
	"vidforge/internal/effects"
	"vidforge/internal/encode"
	"vidforge/internal/jobs"
	"vidforge/internal/paths"
	"vidforge/internal/template"
	"vidforge/internal/timing"
	"vidforge/internal/tools"
)

// Engine coordinates one or more renders against a project.
type Engine struct {
	Paths   paths.ProjectPaths
	Config  config.Config
	Runner  tools.Runner
	Fetcher *assets.Fetcher
	Enc     tools.ResolvedEncoding
	Jobs    *jobs.Store
	Log     *log.Logger
	FFmpeg  string
	FFprobe string

	detached sync.WaitGroup
}

// Request is one render invocation.
type Request struct {
	Template     template.Template
	Variables    map[string]string
	Assets       []timing.MediaAsset
	Sections     []timing.Section
	NarrationURL string
	Mode         timing.Mode
	Mapping      map[string][]string
	Background   string // base clip source for templates without video layers
	OutputPath   string
}

// Result is the structured outcome returned for every render. Partial
// successes (degraded assets, skipped effects, narration-only audio)
// still report success.
type Result struct {
	Status    string  `json:"status"` // "success" or "error"
	Message   string  `json:"message,omitempty"`
	Path      string  `json:"path,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	SizeBytes int64   `json:"size_bytes,omitempty"`
}

// Progress receives percentage and step updates during a render.
type Progress func(percent int, step string)

// NewEngine prepares a renderer bound to a project. The encoder profile
// is probed once here (hardware H.264 first, libx264 fallback) and
// reused for every render.
func NewEngine(ctx context.Context, pp paths.ProjectPaths, cfg config.Config, runner tools.Runner, logger *log.Logger) (*Engine, error) {
	if runner == nil {
		runner = tools.CmdRunner{}
	}
	if err := pp.EnsureDirs(); err != nil {
		return nil, err
	}

	ffmpegPath, err := tools.Lookup("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("locate ffmpeg: %w", err)
	}
	// ffprobe only gates narration duration probing, which degrades to
	// section totals, so a missing binary is logged rather than fatal.
	ffprobePath, err := tools.Lookup("ffprobe")
	if err != nil && logger != nil {
		logger.Printf("ffprobe unavailable, narration probing disabled: %v", err)
	}

	profile := tools.ResolveEncoderProfile(ctx, ffmpegPath)
	enc := tools.ResolveEncoding(profile, cfg.Encoding.Preset, cfg.Encoding.CRF)
	if logger != nil {
		logger.Printf("encoder: %s (hardware=%v)", enc.VideoCodec, profile.Hardware())
	}

	return &Engine{
		Paths:  pp,
		Config: cfg,
		Runner: runner,
		Fetcher: &assets.Fetcher{
			Dir:     pp.AssetsDir,
			Timeout: cfg.AssetTimeout(),
			Log:     logger,
		},
		Enc:     enc,
		Log:     logger,
		FFmpeg:  ffmpegPath,
		FFprobe: ffprobePath,
	}, nil
}

// Render runs the full pipeline synchronously. The returned Result is
// populated for errors as well, so callers can serialize it directly.
func (e *Engine) Render(ctx context.Context, req Request, progress Progress) (Result, error) {
	res, err := e.render(ctx, req, progress)
	if err != nil {
		return Result{Status: "error", Message: err.Error()}, err
	}
	return res, nil
}

func (e *Engine) render(ctx context.Context, req Request, progress Progress) (Result, error) {
	report := func(p int, step string) {
		if progress != nil {
			progress(p, step)
		}
		e.logf("render %d%%: %s", p, step)
	}

	if req.OutputPath == "" {
		return Result{}, inputErr("output path is required")
	}
	if err := req.Template.Validate(); err != nil {
		return Result{}, &Error{Kind: KindInput, Err: err}
	}

	workDir, cleanup, err := paths.Workspace()
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	report(5, "resolving variables")
	tpl := template.Resolve(req.Template, req.Variables)

	report(10, "distributing media timing")
	var idx timing.Index
	var total float64
	if len(req.Sections) > 0 {
		plan, err := timing.Distributor{Log: e.Log}.Distribute(req.Assets, req.Sections, req.Mode, req.Mapping)
		if err != nil {
			return Result{}, &Error{Kind: KindInput, Err: err}
		}
		idx = plan.Index()
		for _, s := range req.Sections {
			total += s.AudioDuration
		}
	} else {
		total = layerSpan(tpl.Layers)
	}
	if total <= 0 {
		return Result{}, inputErr("cannot determine timeline duration: no sections and no layer durations")
	}

	report(20, "fetching narration")
	narration, audioDur := e.resolveNarration(ctx, req.NarrationURL, total)

	width, height, fps := e.frameParams(tpl)
	synth := &clip.Synthesizer{
		Fetcher: e.Fetcher,
		Runner:  e.Runner,
		FFmpeg:  e.FFmpeg,
		FFprobe: e.FFprobe,
		Width:   width,
		Height:  height,
		FPS:     fps,
		WorkDir: workDir,
		Log:     e.Log,
	}

	layers := template.Expand(tpl.Layers, idx, total)

	report(25, "prefetching assets")
	sources := make([]string, 0, len(layers)+3)
	for _, l := range layers {
		sources = append(sources, l.Source.Value())
	}
	sources = append(sources, req.Background, tpl.Logo, tpl.BackgroundMusic)
	e.Fetcher.Prefetch(ctx, sources)

	report(30, "synthesizing layers")
	clips, err := e.synthesizeAll(ctx, synth, layers, tpl.Effects)
	if err != nil {
		return Result{}, err
	}

	background, err := e.backgroundClip(ctx, synth, clips, req.Background, total)
	if err != nil {
		return Result{}, err
	}
	clips = e.applyGlobalEffects(ctx, clips, background, tpl, width, height, total)

	report(50, "mixing audio")
	soundtrack := e.mixAudio(ctx, tpl, narration, audioDur, workDir)

	report(60, "composing timeline")
	tl, err := compose.Compose(clips, background, soundtrack, audioDur, compose.Options{
		Width:      width,
		Height:     height,
		FPS:        fps,
		Transition: e.Config.Transition.Type,
		TransDur:   e.Config.Transition.DurationSec,
		Log:        e.Log,
	})
	if err != nil {
		return Result{}, &Error{Kind: KindInput, Err: err}
	}

	report(70, "encoding segments")
	enc := &encode.Encoder{
		Runner:  e.Runner,
		FFmpeg:  e.FFmpeg,
		Enc:     e.Enc,
		WorkDir: workDir,
		Log:     e.Log,
	}
	out, err := enc.Encode(ctx, tl, req.OutputPath)
	if err != nil {
		return Result{}, encodeErr(err)
	}

	report(100, "done")
	var size int64
	if info, err := os.Stat(out); err == nil {
		size = info.Size()
	}
	return Result{
		Status:    "success",
		Path:      out,
		Duration:  tl.Duration,
		SizeBytes: size,
	}, nil
}

// RenderAsync launches a detached render and returns its job id
// immediately. Progress lands in the job store; there is no mid-render
// cancellation, only marking the record abandoned. The caller owns the
// process lifetime and must Wait before exiting or the render dies with
// the process.
func (e *Engine) RenderAsync(req Request) (string, error) {
	if e.Jobs == nil {
		return "", fmt.Errorf("render job store not configured")
	}
	id, err := e.Jobs.Create(req.Template.TemplateID)
	if err != nil {
		return "", err
	}

	e.detached.Add(1)
	go func() {
		defer e.detached.Done()
		progress := func(p int, step string) {
			if err := e.Jobs.UpdateProgress(id, p, step); err != nil {
				e.logf("job %s: progress update failed: %v", id, err)
			}
		}
		res, err := e.Render(context.Background(), req, progress)
		if err != nil {
			_ = e.Jobs.Fail(id, err.Error())
			return
		}
		_ = e.Jobs.Finish(id, res.Path)
	}()
	return id, nil
}

// Wait blocks until every render launched with RenderAsync has finished.
func (e *Engine) Wait() {
	e.detached.Wait()
}

// synthesizeAll builds a clip per layer and applies its per-layer
// effects: the layer's own fade block plus any targeted template
// effects. Effect failures degrade to the unmodified clip.
func (e *Engine) synthesizeAll(ctx context.Context, synth *clip.Synthesizer, layers []template.Layer, specs []template.Effect) ([]clip.Clip, error) {
	byTarget := make(map[string][]template.Effect)
	for _, eff := range specs {
		if eff.TargetLayerID != "" {
			byTarget[eff.TargetLayerID] = append(byTarget[eff.TargetLayerID], eff)
		}
	}

	clips := make([]clip.Clip, 0, len(layers))
	for _, layer := range layers {
		c, err := synth.Synthesize(ctx, layer)
		if err != nil {
			return nil, inputErr("layer %s: %v", layer.ID, err)
		}

		var layerSpecs []template.Effect
		if layer.Fade != nil && layer.Fade.Enabled {
			layerSpecs = append(layerSpecs, template.Effect{
				Type: "fade",
				Params: map[string]any{
					"fade_in_duration":  layer.Fade.In,
					"fade_out_duration": layer.Fade.Out,
				},
			})
		}
		layerSpecs = append(layerSpecs, byTarget[layer.ID]...)
		layerSpecs = append(layerSpecs, byTarget[baseLayerID(layer.ID)]...)
		clips = append(clips, effects.ApplyAll(c, layerSpecs, e.Log))
	}
	return clips, nil
}

// backgroundClip synthesizes the externally supplied base clip when the
// template has no video layers. Its absence in that case is fatal.
func (e *Engine) backgroundClip(ctx context.Context, synth *clip.Synthesizer, clips []clip.Clip, source string, total float64) (*clip.Clip, error) {
	for _, c := range clips {
		if c.IsVideo {
			return nil, nil
		}
	}
	if source == "" {
		return nil, inputErr("template has no video layers and no background clip was supplied")
	}

	layer := template.Layer{
		ID:       "background",
		Type:     template.LayerImage,
		Source:   template.Scalar(source),
		Duration: &total,
	}
	if t := timing.InferType(source); t == timing.MediaVideo {
		layer.Type = template.LayerVideo
	}
	bg, err := synth.Synthesize(ctx, layer)
	if err != nil {
		return nil, inputErr("background clip: %v", err)
	}
	bg.IsVideo = false // the background anchors the backbone but never reorders it
	return &bg, nil
}

// overlayPlaneZ keeps watermark overlays above every template layer.
const overlayPlaneZ = 1000

// applyGlobalEffects applies untargeted template effects plus the logo
// watermark to the backbone clips. Frame-drawing effects (logo, ticker,
// qr) cannot touch file-backed video directly, so for a video backbone
// they are rendered onto a transparent overlay plane spanning the whole
// timeline; the encoder burns that plane into each segment.
func (e *Engine) applyGlobalEffects(ctx context.Context, clips []clip.Clip, background *clip.Clip, tpl template.Template, width, height int, total float64) []clip.Clip {
	var global []template.Effect
	for _, eff := range tpl.Effects {
		if eff.TargetLayerID == "" {
			global = append(global, eff)
		}
	}
	if tpl.Logo != "" {
		if path, err := e.Fetcher.Get(ctx, tpl.Logo); err != nil {
			e.logf("logo degraded, skipping watermark: %v", err)
		} else {
			global = append(global, template.Effect{
				Type:   "logo",
				Params: map[string]any{"path": path},
			})
		}
	}
	if len(global) == 0 {
		return clips
	}

	var fragment, framed []template.Effect
	for _, eff := range global {
		if effects.DrawsOverlay(eff.Type) {
			framed = append(framed, eff)
		} else {
			fragment = append(fragment, eff)
		}
	}

	videoBackbone := false
	for i, c := range clips {
		if c.IsVideo {
			clips[i] = effects.ApplyAll(c, fragment, e.Log)
			videoBackbone = true
		}
	}
	if background != nil {
		*background = effects.ApplyAll(*background, global, e.Log)
	}
	if videoBackbone && len(framed) > 0 {
		plane := clip.Solid(color.RGBA{}, width, height, total)
		plane.ZIndex = overlayPlaneZ
		plane.LayerID = "overlay_plane"
		clips = append(clips, effects.ApplyAll(plane, framed, e.Log))
	}
	return clips
}

// resolveNarration fetches the narration and probes its real length.
// Without narration, or when probing fails, the section durations drive
// the timeline.
func (e *Engine) resolveNarration(ctx context.Context, url string, total float64) (string, float64) {
	if url == "" {
		return "", total
	}
	path, err := e.Fetcher.Get(ctx, url)
	if err != nil {
		e.logf("narration fetch failed, rendering without audio: %v", err)
		return "", total
	}
	dur, err := tools.ProbeDuration(ctx, e.Runner, e.FFprobe, path)
	if err != nil || dur <= 0 {
		e.logf("narration probe failed, trusting section durations: %v", err)
		return path, total
	}
	return path, dur
}

// mixAudio blends background music under the narration; failures keep
// narration only.
func (e *Engine) mixAudio(ctx context.Context, tpl template.Template, narration string, duration float64, workDir string) string {
	if narration == "" {
		return ""
	}
	music := ""
	if tpl.BackgroundMusic != "" {
		if path, err := e.Fetcher.Get(ctx, tpl.BackgroundMusic); err != nil {
			e.logf("background music degraded to narration only: %v", err)
		} else {
			music = path
		}
	}
	mixer := &audio.Mixer{Runner: e.Runner, FFmpeg: e.FFmpeg, WorkDir: workDir, Log: e.Log}
	return mixer.Mix(ctx, narration, music, duration, audio.MixOptions{
		MusicVolume: e.Config.Audio.MusicVolume,
		VoiceVolume: e.Config.Audio.VoiceVolume,
		FadeIn:      e.Config.Audio.FadeInSec,
		FadeOut:     e.Config.Audio.FadeOutSec,
	})
}

func (e *Engine) frameParams(tpl template.Template) (int, int, int) {
	width, height := tpl.Resolution.Width, tpl.Resolution.Height
	if width <= 0 || height <= 0 {
		width, height = e.Config.Video.Width, e.Config.Video.Height
	}
	fps := e.Config.Video.FPS
	if fps <= 0 {
		fps = 30
	}
	return width, height, fps
}

// layerSpan returns the furthest end time any layer declares.
func layerSpan(layers []template.Layer) float64 {
	var span float64
	for _, l := range layers {
		if l.Duration == nil {
			continue
		}
		if end := l.StartTime + *l.Duration; end > span {
			span = end
		}
	}
	return span
}

// baseLayerID strips the expansion suffix so effects targeting an array
// layer reach every expanded instance.
func baseLayerID(id string) string {
	for i := len(id) - 1; i > 0; i-- {
		if id[i] == '_' {
			return id[:i]
		}
		if id[i] < '0' || id[i] > '9' {
			break
		}
	}
	return id
}

func (e *Engine) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Printf(format, args...)
	}
}
