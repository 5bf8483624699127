package clip

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"vidforge/internal/assets"
	"vidforge/internal/template"
	"vidforge/internal/tools"
)

// placeholderColor fills clips that stand in for unavailable assets.
var placeholderColor = color.RGBA{38, 38, 46, 255}

// Synthesizer renders template layers into clips. Image, text and shape
// layers become frame-backed stills; video layers are normalized through
// ffmpeg into file-backed clips of exactly the requested duration.
type Synthesizer struct {
	Fetcher *assets.Fetcher
	Runner  tools.Runner
	FFmpeg  string
	FFprobe string

	Width  int
	Height int
	FPS    int

	WorkDir string
	Log     *log.Logger
}

// Synthesize renders one expanded (scalar-source) layer. Asset fetch and
// decode failures degrade to a placeholder clip; only video normalization
// misuse (no runner configured) is reported as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, layer template.Layer) (Clip, error) {
	duration := 0.0
	if layer.Duration != nil {
		duration = *layer.Duration
	}
	if duration <= 0 {
		return Clip{}, fmt.Errorf("layer %s: no duration after expansion", layer.ID)
	}

	var c Clip
	switch layer.Type {
	case template.LayerImage:
		c = s.imageClip(ctx, layer, duration)
	case template.LayerText:
		c = s.textClip(layer, duration)
	case template.LayerShape:
		c = s.shapeClip(layer, duration)
	case template.LayerVideo:
		var err error
		c, err = s.videoClip(ctx, layer, duration)
		if err != nil {
			return Clip{}, err
		}
	default:
		return Clip{}, fmt.Errorf("layer %s: cannot synthesize type %q", layer.ID, layer.Type)
	}

	c.LayerID = layer.ID
	c.Start = layer.StartTime
	c.ZIndex = layer.ZIndex
	c.Opacity = layer.OpacityValue()
	c.RelX = layer.Position.X
	c.RelY = layer.Position.Y
	return c, nil
}

// boxFor converts fractional layer size into pixels; zero means full frame.
func (s *Synthesizer) boxFor(layer template.Layer) (int, int) {
	w := int(math.Round(layer.Size.Width * float64(s.Width)))
	h := int(math.Round(layer.Size.Height * float64(s.Height)))
	if w <= 0 {
		w = s.Width
	}
	if h <= 0 {
		h = s.Height
	}
	return w, h
}

func (s *Synthesizer) imageClip(ctx context.Context, layer template.Layer, duration float64) Clip {
	w, h := s.boxFor(layer)

	src := layer.Source.Value()
	if src == "" {
		return Solid(placeholderColor, w, h, duration)
	}

	path, err := s.Fetcher.Get(ctx, src)
	if err != nil {
		s.logf("layer %s: asset degraded to placeholder: %v", layer.ID, err)
		return Solid(placeholderColor, w, h, duration)
	}

	f, err := os.Open(path)
	if err != nil {
		s.logf("layer %s: open %s: %v", layer.ID, path, err)
		return Solid(placeholderColor, w, h, duration)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		s.logf("layer %s: decode %s: %v", layer.ID, filepath.Base(path), err)
		return Solid(placeholderColor, w, h, duration)
	}

	return Still(FitInto(img, w, h), duration)
}

func (s *Synthesizer) textClip(layer template.Layer, duration float64) Clip {
	w, h := s.boxFor(layer)

	size := layer.FontSize
	if size <= 0 {
		size = float64(h) * 0.25
	}
	col := color.RGBA{255, 255, 255, 255}
	if layer.Color != "" {
		col = ParseColor(layer.Color)
	}

	img, err := RenderText(layer.Text, w, h, size, col)
	if err != nil {
		s.logf("layer %s: text render failed: %v", layer.ID, err)
		return Solid(color.RGBA{}, w, h, duration)
	}
	return Still(img, duration)
}

func (s *Synthesizer) shapeClip(layer template.Layer, duration float64) Clip {
	w, h := s.boxFor(layer)
	col := ParseColor(layer.Color)
	return Still(RenderShape(w, h, col), duration)
}

// videoClip downloads and normalizes a video source: looped when shorter
// than the requested duration, trimmed when longer, scaled and padded to
// the output frame, audio stripped. The result is a file-backed clip.
func (s *Synthesizer) videoClip(ctx context.Context, layer template.Layer, duration float64) (Clip, error) {
	if s.Runner == nil || s.FFmpeg == "" {
		return Clip{}, fmt.Errorf("layer %s: video synthesis requires an ffmpeg runner", layer.ID)
	}

	degraded := func(reason string, err error) Clip {
		s.logf("layer %s: %s: %v", layer.ID, reason, err)
		c := Solid(placeholderColor, s.Width, s.Height, duration)
		c.IsVideo = true
		c.Static = false
		return c
	}

	src := layer.Source.Value()
	if src == "" {
		c := Solid(placeholderColor, s.Width, s.Height, duration)
		c.IsVideo = true
		c.Static = false
		return c, nil
	}

	path, err := s.Fetcher.Get(ctx, src)
	if err != nil {
		return degraded("video asset degraded to placeholder", err), nil
	}

	loops := 0
	if probed, err := tools.ProbeDuration(ctx, s.Runner, s.FFprobe, path); err == nil && probed > 0 && probed < duration {
		loops = int(math.Ceil(duration/probed)) - 1
	}

	out := filepath.Join(s.WorkDir, fmt.Sprintf("normalized_%s.mp4", sanitizeID(layer.ID)))
	args := NormalizeArgs(path, out, duration, loops, s.Width, s.Height, s.FPS)

	if _, err := s.Runner.Run(ctx, s.FFmpeg, args, tools.RunOptions{}); err != nil {
		return degraded("video normalization failed", err), nil
	}

	return Clip{
		FilePath: out,
		Width:    s.Width,
		Height:   s.Height,
		Duration: duration,
		Opacity:  1,
		IsVideo:  true,
	}, nil
}

// NormalizeArgs builds the ffmpeg invocation that turns an arbitrary
// video source into a clip of exactly the requested duration at the
// output frame geometry.
func NormalizeArgs(src, out string, duration float64, loops, width, height, fps int) []string {
	args := []string{"-hide_banner", "-y"}
	if loops > 0 {
		args = append(args, "-stream_loop", fmt.Sprintf("%d", loops))
	}
	filter := fmt.Sprintf(
		"scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2:color=black,setsar=1,fps=%d",
		width, height, width, height, fps,
	)
	args = append(args,
		"-i", src,
		"-t", formatSeconds(duration),
		"-vf", filter,
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		out,
	)
	return args
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}

func (s *Synthesizer) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
	}
}
