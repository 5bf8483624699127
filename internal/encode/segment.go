// Package encode turns a composed timeline into video segments and
// stitches them into the final container.
package encode

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"vidforge/internal/clip"
	"vidforge/internal/compose"
	"vidforge/internal/tools"
)

// Encoder renders timeline units to mp4 segments.
type Encoder struct {
	Runner  tools.Runner
	FFmpeg  string
	Enc     tools.ResolvedEncoding
	WorkDir string
	Log     *log.Logger
}

// UnitStatic reports whether a unit can be encoded from a single held
// frame: no video-backed element and no animation on the unit or any
// overlay active during its window.
func UnitStatic(tl compose.Timeline, u compose.Unit) bool {
	if u.Clip.IsVideo || !u.Clip.Static {
		return false
	}
	for _, o := range tl.Overlays {
		if overlaps(o, u) && (!o.Static || o.IsVideo) {
			return false
		}
	}
	return true
}

func overlaps(o clip.Clip, u compose.Unit) bool {
	return o.Start < u.Start+u.Clip.Duration && o.End() > u.Start
}

// EncodeUnits renders every backbone unit to its own segment and returns
// the segment paths in timeline order.
func (e *Encoder) EncodeUnits(ctx context.Context, tl compose.Timeline) ([]string, error) {
	paths := make([]string, 0, len(tl.Units))
	for i, u := range tl.Units {
		seg := filepath.Join(e.WorkDir, fmt.Sprintf("segment_%03d.mp4", i))

		var err error
		switch {
		case u.Clip.FileBacked():
			err = e.encodeFileBacked(ctx, tl, u, seg)
		case UnitStatic(tl, u):
			err = e.encodeStatic(ctx, tl, u, seg)
		default:
			err = e.encodeAnimated(ctx, tl, u, seg)
		}
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i, u.Clip.LayerID, err)
		}
		paths = append(paths, seg)
	}
	return paths, nil
}

// encodeStatic writes one composited frame and asks ffmpeg to hold it
// for the unit duration instead of producing duplicate frames.
func (e *Encoder) encodeStatic(ctx context.Context, tl compose.Timeline, u compose.Unit, out string) error {
	frame := e.compositeFrame(tl, u, u.Start)
	still := out + ".png"
	if err := writePNG(still, frame); err != nil {
		return err
	}
	defer os.Remove(still)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", still,
		"-t", fmt.Sprintf("%.3f", u.Clip.Duration),
		"-r", fmt.Sprintf("%d", tl.FPS),
	}
	args = append(args, e.videoArgs()...)
	args = append(args, out)
	_, err := e.Runner.Run(ctx, e.FFmpeg, args, tools.RunOptions{})
	return err
}

// encodeAnimated renders the unit frame by frame at the target fps and
// encodes the sequence.
func (e *Encoder) encodeAnimated(ctx context.Context, tl compose.Timeline, u compose.Unit, out string) error {
	frameDir := out + "_frames"
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(frameDir)

	total := int(math.Round(u.Clip.Duration * float64(tl.FPS)))
	if total < 1 {
		total = 1
	}
	for i := 0; i < total; i++ {
		t := float64(i) / float64(tl.FPS)
		frame := e.compositeFrame(tl, u, u.Start+t)
		name := filepath.Join(frameDir, fmt.Sprintf("frame_%05d.png", i))
		if err := writePNG(name, frame); err != nil {
			return err
		}
	}

	args := []string{
		"-y",
		"-framerate", fmt.Sprintf("%d", tl.FPS),
		"-i", filepath.Join(frameDir, "frame_%05d.png"),
	}
	args = append(args, e.videoArgs()...)
	args = append(args, out)
	_, err := e.Runner.Run(ctx, e.FFmpeg, args, tools.RunOptions{})
	return err
}

// encodeFileBacked re-encodes a normalized video segment, applying its
// pending filter fragments and burning in any overlays active during
// its window.
func (e *Encoder) encodeFileBacked(ctx context.Context, tl compose.Timeline, u compose.Unit, out string) error {
	args := []string{"-y", "-i", u.Clip.FilePath}

	overlays := overlayInputs(tl, u)
	for i, ov := range overlays {
		still := fmt.Sprintf("%s.ov%d.png", out, i)
		if err := writePNG(still, ov.frame); err != nil {
			return err
		}
		defer os.Remove(still)
		args = append(args, "-i", still)
	}

	if filter := FileBackedFilter(u.Clip, overlays); filter != "" {
		args = append(args, "-filter_complex", filter, "-map", "[vout]")
	}
	args = append(args, e.videoArgs()...)
	args = append(args, out)
	_, err := e.Runner.Run(ctx, e.FFmpeg, args, tools.RunOptions{})
	return err
}

type overlayInput struct {
	frame *image.RGBA
	x, y  int
	from  float64 // relative to the unit start
	to    float64
}

// overlayInputs snapshots each overlay active during the unit window.
// Overlays on file-backed segments are burned in from a single frame
// sampled mid-window; per-frame animation needs a frame-backed unit.
func overlayInputs(tl compose.Timeline, u compose.Unit) []overlayInput {
	var ins []overlayInput
	for _, o := range tl.Overlays {
		if !overlaps(o, u) {
			continue
		}
		from := math.Max(0, o.Start-u.Start)
		to := math.Min(u.Clip.Duration, o.End()-u.Start)
		mid := o.Start + (math.Min(o.End(), u.Start+u.Clip.Duration)-o.Start)/2
		frame := o.Frame(mid - o.Start)
		if o.Opacity < 1 {
			frame = clip.WithOpacity(frame, o.Opacity)
		}
		ins = append(ins, overlayInput{
			frame: frame,
			x:     int(o.RelX * float64(tl.Width)),
			y:     int(o.RelY * float64(tl.Height)),
			from:  from,
			to:    to,
		})
	}
	return ins
}

// FileBackedFilter assembles the filter_complex for a file-backed unit:
// the clip's pending fragments chained on the video stream, then one
// overlay stage per active overlay with a time-window enable.
func FileBackedFilter(c clip.Clip, overlays []overlayInput) string {
	if len(c.Filters) == 0 && len(overlays) == 0 {
		return ""
	}

	var stages []string
	label := "[0:v]"
	for i, f := range c.Filters {
		out := fmt.Sprintf("[f%d]", i)
		if i == len(c.Filters)-1 && len(overlays) == 0 {
			out = "[vout]"
		}
		stages = append(stages, label+f+out)
		label = out
	}
	for i, ov := range overlays {
		out := fmt.Sprintf("[o%d]", i)
		if i == len(overlays)-1 {
			out = "[vout]"
		}
		stages = append(stages, fmt.Sprintf("%s[%d:v]overlay=%d:%d:enable='between(t,%.3f,%.3f)'%s",
			label, i+1, ov.x, ov.y, ov.from, ov.to, out))
		label = out
	}
	return strings.Join(stages, ";")
}

// compositeFrame draws the backbone frame at absolute time t with every
// active overlay stacked in z order.
func (e *Encoder) compositeFrame(tl compose.Timeline, u compose.Unit, t float64) *image.RGBA {
	local := t - u.Start
	base := u.Clip.Frame(local)
	if base.Bounds().Dx() != tl.Width || base.Bounds().Dy() != tl.Height {
		base = clip.ScaleFast(base, tl.Width, tl.Height)
	}

	// yuv420p has no alpha channel, so a partially transparent base must
	// be flattened against black before the frame leaves Go.
	out := clip.Blank(tl.Width, tl.Height, color.RGBA{0, 0, 0, 255})
	clip.DrawOver(out, base, image.Point{}, 1)

	for _, o := range tl.OverlaysAt(t) {
		frame := o.Frame(t - o.Start)
		at := image.Point{
			X: int(o.RelX * float64(tl.Width)),
			Y: int(o.RelY * float64(tl.Height)),
		}
		clip.DrawOver(out, frame, at, o.Opacity)
	}
	return out
}

// videoArgs returns the shared video codec flags for segment encodes.
func (e *Encoder) videoArgs() []string {
	args := []string{
		"-c:v", e.Enc.VideoCodec,
		"-pix_fmt", "yuv420p",
	}
	if e.Enc.VideoCodec == "libx264" {
		args = append(args,
			"-preset", e.Enc.Preset,
			"-crf", fmt.Sprintf("%d", e.Enc.CRF),
		)
	}
	return args
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
