package effects

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"vidforge/internal/clip"
)

func init() {
	Register("logo", func(params map[string]any) (Effect, error) {
		path := stringParam(params, "path", "")
		if path == "" {
			return nil, fmt.Errorf("logo effect needs a resolved path param")
		}
		img, err := loadImage(path)
		if err != nil {
			return nil, fmt.Errorf("logo %s: %w", path, err)
		}
		return &Logo{
			Image:    img,
			Position: stringParam(params, "position", "bottom_right"),
			Opacity:  floatParam(params, "opacity", 0.8),
			Scale:    floatParam(params, "scale", 0.12),
			Margin:   int(floatParam(params, "margin", 20)),
		}, nil
	})
}

var anchors = map[string]bool{
	"top_left": true, "top_center": true, "top_right": true,
	"center_left": true, "center": true, "center_right": true,
	"bottom_left": true, "bottom_center": true, "bottom_right": true,
}

// Logo watermarks every frame. Size and placement are recomputed from
// the actual frame dimensions, so the mark stays proportional if an
// upstream effect resized the frame.
type Logo struct {
	Image    image.Image
	Position string
	Opacity  float64
	Scale    float64
	Margin   int
}

func (l *Logo) Validate() error {
	if l.Image == nil {
		return fmt.Errorf("logo image missing")
	}
	if !anchors[l.Position] {
		return fmt.Errorf("unknown anchor %q", l.Position)
	}
	if l.Opacity < 0 || l.Opacity > 1 {
		return fmt.Errorf("opacity %.2f out of range", l.Opacity)
	}
	if l.Scale <= 0 || l.Scale > 1 {
		return fmt.Errorf("scale %.2f out of range", l.Scale)
	}
	return nil
}

func (l *Logo) Apply(c clip.Clip) (clip.Clip, error) {
	if c.FileBacked() {
		return c, fmt.Errorf("logo overlay applies after frames are materialised")
	}
	if c.FrameAt == nil {
		return c, fmt.Errorf("clip %s has no frames", c.LayerID)
	}

	inner := c.FrameAt
	c.FrameAt = func(t float64) *image.RGBA {
		frame := inner(t)
		out := image.NewRGBA(frame.Bounds())
		copy(out.Pix, frame.Pix)
		l.Stamp(out)
		return out
	}
	return c, nil
}

// Stamp draws the watermark onto the frame in place.
func (l *Logo) Stamp(frame *image.RGBA) {
	fw := frame.Bounds().Dx()
	fh := frame.Bounds().Dy()

	lw, lh := l.SizeFor(fw, fh)
	mark := clip.Scale(l.Image, lw, lh)
	at := anchorPoint(l.Position, fw, fh, lw, lh, l.Margin)
	clip.DrawOver(frame, mark, at, l.Opacity)
}

// SizeFor returns the watermark dimensions for a frame: scale relative
// to frame width, aspect preserved, height capped at 30% of the frame.
func (l *Logo) SizeFor(frameW, frameH int) (int, int) {
	b := l.Image.Bounds()
	w := l.Scale * float64(frameW)
	h := w * float64(b.Dy()) / float64(b.Dx())
	if cap := 0.3 * float64(frameH); h > cap {
		w = w * cap / h
		h = cap
	}
	return maxInt(1, int(math.Round(w))), maxInt(1, int(math.Round(h)))
}

func anchorPoint(anchor string, fw, fh, w, h, margin int) image.Point {
	var x, y int
	switch anchor {
	case "top_left", "center_left", "bottom_left":
		x = margin
	case "top_center", "center", "bottom_center":
		x = (fw - w) / 2
	default:
		x = fw - w - margin
	}
	switch anchor {
	case "top_left", "top_center", "top_right":
		y = margin
	case "center_left", "center", "center_right":
		y = (fh - h) / 2
	default:
		y = fh - h - margin
	}
	return image.Point{X: x, Y: y}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
