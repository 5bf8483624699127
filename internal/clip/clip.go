// Package clip models the ephemeral render units produced from template
// layers: either an in-process frame function (images, text, shapes) or
// a normalized, file-backed video with a pending ffmpeg filter chain.
package clip

import (
	"image"
	"image/color"
	"image/draw"
)

// Clip is one time-bounded visual unit. Frame-backed clips expose
// FrameAt; file-backed clips carry FilePath plus ffmpeg -vf fragments
// accumulated by effects. Clips are owned by the orchestrator until
// encoded and are never shared between renders.
type Clip struct {
	FrameAt  func(t float64) *image.RGBA
	FilePath string
	Filters  []string

	Width  int
	Height int

	Duration float64
	Start    float64
	ZIndex   int
	Opacity  float64

	// RelX/RelY are fractional frame coordinates of the top-left corner,
	// used when the clip is composited as an overlay.
	RelX, RelY float64

	AudioPath string
	LayerID   string
	IsVideo   bool

	// Static marks clips whose frames never change, making them eligible
	// for single-frame loop encoding.
	Static bool
}

// FileBacked reports whether the clip is a normalized video file.
func (c Clip) FileBacked() bool {
	return c.FilePath != ""
}

// Frame evaluates the frame function, falling back to a black frame so
// callers never dereference nil on a degraded clip.
func (c Clip) Frame(t float64) *image.RGBA {
	if c.FrameAt == nil {
		return Blank(c.Width, c.Height, color.Black)
	}
	return c.FrameAt(t)
}

// End returns the absolute end of the clip's timeline window.
func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// ActiveAt reports whether the clip's window covers time t.
func (c Clip) ActiveAt(t float64) bool {
	return t >= c.Start && t < c.End()
}

// Still wraps a single frame into a static clip of the given duration.
func Still(img *image.RGBA, duration float64) Clip {
	b := img.Bounds()
	return Clip{
		FrameAt:  func(float64) *image.RGBA { return img },
		Width:    b.Dx(),
		Height:   b.Dy(),
		Duration: duration,
		Opacity:  1,
		Static:   true,
	}
}

// Solid builds a static single-colour clip. It is the degraded stand-in
// for assets that could not be fetched or decoded.
func Solid(col color.Color, width, height int, duration float64) Clip {
	c := Still(Blank(width, height, col), duration)
	return c
}

// Blank allocates a frame filled with the given colour.
func Blank(width, height int, col color.Color) *image.RGBA {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	return img
}
