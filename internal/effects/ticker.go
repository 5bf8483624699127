package effects

import (
	"fmt"
	"image"
	"math"

	"vidforge/internal/clip"
)

func init() {
	Register("ticker", func(params map[string]any) (Effect, error) {
		return &Ticker{
			Heading:      stringParam(params, "heading", ""),
			Text:         stringParam(params, "text", ""),
			HeadingColor: stringParam(params, "heading_color", "#ffffff"),
			TextColor:    stringParam(params, "text_color", "#ffffff"),
			Background:   stringParam(params, "background", "#1a1a2eE6"),
			Height:       floatParam(params, "height", 0.12),
			Speed:        floatParam(params, "speed", 90),
		}, nil
	})
}

// Ticker draws a two-tier banner at the bottom of the frame: a static
// heading bar above a horizontally scrolling text strip.
type Ticker struct {
	Heading      string
	Text         string
	HeadingColor string
	TextColor    string
	Background   string
	Height       float64 // fraction of frame height, both tiers together
	Speed        float64 // scroll speed in px/s
}

func (tk *Ticker) Validate() error {
	if tk.Text == "" {
		return fmt.Errorf("ticker text is empty")
	}
	if tk.Height <= 0 || tk.Height > 0.5 {
		return fmt.Errorf("ticker height %.2f out of range", tk.Height)
	}
	if tk.Speed <= 0 {
		return fmt.Errorf("ticker speed must be > 0, got %.1f", tk.Speed)
	}
	return nil
}

func (tk *Ticker) Apply(c clip.Clip) (clip.Clip, error) {
	if c.FileBacked() {
		return c, fmt.Errorf("ticker overlay applies after frames are materialised")
	}
	if c.FrameAt == nil {
		return c, fmt.Errorf("clip %s has no frames", c.LayerID)
	}

	bannerH := int(math.Round(tk.Height * float64(c.Height)))
	headingH := bannerH / 2
	stripH := bannerH - headingH

	heading, err := clip.RenderHeading(tk.Heading, c.Width, headingH,
		float64(headingH)*0.6, clip.ParseColor(tk.HeadingColor), clip.ParseColor(tk.Background))
	if err != nil {
		return c, err
	}
	strip, stripW, err := clip.RenderTextStrip(tk.Text, stripH,
		float64(stripH)*0.6, clip.ParseColor(tk.TextColor))
	if err != nil {
		return c, err
	}
	background := clip.Blank(c.Width, stripH, clip.ParseColor(tk.Background))

	inner := c.FrameAt
	width := c.Width
	height := c.Height
	c.FrameAt = func(t float64) *image.RGBA {
		frame := inner(t)
		out := image.NewRGBA(frame.Bounds())
		copy(out.Pix, frame.Pix)

		headingY := height - bannerH
		stripY := height - stripH
		clip.DrawOver(out, heading, image.Point{Y: headingY}, 1)
		clip.DrawOver(out, background, image.Point{Y: stripY}, 1)

		// Tile the strip across the row so the scroll wraps seamlessly.
		offset := tk.OffsetAt(t, stripW)
		for x := -int(offset); x < width; x += int(stripW) {
			clip.DrawOver(out, strip, image.Point{X: x, Y: stripY}, 1)
		}
		return out
	}
	c.Static = false
	return c, nil
}

// OffsetAt returns the scroll offset at time t for a strip of the given
// pixel width.
func (tk *Ticker) OffsetAt(t, stripWidth float64) float64 {
	if stripWidth <= 0 {
		return 0
	}
	return math.Mod(t*tk.Speed, stripWidth)
}
