package clip

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// RenderText draws wrapped, centred text onto a transparent canvas.
func RenderText(text string, width, height int, size float64, col color.Color) (*image.RGBA, error) {
	face, err := FontFace(goregular.TTF, size)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	dc.SetFontFace(face)
	dc.SetColor(col)
	dc.DrawStringWrapped(text, float64(width)/2, float64(height)/2, 0.5, 0.5, float64(width)*0.95, 1.3, gg.AlignCenter)
	return toRGBA(dc.Image()), nil
}

// RenderHeading draws left-aligned bold text on a solid banner, used by
// the ticker effect's heading tier.
func RenderHeading(text string, width, height int, size float64, fg, bg color.Color) (*image.RGBA, error) {
	face, err := FontFace(gobold.TTF, size)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetColor(fg)
	dc.DrawStringAnchored(text, float64(height)*0.4, float64(height)/2, 0, 0.5)
	return toRGBA(dc.Image()), nil
}

// RenderTextStrip draws a single unwrapped line sized to its own width,
// returning the strip and its pixel width. The ticker repeats the strip
// to guarantee seamless wraparound.
func RenderTextStrip(text string, height int, size float64, fg color.Color) (*image.RGBA, float64, error) {
	face, err := FontFace(goregular.TTF, size)
	if err != nil {
		return nil, 0, err
	}

	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	w, _ := measure.MeasureString(text)
	stripWidth := int(w) + height // trailing gap before the text repeats

	dc := gg.NewContext(stripWidth, height)
	dc.SetFontFace(face)
	dc.SetColor(fg)
	dc.DrawStringAnchored(text, 0, float64(height)/2, 0, 0.5)
	return toRGBA(dc.Image()), float64(stripWidth), nil
}

// RenderShape fills a rounded rectangle, the only shape kind templates
// currently declare.
func RenderShape(width, height int, col color.Color) *image.RGBA {
	radius := float64(minInt(width, height)) * 0.08
	dc := gg.NewContext(width, height)
	dc.SetColor(col)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), radius)
	dc.Fill()
	return toRGBA(dc.Image())
}

// FontFace builds a face from embedded font data at the given size.
func FontFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	return face, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
