package clip

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Scale resamples src to exactly width x height. Catmull-Rom is used for
// one-off stills; per-frame effect paths use ScaleFast instead.
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// ScaleFast resamples with bilinear approximation, cheap enough to run
// once per output frame.
func ScaleFast(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// FitInto scales src to fit inside width x height preserving aspect
// ratio, centred on a transparent canvas.
func FitInto(src image.Image, width, height int) *image.RGBA {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	scale := float64(width) / float64(sb.Dx())
	if s := float64(height) / float64(sb.Dy()); s < scale {
		scale = s
	}
	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	scaled := Scale(src, w, h)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	offset := image.Pt((width-w)/2, (height-h)/2)
	stddraw.Draw(dst, scaled.Bounds().Add(offset), scaled, image.Point{}, stddraw.Over)
	return dst
}

// WithOpacity returns a copy of img scaled by opacity in [0,1]. RGBA is
// alpha-premultiplied, so all four channels are scaled together; scaling
// alpha alone would leave full-brightness colour under draw.Over.
func WithOpacity(img *image.RGBA, opacity float64) *image.RGBA {
	if opacity >= 1 {
		return img
	}
	if opacity < 0 {
		opacity = 0
	}

	b := img.Bounds()
	out := image.NewRGBA(b)
	for i := 0; i < len(img.Pix); i++ {
		out.Pix[i] = uint8(float64(img.Pix[i]) * opacity)
	}
	return out
}

// DrawOver composites src onto dst at the given point, honouring src's
// alpha channel and an extra opacity multiplier.
func DrawOver(dst *image.RGBA, src *image.RGBA, at image.Point, opacity float64) {
	if opacity < 1 {
		src = WithOpacity(src, opacity)
	}
	stddraw.Draw(dst, src.Bounds().Add(at), src, image.Point{}, stddraw.Over)
}

// ParseColor reads "#rgb", "#rrggbb" or "#rrggbbaa" hex colours plus a
// few names the template format allows. Unparseable values degrade to
// neutral grey rather than failing the layer.
func ParseColor(s string) color.RGBA {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "black":
		return color.RGBA{0, 0, 0, 255}
	case "white":
		return color.RGBA{255, 255, 255, 255}
	case "transparent":
		return color.RGBA{}
	}

	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return color.RGBA{128, 128, 128, 255}
	}

	parse := func(h string) uint8 {
		v, err := strconv.ParseUint(h, 16, 8)
		if err != nil {
			return 128
		}
		return uint8(v)
	}

	c := color.RGBA{
		R: parse(hex[0:2]),
		G: parse(hex[2:4]),
		B: parse(hex[4:6]),
		A: 255,
	}
	if len(hex) == 8 {
		c.A = parse(hex[6:8])
	}
	return c
}
