package effects

import (
	"fmt"
	"image"
	"image/color"

	"vidforge/internal/clip"
)

// Transition kinds accepted by Join.
const (
	TransitionCrossfade  = "crossfade"
	TransitionFadeBlack  = "fade_black"
	TransitionSlideLeft  = "slide_left"
	TransitionSlideRight = "slide_right"
	TransitionWipeLeft   = "wipe_left"
	TransitionWipeRight  = "wipe_right"
)

var transitionKinds = map[string]bool{
	TransitionCrossfade:  true,
	TransitionFadeBlack:  true,
	TransitionSlideLeft:  true,
	TransitionSlideRight: true,
	TransitionWipeLeft:   true,
	TransitionWipeRight:  true,
}

// Join combines two backbone clips with a transition and returns the
// joined clip. Crossfade, slide and wipe overlap the clips so the
// result lasts a.Duration+b.Duration-d; fade_black inserts a black gap
// of d/2 so the result lasts a.Duration+d/2+b.Duration. Narration is
// carried on the global audio track, so transitions only touch pixels.
//
// File-backed clips cannot be joined in process; the caller falls back
// to a plain concat.
func Join(a, b clip.Clip, kind string, d float64) (clip.Clip, error) {
	if !transitionKinds[kind] {
		return clip.Clip{}, fmt.Errorf("unknown transition %q", kind)
	}
	if a.FileBacked() || b.FileBacked() {
		return clip.Clip{}, fmt.Errorf("transition %q needs frame-backed clips", kind)
	}
	if d <= 0 {
		return clip.Clip{}, fmt.Errorf("transition duration must be > 0, got %.3f", d)
	}
	if m := minFloat(a.Duration, b.Duration); d > m {
		d = m
	}

	if kind == TransitionFadeBlack {
		return joinFadeBlack(a, b, d), nil
	}
	return joinOverlap(a, b, kind, d), nil
}

func joinOverlap(a, b clip.Clip, kind string, d float64) clip.Clip {
	w, h := a.Width, a.Height
	overlapStart := a.Duration - d
	total := a.Duration + b.Duration - d

	frame := func(t float64) *image.RGBA {
		switch {
		case t < overlapStart:
			return a.Frame(t)
		case t >= a.Duration:
			return fitFrame(b.Frame(t-overlapStart), w, h)
		}
		p := (t - overlapStart) / d
		fa := a.Frame(t)
		fb := fitFrame(b.Frame(t-overlapStart), w, h)
		switch kind {
		case TransitionCrossfade:
			return blendFrames(fa, fb, p)
		case TransitionSlideLeft:
			return slideFrames(fa, fb, int((1-p)*float64(w)))
		case TransitionSlideRight:
			return slideFrames(fa, fb, -int((1-p)*float64(w)))
		case TransitionWipeLeft:
			return wipeFrames(fa, fb, w-int(p*float64(w)), w)
		default: // wipe_right
			return wipeFrames(fa, fb, 0, int(p*float64(w)))
		}
	}

	return clip.Clip{
		FrameAt:  frame,
		Width:    w,
		Height:   h,
		Duration: total,
		Start:    a.Start,
		Opacity:  1,
		LayerID:  a.LayerID,
	}
}

func joinFadeBlack(a, b clip.Clip, d float64) clip.Clip {
	half := d / 2
	w, h := a.Width, a.Height
	black := clip.Blank(w, h, color.Black)

	fadeOut := &Fade{Out: half}
	fadeIn := &Fade{In: half}
	gapStart := a.Duration
	bStart := a.Duration + half

	frame := func(t float64) *image.RGBA {
		switch {
		case t < gapStart:
			op := fadeOut.OpacityAt(t, a.Duration)
			return overBlack(a.Frame(t), op)
		case t < bStart:
			return black
		default:
			bt := t - bStart
			op := fadeIn.OpacityAt(bt, b.Duration)
			return overBlack(fitFrame(b.Frame(bt), w, h), op)
		}
	}

	return clip.Clip{
		FrameAt:  frame,
		Width:    w,
		Height:   h,
		Duration: a.Duration + half + b.Duration,
		Start:    a.Start,
		Opacity:  1,
		LayerID:  a.LayerID,
	}
}

// blendFrames mixes b over a at ratio p in [0,1].
func blendFrames(a, b *image.RGBA, p float64) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	q := 1 - p
	for i := 0; i < len(out.Pix) && i < len(b.Pix); i++ {
		out.Pix[i] = uint8(float64(a.Pix[i])*q + float64(b.Pix[i])*p)
	}
	return out
}

// slideFrames draws b shifted by dx pixels over a.
func slideFrames(a, b *image.RGBA, dx int) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	copy(out.Pix, a.Pix)
	clip.DrawOver(out, b, image.Point{X: dx}, 1)
	return out
}

// wipeFrames shows b in columns [from, to) and a elsewhere.
func wipeFrames(a, b *image.RGBA, from, to int) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	copy(out.Pix, a.Pix)
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	if from < 0 {
		from = 0
	}
	if to > w {
		to = w
	}
	for y := 0; y < h; y++ {
		for x := from; x < to; x++ {
			off := out.PixOffset(x, y)
			copy(out.Pix[off:off+4], b.Pix[b.PixOffset(x, y):b.PixOffset(x, y)+4])
		}
	}
	return out
}

// overBlack composites the frame onto black at the given opacity, so
// fades resolve to black rather than transparency.
func overBlack(frame *image.RGBA, opacity float64) *image.RGBA {
	out := clip.Blank(frame.Bounds().Dx(), frame.Bounds().Dy(), color.Black)
	clip.DrawOver(out, frame, image.Point{}, opacity)
	return out
}

func fitFrame(frame *image.RGBA, w, h int) *image.RGBA {
	if frame.Bounds().Dx() == w && frame.Bounds().Dy() == h {
		return frame
	}
	return clip.ScaleFast(frame, w, h)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
