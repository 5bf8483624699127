package effects

import (
	"fmt"
	"image"

	"vidforge/internal/clip"
)

func init() {
	Register("fade", func(params map[string]any) (Effect, error) {
		return &Fade{
			In:  floatParam(params, "fade_in_duration", 0),
			Out: floatParam(params, "fade_out_duration", 0),
		}, nil
	})
}

// Fade ramps clip opacity linearly at its start and end.
type Fade struct {
	In  float64
	Out float64
}

func (f *Fade) Validate() error {
	if f.In < 0 || f.Out < 0 {
		return fmt.Errorf("fade durations must be >= 0, got in=%.2f out=%.2f", f.In, f.Out)
	}
	if f.In == 0 && f.Out == 0 {
		return fmt.Errorf("fade with no in or out duration")
	}
	return nil
}

func (f *Fade) Apply(c clip.Clip) (clip.Clip, error) {
	in, out := f.ramps(c.Duration)

	if c.FileBacked() {
		if in > 0 {
			c.Filters = append(c.Filters, fmt.Sprintf("fade=t=in:st=0:d=%.3f", in))
		}
		if out > 0 {
			c.Filters = append(c.Filters, fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f", c.Duration-out, out))
		}
		return c, nil
	}
	if c.FrameAt == nil {
		return c, fmt.Errorf("clip %s has no frames", c.LayerID)
	}

	inner := c.FrameAt
	d := c.Duration
	c.FrameAt = func(t float64) *image.RGBA {
		op := f.opacityAt(t, d, in, out)
		frame := inner(t)
		if op >= 1 {
			return frame
		}
		return clip.WithOpacity(frame, op)
	}
	c.Static = false
	return c, nil
}

// OpacityAt returns the fade multiplier at time t of a clip of
// duration d.
func (f *Fade) OpacityAt(t, d float64) float64 {
	in, out := f.ramps(d)
	return f.opacityAt(t, d, in, out)
}

func (f *Fade) opacityAt(t, d, in, out float64) float64 {
	op := 1.0
	if in > 0 && t < in {
		op = t / in
	}
	if out > 0 && t > d-out {
		if v := (d - t) / out; v < op {
			op = v
		}
	}
	if op < 0 {
		return 0
	}
	return op
}

// ramps scales the in/out windows down proportionally when their sum
// exceeds the clip duration, so neither crosses the midpoint.
func (f *Fade) ramps(d float64) (float64, float64) {
	in, out := f.In, f.Out
	if sum := in + out; sum > d && sum > 0 {
		in = in / sum * d
		out = out / sum * d
	}
	return in, out
}
