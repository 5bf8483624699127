// Package compose arranges synthesized clips onto a timeline: video
// clips concatenate into a backbone, everything else overlays it.
package compose

import (
	"fmt"
	"log"
	"math"
	"sort"

	"vidforge/internal/clip"
	"vidforge/internal/effects"
)

// Unit is one backbone segment with its absolute start on the timeline.
type Unit struct {
	Clip  clip.Clip
	Start float64
}

// Timeline is the composed render plan handed to the encoder.
type Timeline struct {
	Units    []Unit      // sequential backbone segments
	Overlays []clip.Clip // z-ordered, absolutely positioned, time-windowed
	Audio    string      // path of the final soundtrack
	Duration float64
	Width    int
	Height   int
	FPS      int
	Loops    int // extra visual repetitions when audio outruns the backbone
}

// Options configures a composition pass.
type Options struct {
	Width      int
	Height     int
	FPS        int
	Transition string  // between backbone segments, empty for hard cuts
	TransDur   float64 // transition duration in seconds
	Log        *log.Logger
}

// Compose partitions clips into a backbone and overlays. Video clips
// form the backbone ordered by start time; with no video clips the
// externally supplied background takes their place and its absence is a
// fatal input error. audioDuration is the length of the final
// soundtrack; if it outruns the visuals, the backbone loops and trims
// to match so narration is never cut short.
func Compose(clips []clip.Clip, background *clip.Clip, audioPath string, audioDuration float64, opts Options) (Timeline, error) {
	var backbone, overlays []clip.Clip
	for _, c := range clips {
		if c.IsVideo {
			backbone = append(backbone, c)
		} else {
			overlays = append(overlays, c)
		}
	}

	sort.SliceStable(backbone, func(i, j int) bool { return backbone[i].Start < backbone[j].Start })
	sort.SliceStable(overlays, func(i, j int) bool { return overlays[i].ZIndex < overlays[j].ZIndex })

	if len(backbone) == 0 {
		if background == nil {
			return Timeline{}, fmt.Errorf("no video layers and no background clip supplied")
		}
		backbone = []clip.Clip{*background}
	}

	backbone = joinBackbone(backbone, opts)

	units := make([]Unit, 0, len(backbone))
	var cursor float64
	for _, c := range backbone {
		units = append(units, Unit{Clip: c, Start: cursor})
		cursor += c.Duration
	}

	tl := Timeline{
		Units:    units,
		Overlays: overlays,
		Audio:    audioPath,
		Duration: cursor,
		Width:    opts.Width,
		Height:   opts.Height,
		FPS:      opts.FPS,
	}

	if audioDuration > tl.Duration+1e-6 && tl.Duration > 0 {
		tl.Loops = int(math.Ceil(audioDuration/tl.Duration)) - 1
		tl.Duration = audioDuration
	}
	return tl, nil
}

// joinBackbone applies the configured transition between neighbouring
// segments. File-backed pairs cannot overlap in process; they fall back
// to a hard cut, as does any transition failure.
func joinBackbone(backbone []clip.Clip, opts Options) []clip.Clip {
	if opts.Transition == "" || opts.TransDur <= 0 || len(backbone) < 2 {
		return backbone
	}

	out := backbone[:1]
	for _, next := range backbone[1:] {
		prev := out[len(out)-1]
		joined, err := effects.Join(prev, next, opts.Transition, opts.TransDur)
		if err != nil {
			if opts.Log != nil {
				opts.Log.Printf("transition %s between %s and %s fell back to a cut: %v",
					opts.Transition, prev.LayerID, next.LayerID, err)
			}
			out = append(out, next)
			continue
		}
		out[len(out)-1] = joined
	}
	return out
}

// OverlaysAt returns the overlays active at time t, in z order. The
// time is taken modulo the unlooped backbone length so overlays repeat
// with the visuals when the timeline loops.
func (tl Timeline) OverlaysAt(t float64) []clip.Clip {
	base := tl.backboneLength()
	if tl.Loops > 0 && base > 0 {
		t = math.Mod(t, base)
	}
	var active []clip.Clip
	for _, o := range tl.Overlays {
		if o.ActiveAt(t) {
			active = append(active, o)
		}
	}
	return active
}

// UnitAt returns the backbone unit covering time t and the local time
// within it.
func (tl Timeline) UnitAt(t float64) (Unit, float64, bool) {
	base := tl.backboneLength()
	if tl.Loops > 0 && base > 0 {
		t = math.Mod(t, base)
	}
	for _, u := range tl.Units {
		if t >= u.Start && t < u.Start+u.Clip.Duration {
			return u, t - u.Start, true
		}
	}
	if n := len(tl.Units); n > 0 && t >= base {
		last := tl.Units[n-1]
		return last, last.Clip.Duration, true
	}
	return Unit{}, 0, false
}

func (tl Timeline) backboneLength() float64 {
	var total float64
	for _, u := range tl.Units {
		total += u.Clip.Duration
	}
	return total
}
