package template

import (
	"fmt"

	"vidforge/internal/timing"
)

// Expand flattens every array-source layer into sequential scalar-source
// layers. Timing comes from the distributor's index when an entry exists
// for the asset; otherwise the layer's own duration (or totalDuration) is
// split uniformly across the array. Non-expandable layers pass through
// with a nil duration defaulted to totalDuration.
func Expand(layers []Layer, idx timing.Index, totalDuration float64) []Layer {
	out := make([]Layer, 0, len(layers))

	for _, l := range layers {
		if !l.Expandable() {
			if l.Duration == nil {
				d := totalDuration
				l.Duration = &d
			}
			out = append(out, l)
			continue
		}

		n := len(l.Source.Values)
		if n == 0 {
			continue
		}

		window := totalDuration
		if l.Duration != nil && *l.Duration > 0 {
			window = *l.Duration
		}
		share := window / float64(n)

		for i, url := range l.Source.Values {
			sub := l
			sub.ID = fmt.Sprintf("%s_%d", l.ID, i)
			sub.Source = Scalar(url)

			if entry, ok := idx.Lookup(url); ok {
				sub.StartTime = entry.StartTime
				d := entry.Duration
				sub.Duration = &d
				if l.Type == LayerMixed {
					sub.Type = layerTypeFor(entry.Type)
				}
			} else {
				sub.StartTime = l.StartTime + float64(i)*share
				d := share
				sub.Duration = &d
				if l.Type == LayerMixed {
					sub.Type = layerTypeFor(timing.InferType(url))
				}
			}
			out = append(out, sub)
		}
	}

	return out
}

func layerTypeFor(mt timing.MediaType) LayerType {
	if mt == timing.MediaVideo {
		return LayerVideo
	}
	return LayerImage
}
