package effects

// easings maps names to unit-interval easing curves. Inputs and outputs
// are both in [0,1].
var easings = map[string]func(float64) float64{
	"linear":      func(p float64) float64 { return p },
	"quad-in":     func(p float64) float64 { return p * p },
	"quad-out":    func(p float64) float64 { return p * (2 - p) },
	"quad-in-out": quadInOut,
}

func quadInOut(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	return -1 + (4-2*p)*p
}
