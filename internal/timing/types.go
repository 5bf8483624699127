package timing

// MediaType identifies the kind of a media asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Mode selects how assets are distributed across sections.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// MediaAsset is an unassigned input asset.
type MediaAsset struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// Section is a narration unit with a known spoken duration.
type Section struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	AudioDuration float64 `json:"audio_duration"`
}

// TimedAsset is an asset assigned to a section with concrete timing.
// StartTime is absolute on the final timeline.
type TimedAsset struct {
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	Duration  float64   `json:"duration"`
	StartTime float64   `json:"start_time"`
	Section   string    `json:"section"`
}

// Plan is the output of Distribute: assets grouped per section plus the
// flat presentation order.
type Plan struct {
	PerSection map[string][]TimedAsset
	Ordered    []TimedAsset
}

// Index is an immutable URL -> TimedAsset lookup built once from a plan
// and passed through layer expansion.
type Index struct {
	entries map[string]TimedAsset
}

// Index builds the timing index for the plan's ordered assets. When the
// same URL appears more than once the first assignment wins.
func (p Plan) Index() Index {
	entries := make(map[string]TimedAsset, len(p.Ordered))
	for _, ta := range p.Ordered {
		if _, ok := entries[ta.URL]; !ok {
			entries[ta.URL] = ta
		}
	}
	return Index{entries: entries}
}

// Lookup returns the timing entry for an asset URL when one exists.
func (idx Index) Lookup(url string) (TimedAsset, bool) {
	ta, ok := idx.entries[url]
	return ta, ok
}

// Len reports the number of indexed assets.
func (idx Index) Len() int {
	return len(idx.entries)
}
