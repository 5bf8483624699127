package timing

import (
	"errors"
	"log"
	"path"
	"strings"
)

// Distributor assigns media assets to narration sections so that every
// second of spoken audio has screen media scheduled against it.
type Distributor struct {
	Log *log.Logger
}

// Distribute splits assets across sections. In auto mode each section
// receives an even share with the remainder assigned round-robin; in
// manual mode an explicit section-key -> asset-URL mapping is honoured.
// Assets are never dropped: when there are more assets than base
// capacity the surplus cycles through sections in order.
func (d Distributor) Distribute(assets []MediaAsset, sections []Section, mode Mode, mapping map[string][]string) (Plan, error) {
	if len(sections) == 0 {
		return Plan{}, errors.New("no sections to distribute against")
	}

	if mode == ModeManual {
		plan, ok := d.distributeManual(assets, sections, mapping)
		if ok {
			return plan, nil
		}
		// A manual mapping that matched nothing falls back to auto so the
		// render still produces media. See DESIGN.md: this mirrors the
		// observed behaviour even though a mapping that legitimately
		// assigns zero media arguably should not flip the whole mode.
		d.logf("manual mapping assigned no assets, falling back to auto distribution")
	}

	return d.distributeAuto(assets, sections), nil
}

func (d Distributor) distributeAuto(assets []MediaAsset, sections []Section) Plan {
	counts := autoCounts(len(assets), len(sections))

	perSection := make([][]MediaAsset, len(sections))
	next := 0
	for i := range sections {
		take := counts[i]
		perSection[i] = assets[next : next+take]
		next += take
	}

	return buildPlan(sections, perSection)
}

// autoCounts computes how many assets each section receives: an even
// base share of max(1, n/m), capped by availability, with the remainder
// handed out round-robin from the first section.
func autoCounts(nAssets, nSections int) []int {
	counts := make([]int, nSections)
	base := nAssets / nSections
	if base < 1 {
		base = 1
	}

	remaining := nAssets
	for i := range counts {
		take := base
		if take > remaining {
			take = remaining
		}
		counts[i] = take
		remaining -= take
	}
	for i := 0; remaining > 0; i = (i + 1) % nSections {
		counts[i]++
		remaining--
	}
	return counts
}

func (d Distributor) distributeManual(assets []MediaAsset, sections []Section, mapping map[string][]string) (Plan, bool) {
	byURL := make(map[string]MediaAsset, len(assets))
	for _, a := range assets {
		byURL[a.URL] = a
	}

	sectionByKey := make(map[string]int, len(sections))
	for i, s := range sections {
		sectionByKey[NormalizeKey(s.Title)] = i
	}

	perSection := make([][]MediaAsset, len(sections))
	total := 0
	for key, urls := range mapping {
		idx, ok := sectionByKey[NormalizeKey(key)]
		if !ok {
			d.logf("manual mapping key %q matches no section, dropping %d asset(s)", key, len(urls))
			continue
		}
		for _, url := range urls {
			asset, ok := byURL[url]
			if !ok {
				asset = MediaAsset{URL: url, Type: InferType(url)}
			}
			perSection[idx] = append(perSection[idx], asset)
			total++
		}
	}

	if total == 0 {
		return Plan{}, false
	}
	return buildPlan(sections, perSection), true
}

// buildPlan converts per-section asset groups into timed assets. Each
// section's audio duration is split equally across its assets, and start
// times run sequentially across the whole timeline so the index can be
// consumed directly by layer expansion.
func buildPlan(sections []Section, perSection [][]MediaAsset) Plan {
	plan := Plan{PerSection: make(map[string][]TimedAsset, len(sections))}

	offset := 0.0
	for i, s := range sections {
		group := perSection[i]
		if len(group) == 0 {
			// Audio-only section: narration plays with no assigned media.
			plan.PerSection[s.Title] = nil
			offset += s.AudioDuration
			continue
		}

		share := s.AudioDuration / float64(len(group))
		timed := make([]TimedAsset, 0, len(group))
		for _, a := range group {
			timed = append(timed, TimedAsset{
				URL:       a.URL,
				Type:      a.Type,
				Duration:  share,
				StartTime: offset,
				Section:   s.Title,
			})
			offset += share
		}
		plan.PerSection[s.Title] = timed
		plan.Ordered = append(plan.Ordered, timed...)
	}

	return plan
}

// NormalizeKey canonicalises a section title or mapping key so that
// "Call-to-Action" and "call_to_action" compare equal.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// InferType guesses image vs video from a URL suffix. Unknown suffixes
// are treated as images since a still frame is the safe degradation.
func InferType(url string) MediaType {
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	switch ext {
	case ".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v":
		return MediaVideo
	default:
		return MediaImage
	}
}

func (d Distributor) logf(format string, args ...any) {
	if d.Log != nil {
		d.Log.Printf(format, args...)
	}
}
