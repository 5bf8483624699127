// Package effects holds the clip effect catalog. Effects are looked up
// through a registry so new ones can be added without touching the
// composition code.
package effects

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"

	"vidforge/internal/clip"
	"vidforge/internal/template"
)

// Effect transforms a single clip. Validate is called once before any
// Apply; Apply must not mutate the input clip's frames in place.
type Effect interface {
	Validate() error
	Apply(c clip.Clip) (clip.Clip, error)
}

// Factory builds an effect from its template parameters.
type Factory func(params map[string]any) (Effect, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs a factory under the given effect name. Registering
// the same name twice panics; effect names are package-level constants.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("effects: duplicate registration for %q", name))
	}
	registry[name] = f
}

// overlayEffects draw on top of the frame instead of transforming it.
// They cannot run on file-backed clips, so the render engine routes
// them onto a frame-backed overlay plane instead.
var overlayEffects = map[string]bool{
	"logo":       true,
	"ticker":     true,
	"qr_overlay": true,
}

// DrawsOverlay reports whether the named effect belongs on the overlay
// plane rather than in a clip's own pixel or filter pipeline.
func DrawsOverlay(name string) bool {
	return overlayEffects[name]
}

// New builds the effect named by the template entry.
func New(e template.Effect) (Effect, error) {
	registryMu.RLock()
	f, ok := registry[e.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown effect %q", e.Type)
	}
	return f(e.Params)
}

// Names returns the registered effect names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyAll runs each effect against the clip in order. A failing effect
// is logged and skipped; the clip from before that effect carries on.
// Rendering never aborts because an effect misbehaved.
func ApplyAll(c clip.Clip, specs []template.Effect, logger *log.Logger) clip.Clip {
	for _, spec := range specs {
		eff, err := New(spec)
		if err != nil {
			logf(logger, "effect %s skipped: %v", spec.Type, err)
			continue
		}
		if err := eff.Validate(); err != nil {
			logf(logger, "effect %s invalid: %v", spec.Type, err)
			continue
		}
		next, err := eff.Apply(c)
		if err != nil {
			logf(logger, "effect %s failed on layer %s: %v", spec.Type, c.LayerID, err)
			continue
		}
		c = next
	}
	return c
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// floatParam reads a numeric parameter, tolerating the types JSON and
// YAML decoders produce.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}
