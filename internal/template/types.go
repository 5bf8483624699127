package template

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// LayerType identifies what a layer renders.
type LayerType string

const (
	LayerImage LayerType = "image"
	LayerVideo LayerType = "video"
	LayerText  LayerType = "text"
	LayerShape LayerType = "shape"
	LayerMixed LayerType = "mixed"
)

// VarType constrains what a template variable may hold.
type VarType string

const (
	VarText   VarType = "text"
	VarColor  VarType = "color"
	VarImage  VarType = "image"
	VarVideo  VarType = "video"
	VarNumber VarType = "number"
	VarURL    VarType = "url"
	VarAudio  VarType = "audio"
	VarFont   VarType = "font"
)

// VarSpec declares a template variable and its fallback default.
type VarSpec struct {
	Type    VarType `json:"type"`
	Default string  `json:"default,omitempty"`
}

// Resolution is the output frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Position holds fractional frame coordinates in [0,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size holds fractional frame dimensions in [0,1]. Zero means "full frame".
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fade is the per-layer fade declaration.
type Fade struct {
	Enabled bool    `json:"enabled"`
	In      float64 `json:"in"`
	Out     float64 `json:"out"`
	Type    string  `json:"type,omitempty"`
}

// Source is a layer source that accepts either a JSON string or an array
// of strings. A layer whose source was declared as an array is
// expandable; after expansion every layer carries a scalar source.
type Source struct {
	Values  []string
	IsArray bool
}

// Scalar wraps a single source value.
func Scalar(v string) Source {
	return Source{Values: []string{v}}
}

// List wraps an array source.
func List(vs ...string) Source {
	return Source{Values: vs, IsArray: true}
}

// Value returns the scalar source, or the first element for arrays.
func (s Source) Value() string {
	if len(s.Values) == 0 {
		return ""
	}
	return s.Values[0]
}

// UnmarshalJSON accepts "url" or ["url", ...].
func (s *Source) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		s.IsArray = true
		return json.Unmarshal(data, &s.Values)
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("layer source must be a string or string array: %w", err)
	}
	s.Values = []string{single}
	s.IsArray = false
	return nil
}

// MarshalJSON emits the same shape the source was declared with.
func (s Source) MarshalJSON() ([]byte, error) {
	if s.IsArray {
		return json.Marshal(s.Values)
	}
	return json.Marshal(s.Value())
}

// Layer is one visual element on the template timeline.
type Layer struct {
	ID        string    `json:"id"`
	Type      LayerType `json:"type"`
	Source    Source    `json:"source"`
	Position  Position  `json:"position"`
	Size      Size      `json:"size"`
	StartTime float64   `json:"start_time"`
	Duration  *float64  `json:"duration"`
	ZIndex    int       `json:"z_index"`
	Opacity   *float64  `json:"opacity,omitempty"`
	Fade      *Fade     `json:"fade,omitempty"`

	// Text/shape presentation fields.
	Text     string  `json:"text,omitempty"`
	Color    string  `json:"color,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
}

// OpacityValue returns the effective opacity, defaulting to fully opaque.
func (l Layer) OpacityValue() float64 {
	if l.Opacity == nil {
		return 1.0
	}
	if *l.Opacity < 0 {
		return 0
	}
	if *l.Opacity > 1 {
		return 1
	}
	return *l.Opacity
}

// Expandable reports whether the layer's source was declared as an array.
func (l Layer) Expandable() bool {
	return l.Source.IsArray
}

// Effect is a named transform with free-form parameters. Effects without
// a target apply to the whole composed clip; targeted effects apply to a
// single layer's clip before composition.
type Effect struct {
	Type          string         `json:"type"`
	Params        map[string]any `json:"params,omitempty"`
	TargetLayerID string         `json:"target_layer_id,omitempty"`
}

// Template is the declarative render document.
type Template struct {
	TemplateID      string             `json:"template_id"`
	AspectRatio     string             `json:"aspect_ratio"`
	Resolution      Resolution         `json:"resolution"`
	Layers          []Layer            `json:"layers"`
	Effects         []Effect           `json:"effects,omitempty"`
	Variables       map[string]VarSpec `json:"variables,omitempty"`
	BackgroundMusic string             `json:"background_music,omitempty"`
	Logo            string             `json:"logo,omitempty"`
}

// Parse decodes a template document.
func Parse(data []byte) (Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("decode template: %w", err)
	}
	return tpl, nil
}

// Load reads and decodes a template document from disk.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	return Parse(data)
}

// Validate checks structural invariants: positive resolution, an aspect
// ratio consistent with it, and per-layer coordinate ranges.
func (t Template) Validate() error {
	var errs []string

	if t.Resolution.Width <= 0 || t.Resolution.Height <= 0 {
		errs = append(errs, "resolution must be positive")
	} else if ratio := parseAspectRatio(t.AspectRatio); ratio > 0 {
		actual := float64(t.Resolution.Width) / float64(t.Resolution.Height)
		if math.Abs(actual-ratio) > 0.02 {
			errs = append(errs, fmt.Sprintf("resolution %dx%d does not match aspect ratio %q",
				t.Resolution.Width, t.Resolution.Height, t.AspectRatio))
		}
	}

	if len(t.Layers) == 0 {
		errs = append(errs, "template has no layers")
	}

	for _, l := range t.Layers {
		if l.ID == "" {
			errs = append(errs, "layer missing id")
		}
		switch l.Type {
		case LayerImage, LayerVideo, LayerText, LayerShape, LayerMixed:
		default:
			errs = append(errs, fmt.Sprintf("layer %s: unknown type %q", l.ID, l.Type))
		}
		if l.StartTime < 0 {
			errs = append(errs, fmt.Sprintf("layer %s: negative start_time", l.ID))
		}
		if l.Duration != nil && *l.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("layer %s: duration must be positive", l.ID))
		}
		if outOfUnit(l.Position.X) || outOfUnit(l.Position.Y) {
			errs = append(errs, fmt.Sprintf("layer %s: position outside [0,1]", l.ID))
		}
		if outOfUnit(l.Size.Width) || outOfUnit(l.Size.Height) {
			errs = append(errs, fmt.Sprintf("layer %s: size outside [0,1]", l.ID))
		}
		if l.Opacity != nil && outOfUnit(*l.Opacity) {
			errs = append(errs, fmt.Sprintf("layer %s: opacity outside [0,1]", l.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid template: %s", strings.Join(errs, "; "))
	}
	return nil
}

func outOfUnit(v float64) bool {
	return v < 0 || v > 1
}

// parseAspectRatio turns "16:9" into 16/9. Unknown formats return 0 and
// skip the consistency check.
func parseAspectRatio(s string) float64 {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0
	}
	w, err1 := strconv.ParseFloat(parts[0], 64)
	h, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0
	}
	return w / h
}
