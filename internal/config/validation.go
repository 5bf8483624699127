package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate runs all validations against the config and returns the
// structured results. Errors make the config unusable; warnings are
// advisory.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVideo()...)
	results = append(results, c.validateEncoding()...)
	results = append(results, c.validateAudio()...)
	results = append(results, c.validateTransition()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateVideo() []ValidationResult {
	var results []ValidationResult
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		results = append(results, errorf("video dimensions %dx%d invalid", c.Video.Width, c.Video.Height))
	}
	if c.Video.FPS < 1 || c.Video.FPS > 120 {
		results = append(results, errorf("fps %d outside 1..120", c.Video.FPS))
	}
	if c.Video.AspectRatio != "" && c.Video.Width > 0 && c.Video.Height > 0 {
		ratio, err := ParseAspectRatio(c.Video.AspectRatio)
		if err != nil {
			results = append(results, errorf("aspect ratio: %v", err))
		} else if actual := float64(c.Video.Width) / float64(c.Video.Height); math.Abs(actual-ratio) > 0.02 {
			results = append(results, errorf("aspect ratio %s does not match %dx%d",
				c.Video.AspectRatio, c.Video.Width, c.Video.Height))
		}
	}
	return results
}

func (c Config) validateEncoding() []ValidationResult {
	var results []ValidationResult
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		results = append(results, errorf("crf %d outside 0..51", c.Encoding.CRF))
	}
	switch c.Encoding.Preset {
	case "", "ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow":
	default:
		results = append(results, warnf("unrecognised preset %q, ffmpeg may reject it", c.Encoding.Preset))
	}
	return results
}

func (c Config) validateAudio() []ValidationResult {
	var results []ValidationResult
	if c.Audio.MusicVolume < 0 || c.Audio.MusicVolume > 2 {
		results = append(results, errorf("music volume %.2f outside 0..2", c.Audio.MusicVolume))
	}
	if c.Audio.VoiceVolume <= 0 || c.Audio.VoiceVolume > 2 {
		results = append(results, errorf("voice volume %.2f outside 0..2", c.Audio.VoiceVolume))
	}
	if c.Audio.MusicVolume >= c.Audio.VoiceVolume {
		results = append(results, warnf("music volume %.2f is not below voice volume %.2f, narration may drown",
			c.Audio.MusicVolume, c.Audio.VoiceVolume))
	}
	return results
}

func (c Config) validateTransition() []ValidationResult {
	var results []ValidationResult
	if c.Transition.Type == "" {
		return results
	}
	switch c.Transition.Type {
	case "crossfade", "fade_black", "slide_left", "slide_right", "wipe_left", "wipe_right":
	default:
		results = append(results, errorf("unknown transition %q", c.Transition.Type))
	}
	if c.Transition.DurationSec <= 0 {
		results = append(results, errorf("transition duration %.2f must be > 0", c.Transition.DurationSec))
	}
	return results
}

// ParseAspectRatio reads "W:H" into a float ratio.
func ParseAspectRatio(s string) (float64, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("aspect ratio %q is not W:H", s)
	}
	w, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("aspect ratio %q: %w", s, err)
	}
	h, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || h == 0 {
		return 0, fmt.Errorf("aspect ratio %q has invalid height", s)
	}
	return w / h, nil
}

func errorf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "warning", Message: fmt.Sprintf(format, args...)}
}
