// Package audio assembles the final soundtrack. Narration is the
// primary track; background music is mixed underneath it and any mixing
// failure degrades to narration only.
package audio

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"vidforge/internal/tools"
)

// MixOptions tunes the background music blend.
type MixOptions struct {
	MusicVolume float64 // gain applied to the music track
	VoiceVolume float64 // gain applied to the narration track
	FadeIn      float64 // music fade-in seconds
	FadeOut     float64 // music fade-out seconds
}

// DefaultMixOptions keeps narration dominant over the music bed.
func DefaultMixOptions() MixOptions {
	return MixOptions{MusicVolume: 0.18, VoiceVolume: 1.0, FadeIn: 2, FadeOut: 3}
}

// Mixer blends narration with background music through ffmpeg.
type Mixer struct {
	Runner  tools.Runner
	FFmpeg  string
	WorkDir string
	Log     *log.Logger
}

// Mix returns the path of the combined soundtrack trimmed to duration.
// The music is looped if shorter than the target, faded in and out, and
// summed under the narration. If anything goes wrong the narration path
// is returned unchanged.
func (m *Mixer) Mix(ctx context.Context, narration, music string, duration float64, opts MixOptions) string {
	if music == "" {
		return narration
	}

	out := filepath.Join(m.WorkDir, "soundtrack.m4a")
	args := MixArgs(narration, music, out, duration, opts)
	if _, err := m.Runner.Run(ctx, m.FFmpeg, args, tools.RunOptions{}); err != nil {
		m.logf("music mix failed, narration only: %v", err)
		return narration
	}
	return out
}

// MixArgs builds the ffmpeg invocation for the narration/music blend.
func MixArgs(narration, music, out string, duration float64, opts MixOptions) []string {
	fadeOutStart := duration - opts.FadeOut
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	musicChain := []string{
		"aloop=loop=-1:size=2000000000",
		fmt.Sprintf("atrim=0:%.3f", duration),
	}
	if opts.FadeIn > 0 {
		musicChain = append(musicChain, fmt.Sprintf("afade=t=in:st=0:d=%.3f", opts.FadeIn))
	}
	if opts.FadeOut > 0 {
		musicChain = append(musicChain, fmt.Sprintf("afade=t=out:st=%.3f:d=%.3f", fadeOutStart, opts.FadeOut))
	}
	musicChain = append(musicChain, fmt.Sprintf("volume=%.2f", opts.MusicVolume))

	filter := fmt.Sprintf("[1:a]%s[music];[0:a]volume=%.2f[voice];[voice][music]amix=inputs=2:duration=first:dropout_transition=2[mix]",
		strings.Join(musicChain, ","), opts.VoiceVolume)

	return []string{
		"-y",
		"-i", narration,
		"-i", music,
		"-filter_complex", filter,
		"-map", "[mix]",
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:a", "aac",
		"-b:a", "192k",
		out,
	}
}

func (m *Mixer) logf(format string, args ...any) {
	if m.Log != nil {
		m.Log.Printf(format, args...)
	}
}
