package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

const (
	encodingProfileFile = "encoding_profile.json"
	encodingProfileTTL  = 24 * time.Hour
)

// h264Candidates lists H.264 encoders in preference order: hardware
// first, libx264 as the guaranteed software fallback.
var h264Candidates = []string{"h264_videotoolbox", "h264_nvenc", "h264_amf", "libx264"}

// EncodingProfile is the cached result of encoder probing for this host.
type EncodingProfile struct {
	SelectedCodec   string    `json:"selected_codec"`
	AvailableCodecs []string  `json:"available_codecs"`
	Hostname        string    `json:"hostname"`
	GOOS            string    `json:"goos"`
	ProbedAt        time.Time `json:"probed_at"`
}

// Hardware reports whether the selected codec is hardware accelerated.
func (p EncodingProfile) Hardware() bool {
	return p.SelectedCodec != "" && p.SelectedCodec != "libx264"
}

func encodingProfilePath() (string, error) {
	root, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(root, "vidforge", encodingProfileFile), nil
}

// LoadEncodingProfile loads the cached profile if it is fresh and was
// probed on this machine. Returns nil when a fresh probe is needed.
func LoadEncodingProfile() *EncodingProfile {
	path, err := encodingProfilePath()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var profile EncodingProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil
	}
	if time.Since(profile.ProbedAt) > encodingProfileTTL {
		return nil
	}
	hostname, _ := os.Hostname()
	if profile.GOOS != runtime.GOOS || profile.Hostname != hostname {
		return nil
	}
	return &profile
}

// SaveEncodingProfile persists the probe result.
func SaveEncodingProfile(profile EncodingProfile) error {
	path, err := encodingProfilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare encoding profile dir: %w", err)
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal encoding profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ProbeEncoders tests each H.264 candidate by encoding one synthetic
// frame. The first working candidate becomes the selected codec.
func ProbeEncoders(ctx context.Context, ffmpegPath string) EncodingProfile {
	hostname, _ := os.Hostname()
	profile := EncodingProfile{
		Hostname: hostname,
		GOOS:     runtime.GOOS,
		ProbedAt: time.Now(),
	}

	for _, codec := range h264Candidates {
		if testEncoder(ctx, ffmpegPath, codec) {
			profile.AvailableCodecs = append(profile.AvailableCodecs, codec)
			if profile.SelectedCodec == "" {
				profile.SelectedCodec = codec
			}
		}
	}
	if profile.SelectedCodec == "" {
		profile.SelectedCodec = "libx264"
	}
	return profile
}

// ResolveEncoderProfile returns a cached profile when available and
// otherwise probes and caches a fresh one.
func ResolveEncoderProfile(ctx context.Context, ffmpegPath string) EncodingProfile {
	if cached := LoadEncodingProfile(); cached != nil {
		return *cached
	}
	profile := ProbeEncoders(ctx, ffmpegPath)
	_ = SaveEncodingProfile(profile)
	return profile
}

func testEncoder(ctx context.Context, ffmpegPath, codec string) bool {
	args := []string{
		"-f", "lavfi",
		"-i", "color=black:s=64x64:d=1:r=1",
		"-c:v", codec,
		"-frames:v", "1",
		"-f", "null",
		"-",
	}
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	return cmd.Run() == nil
}

// ResolvedEncoding is the fully merged encoding configuration used by
// segment encoding, concatenation, and the audio remux.
type ResolvedEncoding struct {
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
	SampleRate   int
	Channels     int
}

// ResolveEncoding merges the probed profile with configured preferences.
// A hardware codec keeps the configured preset; the libx264 fallback gets
// a slower preset to claw back quality lost to software encoding speed.
func ResolveEncoding(profile EncodingProfile, preset string, crf int) ResolvedEncoding {
	enc := ResolvedEncoding{
		VideoCodec:   profile.SelectedCodec,
		Preset:       preset,
		CRF:          crf,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		SampleRate:   48000,
		Channels:     2,
	}
	if enc.VideoCodec == "" {
		enc.VideoCodec = "libx264"
	}
	if !profile.Hardware() {
		switch preset {
		case "", "ultrafast", "veryfast", "fast":
			enc.Preset = "medium"
		default:
			enc.Preset = preset
		}
	}
	if enc.Preset == "" {
		enc.Preset = "fast"
	}
	if enc.CRF <= 0 {
		enc.CRF = 23
	}
	return enc
}
