package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures rendering, audio and job-store settings for a project.
type Config struct {
	Version    int              `yaml:"version"`
	Video      VideoConfig      `yaml:"video"`
	Encoding   EncodingConfig   `yaml:"encoding"`
	Audio      AudioConfig      `yaml:"audio"`
	Assets     AssetsConfig     `yaml:"assets"`
	Transition TransitionConfig `yaml:"transition"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

// VideoConfig contains frame sizing and rate information.
type VideoConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	AspectRatio string `yaml:"aspect_ratio"`
}

// EncodingConfig describes the preferred video codec parameters. The
// codec itself is probed at startup, not configured.
type EncodingConfig struct {
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`
}

// AudioConfig tunes the narration/music blend.
type AudioConfig struct {
	MusicVolume float64 `yaml:"music_volume"`
	VoiceVolume float64 `yaml:"voice_volume"`
	FadeInSec   float64 `yaml:"fade_in_s"`
	FadeOutSec  float64 `yaml:"fade_out_s"`
}

// AssetsConfig controls remote asset fetching.
type AssetsConfig struct {
	CacheDir   string `yaml:"cache_dir"`
	TimeoutSec int    `yaml:"timeout_s"`
}

// TransitionConfig selects the transition between backbone segments.
// An empty type means hard cuts.
type TransitionConfig struct {
	Type        string  `yaml:"type"`
	DurationSec float64 `yaml:"duration_s"`
}

// JobsConfig locates the render job database.
type JobsConfig struct {
	DBFile string `yaml:"db_file"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Video: VideoConfig{
			Width:       1920,
			Height:      1080,
			FPS:         30,
			AspectRatio: "16:9",
		},
		Encoding: EncodingConfig{
			Preset: "fast",
			CRF:    23,
		},
		Audio: AudioConfig{
			MusicVolume: 0.18,
			VoiceVolume: 1.0,
			FadeInSec:   2.0,
			FadeOutSec:  3.0,
		},
		Assets: AssetsConfig{
			CacheDir:   "assets",
			TimeoutSec: 30,
		},
		Jobs: JobsConfig{
			DBFile: "jobs.db",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise
// returns the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults
// when the YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Video.Width == 0 {
		c.Video.Width = defaults.Video.Width
	}
	if c.Video.Height == 0 {
		c.Video.Height = defaults.Video.Height
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = defaults.Video.FPS
	}
	if c.Video.AspectRatio == "" {
		c.Video.AspectRatio = defaults.Video.AspectRatio
	}
	if c.Encoding.Preset == "" {
		c.Encoding.Preset = defaults.Encoding.Preset
	}
	if c.Encoding.CRF == 0 {
		c.Encoding.CRF = defaults.Encoding.CRF
	}
	if c.Audio.MusicVolume == 0 {
		c.Audio.MusicVolume = defaults.Audio.MusicVolume
	}
	if c.Audio.VoiceVolume == 0 {
		c.Audio.VoiceVolume = defaults.Audio.VoiceVolume
	}
	if c.Audio.FadeInSec == 0 {
		c.Audio.FadeInSec = defaults.Audio.FadeInSec
	}
	if c.Audio.FadeOutSec == 0 {
		c.Audio.FadeOutSec = defaults.Audio.FadeOutSec
	}
	if c.Assets.CacheDir == "" {
		c.Assets.CacheDir = defaults.Assets.CacheDir
	}
	if c.Assets.TimeoutSec == 0 {
		c.Assets.TimeoutSec = defaults.Assets.TimeoutSec
	}
	if c.Jobs.DBFile == "" {
		c.Jobs.DBFile = defaults.Jobs.DBFile
	}
}

// AssetTimeout returns the remote fetch timeout as a duration.
func (c Config) AssetTimeout() time.Duration {
	return time.Duration(c.Assets.TimeoutSec) * time.Second
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
