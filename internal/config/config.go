// Package config loads and validates the TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Filename is the per-folder config file picked up when no explicit path is
// given.
const Filename = "scribe2clips.toml"

//go:embed sample_config.toml
var sampleConfig string

// Sentences holds the transcript normalizer settings.
type Sentences struct {
	Speaker           string  `toml:"speaker"`
	PauseThreshold    float64 `toml:"pause_threshold"`
	Terminators       string  `toml:"terminators"`
	MinSpeakerRecords int     `toml:"min_speaker_records"`
}

// Clips holds the clip pipeline settings.
type Clips struct {
	SampleRate  int      `toml:"sample_rate"`
	Channels    int      `toml:"channels"`
	MinDuration float64  `toml:"min_duration"`
	Ratings     []string `toml:"ratings"`
	Workers     int      `toml:"workers"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config holds the full application configuration.
type Config struct {
	Sentences Sentences `toml:"sentences"`
	Clips     Clips     `toml:"clips"`
	Tools     Tools     `toml:"tools"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sentences: Sentences{
			Speaker:           "",
			PauseThreshold:    1.5,
			Terminators:       ".!?",
			MinSpeakerRecords: 20,
		},
		Clips: Clips{
			SampleRate:  24000,
			Channels:    1,
			MinDuration: 0.75,
			Workers:     1,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// Filename in dir is used when present, and the defaults apply when it is
// not. The returned config is validated.
func Load(path, dir string) (*Config, error) {
	cfg := Default()

	resolved := path
	if resolved == "" {
		candidate := filepath.Join(dir, Filename)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, nil
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		resolved = candidate
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Clips.SampleRate <= 0 {
		return fmt.Errorf("config: sample_rate must be positive, got %d", c.Clips.SampleRate)
	}
	if c.Clips.Channels != 1 && c.Clips.Channels != 2 {
		return fmt.Errorf("config: channels must be 1 or 2, got %d", c.Clips.Channels)
	}
	if c.Clips.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Clips.Workers)
	}
	if c.Sentences.Terminators == "" {
		return errors.New("config: terminators must not be empty")
	}
	if !isFinite(c.Sentences.PauseThreshold) || !isFinite(c.Clips.MinDuration) {
		return errors.New("config: pause_threshold and min_duration must be finite")
	}
	for _, r := range c.Clips.Ratings {
		switch r {
		case "good", "ok", "bad", "unrated":
		default:
			return fmt.Errorf("config: unknown rating %q", r)
		}
	}
	if c.Tools.FFmpeg == "" || c.Tools.FFprobe == "" {
		return errors.New("config: ffmpeg and ffprobe must not be empty")
	}
	return nil
}

// WriteSample writes the embedded sample configuration into dir. An existing
// config file is never overwritten.
func WriteSample(dir string) (string, error) {
	path := filepath.Join(dir, Filename)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists: %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return path, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
