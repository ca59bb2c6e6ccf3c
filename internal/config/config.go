package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Bibek004/Quick-Music/internal/wav"
)

const (
	BackendPortAudio = "portaudio"
	BackendMiniaudio = "miniaudio"
	BackendSynthetic = "synthetic"
)

type Config struct {
	LogLevel        string           `json:"log_level"`
	Audio           AudioConfig      `json:"audio"`
	Recognizer      RecognizerConfig `json:"recognizer"`
	CopyToClipboard bool             `json:"copy_to_clipboard"`

	path string
}

type AudioConfig struct {
	Backend         string  `json:"backend"` // "portaudio", "miniaudio" or "synthetic"
	DeviceID        string  `json:"device_id"`
	SampleRate      int     `json:"sample_rate"`
	ChunkSize       int     `json:"chunk_size"` // frames per callback
	DurationSeconds float64 `json:"duration_seconds"`
}

// Duration is the recording window length.
func (a AudioConfig) Duration() time.Duration {
	return time.Duration(a.DurationSeconds * float64(time.Second))
}

type RecognizerConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (r RecognizerConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:         BackendPortAudio,
			DeviceID:        "",
			SampleRate:      44100,
			ChunkSize:       4096,
			DurationSeconds: 5,
		},
		Recognizer: RecognizerConfig{
			BaseURL:        "http://localhost:5001",
			TimeoutSeconds: 30,
		},
		CopyToClipboard: false,
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom overlays the file at path onto the defaults. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the capture pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case BackendPortAudio, BackendMiniaudio, BackendSynthetic:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.Audio.DurationSeconds < 0 {
		return fmt.Errorf("duration_seconds must not be negative, got %g", c.Audio.DurationSeconds)
	}
	if c.Audio.DurationSeconds*float64(c.Audio.SampleRate) > wav.MaxSamples {
		return fmt.Errorf("duration_seconds %g at %d Hz exceeds the WAV size limit", c.Audio.DurationSeconds, c.Audio.SampleRate)
	}
	if c.Recognizer.BaseURL == "" {
		return fmt.Errorf("recognizer base_url is required")
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "quick-music", "config.json")
}
