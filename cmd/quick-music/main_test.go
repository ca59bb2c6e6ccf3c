package main

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Bibek004/Quick-Music/internal/config"
)

func TestLoadConfigAppliesGlobals(t *testing.T) {
	g := &Globals{
		Config:   filepath.Join(t.TempDir(), "config.json"),
		Backend:  config.BackendSynthetic,
		Device:   "USB Microphone",
		LogLevel: "debug",
		Server:   "http://recognizer:5001",
	}

	cfg, err := loadConfig(g)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Audio.Backend != config.BackendSynthetic {
		t.Errorf("expected synthetic backend, got %s", cfg.Audio.Backend)
	}
	if cfg.Audio.DeviceID != "USB Microphone" {
		t.Errorf("expected device override, got %s", cfg.Audio.DeviceID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.Recognizer.BaseURL != "http://recognizer:5001" {
		t.Errorf("expected server override, got %s", cfg.Recognizer.BaseURL)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	g := &Globals{
		Config:  filepath.Join(t.TempDir(), "config.json"),
		Backend: "jack",
	}
	if _, err := loadConfig(g); err == nil {
		t.Error("expected unknown backend to be rejected")
	}
}

func TestWindow(t *testing.T) {
	env := &Env{Config: config.Default()}

	if got := window(0, env); got != 5*time.Second {
		t.Errorf("expected config duration, got %s", got)
	}
	if got := window(1.5, env); got != 1500*time.Millisecond {
		t.Errorf("expected flag duration, got %s", got)
	}
}

func TestLevels(t *testing.T) {
	peak, rms := levels(nil)
	if peak != 0 || rms != 0 {
		t.Errorf("expected silence, got peak=%f rms=%f", peak, rms)
	}

	peak, rms = levels([]float32{0.5, -0.5, 0.5, -0.5})
	if peak != 0.5 {
		t.Errorf("expected peak 0.5, got %f", peak)
	}
	if math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("expected rms 0.5, got %f", rms)
	}
}
