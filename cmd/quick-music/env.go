package main

import (
	"context"
	"fmt"

	"github.com/Bibek004/Quick-Music/internal/app"
	"github.com/Bibek004/Quick-Music/internal/audio"
	"github.com/Bibek004/Quick-Music/internal/config"
	"github.com/Bibek004/Quick-Music/internal/logging"
	"github.com/Bibek004/Quick-Music/internal/recognize"
	"github.com/rs/zerolog"
)

// Env is the wired application for one command.
type Env struct {
	Config *config.Config
	Log    zerolog.Logger
	App    *app.App
}

func loadConfig(g *Globals) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.Config != "" {
		cfg, err = config.LoadFrom(g.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if g.Backend != "" {
		cfg.Audio.Backend = g.Backend
	}
	if g.Device != "" {
		cfg.Audio.DeviceID = g.Device
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.Server != "" {
		cfg.Recognizer.BaseURL = g.Server
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnv(g *Globals) (*Env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log := logging.NewWithLevel(cfg.LogLevel)

	open, err := audio.NewOpener(cfg.Audio)
	if err != nil {
		return nil, err
	}
	holder := audio.NewHolder(audio.HolderConfig{
		Open:   open,
		Logger: log,
	})

	client := recognize.New(recognize.Config{
		BaseURL: cfg.Recognizer.BaseURL,
		Timeout: cfg.Recognizer.Timeout(),
		Logger:  log,
	})

	application := app.New(app.Config{
		Holder:     holder,
		Capturer:   audio.NewPipeline(log),
		Recognizer: client,
		Config:     cfg,
		Logger:     log,
	})

	return &Env{Config: cfg, Log: log, App: application}, nil
}

func (e *Env) Close() {
	if err := e.App.Shutdown(context.Background()); err != nil {
		e.Log.Error().Err(err).Msg("Shutdown error")
	}
}
