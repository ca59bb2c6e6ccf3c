package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bibek004/Quick-Music/internal/audio"
	"github.com/Bibek004/Quick-Music/internal/tray"
	"github.com/Bibek004/Quick-Music/internal/ui"
	"github.com/Bibek004/Quick-Music/internal/wav"
	"github.com/pkg/browser"
)

// window picks the flag duration over the configured one. Zero means use
// the config.
func window(seconds float64, env *Env) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return env.Config.Audio.Duration()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type TrayCmd struct{}

func (c *TrayCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trayUI := tray.New(env.App, env.Log, Version, Commit)
	env.App.SetStatusUpdater(trayUI)

	env.Log.Info().Str("version", Version).Msg("Quick-Music starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		env.Log.Info().Msg("Shutting down...")
		cancel()
		env.Close()
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	return trayUI.Run(ctx)
}

type IdentifyCmd struct {
	Duration float64 `short:"d" help:"Recording duration in seconds (defaults to config)"`
	Open     bool    `help:"Open the matched song in the browser"`
}

func (c *IdentifyCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := env.App.Start(ctx); err != nil {
		return err
	}

	d := window(c.Duration, env)
	ui.Info("Listening for %s... %s", d, ui.Dim("(play the song)"))

	res, err := env.App.IdentifyFor(ctx, d)
	if err != nil {
		return err
	}
	if !res.Matched {
		ui.Warn("No match found")
		return nil
	}

	ui.Match(res.Name, res.URL)
	fmt.Println(res.Name)
	if c.Open && res.URL != "" {
		if err := browser.OpenURL(res.URL); err != nil {
			ui.Warn("Could not open browser: %v", err)
		}
	}
	return nil
}

type RecordCmd struct {
	Output   string  `short:"o" required:"" type:"path" help:"WAV file to write"`
	Duration float64 `short:"d" help:"Recording duration in seconds (defaults to config)"`
}

func (c *RecordCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := env.App.Start(ctx); err != nil {
		return err
	}

	d := window(c.Duration, env)
	ui.Info("Recording for %s...", d)

	clip, err := env.App.RecordFor(ctx, d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Output, clip, 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}

	ui.Success("Saved %s", c.Output)
	ui.KV("Size", fmt.Sprintf("%d bytes", len(clip)))
	return nil
}

type InspectCmd struct {
	File string `arg:"" type:"existingfile" help:"WAV file to inspect"`
}

func (c *InspectCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	clip, err := wav.Decode(data)
	if err != nil {
		return err
	}

	h := clip.Header
	ui.KV("Format", fmt.Sprintf("%d (PCM)", h.AudioFormat))
	ui.KV("Channels", fmt.Sprintf("%d", h.NumChannels))
	ui.KV("Sample rate", fmt.Sprintf("%d Hz", h.SampleRate))
	ui.KV("Byte rate", fmt.Sprintf("%d", h.ByteRate))
	ui.KV("Bits", fmt.Sprintf("%d", h.BitsPerSample))
	ui.KV("Data size", fmt.Sprintf("%d bytes", h.DataSize))
	ui.KV("Samples", fmt.Sprintf("%d", len(clip.Samples)))
	ui.KV("Duration", fmt.Sprintf("%.2fs", clip.Seconds()))

	peak, rms := levels(clip.Float32())
	ui.KV("Peak", fmt.Sprintf("%s %.3f", ui.Meter(peak), peak))
	ui.KV("RMS", fmt.Sprintf("%s %.3f", ui.Meter(rms), rms))
	return nil
}

func levels(samples []float32) (peak, rms float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		peak = math.Max(peak, v)
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(samples)))
}

type SongsCmd struct{}

func (c *SongsCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	songs, err := env.App.Songs(ctx)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		ui.Info("%s", ui.Dim("library is empty"))
		return nil
	}
	for _, s := range songs {
		ui.Song(s.ID, s.Name, s.Fingerprints)
	}
	return nil
}

type AddCmd struct {
	URL  string `arg:"" help:"YouTube video URL"`
	Name string `short:"n" help:"Song name (defaults to the video title)"`
}

func (c *AddCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := signalContext()
	defer cancel()

	ui.Info("Adding %s... %s", ui.Key(c.URL), ui.Dim("(this downloads and fingerprints the audio)"))
	name, err := env.App.AddSong(ctx, c.URL, c.Name)
	if err != nil {
		return err
	}
	ui.Success("Added %s", name)
	return nil
}

type DevicesCmd struct{}

func (c *DevicesCmd) Run(g *Globals) error {
	env, err := newEnv(g)
	if err != nil {
		return err
	}
	defer env.Close()

	devices, err := env.App.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return audio.ErrDeviceUnavailable
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		ui.Info("%s %s %s", marker, ui.Val(d.Name), ui.Dim(d.ID))
	}
	return nil
}
