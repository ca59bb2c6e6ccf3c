package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bibek004/Quick-Music/internal/audio"
	"github.com/Bibek004/Quick-Music/internal/config"
	"github.com/Bibek004/Quick-Music/internal/recognize"
	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// ErrListening is returned by settings that cannot change mid-capture.
var ErrListening = errors.New("cannot change device while listening")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetListening()
	SetIdentifying()
	SetError()
}

// Capturer records one window from a held stream.
type Capturer interface {
	CaptureAndEncode(s *audio.Stream, d time.Duration) ([]byte, error)
}

// Recognizer is the remote fingerprint service.
type Recognizer interface {
	Recognize(ctx context.Context, wavData []byte) (*recognize.Result, error)
	Songs(ctx context.Context) ([]recognize.Song, error)
	AddYouTube(ctx context.Context, url, name string) (string, error)
}

type Config struct {
	Holder        *audio.Holder
	Capturer      Capturer
	Recognizer    Recognizer
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil

	// Devices lists input devices. Defaults to the configured backend.
	Devices func() ([]audio.AudioDevice, error)
	// Clipboard receives matched song names. Defaults to the system clipboard.
	Clipboard func(text string) error
}

type App struct {
	holder    *audio.Holder
	capture   Capturer
	rec       Recognizer
	log       zerolog.Logger
	status    StatusUpdater
	devices   func() ([]audio.AudioDevice, error)
	clipboard func(string) error

	mu        sync.Mutex
	cfg       *config.Config
	lastMatch *recognize.Result

	// active counts captures in flight. It changes only under mu so that
	// SetDevice's check and write are atomic with respect to a new capture.
	active atomic.Int32
}

func New(cfg Config) *App {
	a := &App{
		holder:    cfg.Holder,
		capture:   cfg.Capturer,
		rec:       cfg.Recognizer,
		cfg:       cfg.Config,
		log:       cfg.Logger,
		status:    cfg.StatusUpdater,
		devices:   cfg.Devices,
		clipboard: cfg.Clipboard,
	}
	if a.devices == nil {
		a.devices = func() ([]audio.AudioDevice, error) {
			return audio.ListDevices(a.config().Audio)
		}
	}
	if a.clipboard == nil {
		a.clipboard = clipboard.WriteAll
	}
	return a
}

// SetStatusUpdater attaches the UI after construction.
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

func (a *App) config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *App) setStatus(f func(StatusUpdater)) {
	a.mu.Lock()
	s := a.status
	a.mu.Unlock()
	if s != nil {
		f(s)
	}
}

func (a *App) begin() {
	a.mu.Lock()
	a.active.Add(1)
	a.mu.Unlock()
}

func (a *App) end() {
	a.mu.Lock()
	a.active.Add(-1)
	a.mu.Unlock()
}

// Start acquires the microphone once. A failure is kept by the holder and
// returned again by every Identify.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.holder.Acquire(ctx); err != nil {
		a.setStatus(StatusUpdater.SetError)
		return err
	}
	a.log.Info().Msg("Microphone is ready")
	a.setStatus(StatusUpdater.SetIdle)
	return nil
}

// Record captures the configured window and returns the WAV bytes.
func (a *App) Record(ctx context.Context) ([]byte, error) {
	return a.RecordFor(ctx, a.config().Audio.Duration())
}

// RecordFor captures a window of d.
func (a *App) RecordFor(ctx context.Context, d time.Duration) ([]byte, error) {
	s, err := a.holder.Stream()
	if err != nil {
		return nil, err
	}

	a.begin()
	defer a.end()

	a.log.Info().Dur("duration", d).Msg("Listening")
	return a.capture.CaptureAndEncode(s, d)
}

// Identify records one window and sends it to the recognition service.
func (a *App) Identify(ctx context.Context) (*recognize.Result, error) {
	return a.IdentifyFor(ctx, a.config().Audio.Duration())
}

func (a *App) IdentifyFor(ctx context.Context, d time.Duration) (*recognize.Result, error) {
	s, err := a.holder.Stream()
	if err != nil {
		a.setStatus(StatusUpdater.SetError)
		return nil, err
	}

	a.begin()
	defer a.end()

	a.setStatus(StatusUpdater.SetListening)
	a.log.Info().Dur("duration", d).Msg("Listening")

	clip, err := a.capture.CaptureAndEncode(s, d)
	if err != nil {
		// The in-flight capture owns the status.
		if errors.Is(err, audio.ErrCaptureInProgress) {
			return nil, err
		}
		a.log.Error().Err(err).Msg("Capture failed")
		a.setStatus(StatusUpdater.SetError)
		return nil, err
	}

	a.setStatus(StatusUpdater.SetIdentifying)
	res, err := a.rec.Recognize(ctx, clip)
	if err != nil {
		a.log.Error().Err(err).Msg("Recognition failed")
		a.setStatus(StatusUpdater.SetError)
		return nil, fmt.Errorf("identify: %w", err)
	}

	if res.Matched {
		a.mu.Lock()
		a.lastMatch = res
		copyName := a.cfg.CopyToClipboard
		a.mu.Unlock()

		if copyName {
			if err := a.clipboard(res.Name); err != nil {
				a.log.Warn().Err(err).Msg("Failed to copy match to clipboard")
			}
		}
	}

	a.setStatus(StatusUpdater.SetIdle)
	return res, nil
}

// LastMatch returns the most recent successful match, or nil.
func (a *App) LastMatch() *recognize.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastMatch
}

func (a *App) Songs(ctx context.Context) ([]recognize.Song, error) {
	return a.rec.Songs(ctx)
}

func (a *App) AddSong(ctx context.Context, url, name string) (string, error) {
	return a.rec.AddYouTube(ctx, url, name)
}

// IsListening reports whether a capture is in flight.
func (a *App) IsListening() bool {
	return a.active.Load() > 0
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.devices()
}

// Tray actions

// SetDevice persists the input device. It takes effect on next start since
// the held stream is never reopened.
func (a *App) SetDevice(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active.Load() > 0 {
		return ErrListening
	}
	a.cfg.Audio.DeviceID = id
	return a.cfg.Save()
}

// DeviceID is the configured input device, empty for the system default.
func (a *App) DeviceID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Audio.DeviceID
}

func (a *App) CopyToClipboard() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.CopyToClipboard
}

func (a *App) SetCopyToClipboard(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.CopyToClipboard = enabled
	return a.cfg.Save()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.holder.Close()
}
