// Package audio holds the microphone stream for the lifetime of the process
// and turns timed recording windows into WAV payloads.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bibek004/Quick-Music/internal/config"
)

const (
	DefaultSampleRate = 44100
	DefaultChunkSize  = 4096
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("no audio input device available")
	ErrStreamUnavailable = errors.New("microphone stream not acquired")
	ErrGraphSetupFailed  = errors.New("audio graph setup failed")
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrStreamInterrupted = errors.New("audio stream interrupted during capture")
	ErrInvalidDuration   = errors.New("capture duration must not be negative")
)

// Source is a live input device. Once started it keeps calling deliver from
// its own audio thread until closed, one fixed-size chunk of mono float32
// samples per call. fail reports an unrecoverable device error.
type Source interface {
	Start(deliver func(track int, samples []float32), fail func(error)) error
	Tracks() int
	SampleRate() int
	ChunkSize() int
	Close() error
}

// Opener acquires a Source. It is called at most once per valid stream.
type Opener func(ctx context.Context) (Source, error)

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

// NewOpener returns the Opener for the configured backend.
func NewOpener(cfg config.AudioConfig) (Opener, error) {
	switch cfg.Backend {
	case config.BackendPortAudio, "":
		return openPortAudio(cfg), nil
	case config.BackendMiniaudio:
		return openMiniaudio(cfg), nil
	case config.BackendSynthetic:
		return func(ctx context.Context) (Source, error) {
			return NewToneSource(440, cfg.SampleRate, cfg.ChunkSize), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

// ListDevices enumerates input devices for the configured backend.
func ListDevices(cfg config.AudioConfig) ([]AudioDevice, error) {
	switch cfg.Backend {
	case config.BackendPortAudio, "":
		return listPortAudioDevices()
	case config.BackendMiniaudio:
		return listMiniaudioDevices()
	case config.BackendSynthetic:
		return []AudioDevice{{ID: "tone", Name: "440 Hz test tone", Default: true}}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

// chunker regroups variable-sized callback buffers into fixed-size chunks.
// emit must not retain the slice it is given.
type chunker struct {
	size    int
	pending []float32
	emit    func([]float32)
}

func newChunker(size int, emit func([]float32)) *chunker {
	return &chunker{size: size, pending: make([]float32, 0, size), emit: emit}
}

func (c *chunker) write(samples []float32) {
	for len(samples) > 0 {
		n := min(c.size-len(c.pending), len(samples))
		c.pending = append(c.pending, samples[:n]...)
		samples = samples[n:]
		if len(c.pending) == c.size {
			c.emit(c.pending)
			c.pending = c.pending[:0]
		}
	}
}
