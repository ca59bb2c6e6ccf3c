package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Bibek004/Quick-Music/internal/permissions"
	"github.com/rs/zerolog"
)

type HolderConfig struct {
	Open Opener
	// Authorize asks the OS for microphone access. Defaults to the
	// platform permission check.
	Authorize func(ctx context.Context) error
	Logger    zerolog.Logger
}

// Holder owns the single persistent input stream.
type Holder struct {
	open      Opener
	authorize func(ctx context.Context) error
	log       zerolog.Logger

	mu     sync.Mutex
	stream *Stream
	denied error
	last   error
}

func NewHolder(cfg HolderConfig) *Holder {
	authorize := cfg.Authorize
	if authorize == nil {
		authorize = platformAuthorize
	}
	return &Holder{
		open:      cfg.Open,
		authorize: authorize,
		log:       cfg.Logger,
	}
}

func platformAuthorize(ctx context.Context) error {
	if err := permissions.EnsureMicrophone(ctx); err != nil {
		if errors.Is(err, permissions.ErrDenied) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return err
	}
	return nil
}

// Acquire opens the input device with every track disabled. While a valid
// stream exists it is returned as is and the device is not requested again.
// A permission denial is remembered and returned by every later call.
func (h *Holder) Acquire(ctx context.Context) (*Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.denied != nil {
		return nil, h.denied
	}
	if h.stream != nil && h.stream.Valid() {
		return h.stream, nil
	}

	s, err := h.acquireLocked(ctx)
	if err != nil {
		h.last = err
		if errors.Is(err, ErrPermissionDenied) {
			h.denied = err
		}
		h.log.Error().Err(err).Msg("Microphone acquisition failed")
		return nil, err
	}

	h.stream = s
	h.last = nil
	h.log.Info().
		Int("sample_rate", s.SampleRate()).
		Int("chunk_size", s.ChunkSize()).
		Int("tracks", len(s.tracks)).
		Msg("Microphone stream acquired and held")
	return s, nil
}

func (h *Holder) acquireLocked(ctx context.Context) (*Stream, error) {
	if err := h.authorize(ctx); err != nil {
		return nil, err
	}

	src, err := h.open(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s, err := newStream(src)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}
	return s, nil
}

// Stream returns the held stream. Without a prior successful Acquire it
// returns the sticky permission error, or ErrStreamUnavailable.
func (h *Holder) Stream() (*Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.denied != nil {
		return nil, h.denied
	}
	if h.stream == nil || !h.stream.Valid() {
		if h.last != nil {
			return nil, fmt.Errorf("%w: %v", ErrStreamUnavailable, h.last)
		}
		return nil, ErrStreamUnavailable
	}
	return h.stream, nil
}

// SetGateEnabled enables or disables every track on s. Disabling always
// applies, even to a stream that has faulted or closed, and returns only once
// no further samples can reach an attached graph. Enabling requires a valid
// stream.
func (h *Holder) SetGateEnabled(s *Stream, enabled bool) error {
	if err := gate(s, enabled); err != nil {
		return err
	}
	h.log.Debug().Bool("enabled", enabled).Msg("Microphone gate")
	return nil
}

// Close releases the held stream.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stream == nil {
		return nil
	}
	err := h.stream.Close()
	h.stream = nil
	return err
}
