package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Track is one independently gated input of a Stream.
type Track struct {
	enabled atomic.Bool
}

func (t *Track) Enabled() bool { return t.enabled.Load() }

// Stream is the long-lived handle to an opened input device. Every track
// starts disabled; while disabled, callbacks from the device are dropped
// before they reach any graph.
type Stream struct {
	src    Source
	tracks []*Track

	// mu is held shared by the audio callback and exclusively by gate
	// changes and sink attachment, so a gate or sink change is a barrier
	// for in-flight callbacks.
	mu   sync.RWMutex
	sink *graph
	err  error

	busy        atomic.Bool
	done        chan struct{}
	closeOnce   sync.Once
	releaseOnce sync.Once
	releaseErr  error
}

func newStream(src Source) (*Stream, error) {
	n := src.Tracks()
	if n < 1 {
		return nil, fmt.Errorf("source exposes no tracks")
	}

	s := &Stream{
		src:    src,
		tracks: make([]*Track, n),
		done:   make(chan struct{}),
	}
	for i := range s.tracks {
		s.tracks[i] = &Track{}
	}

	if err := src.Start(s.deliver, s.fail); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stream) SampleRate() int { return s.src.SampleRate() }
func (s *Stream) ChunkSize() int  { return s.src.ChunkSize() }

// Tracks returns the stream's tracks in device order.
func (s *Stream) Tracks() []*Track {
	out := make([]*Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// GateEnabled reports whether any track is enabled.
func (s *Stream) GateEnabled() bool {
	for _, t := range s.tracks {
		if t.Enabled() {
			return true
		}
	}
	return false
}

// Valid reports whether the stream can still be captured from.
func (s *Stream) Valid() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done is closed when the stream is closed or the device fails.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err returns the device fault that ended the stream, if any.
func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// setGate enables or disables every track. When it returns, no callback
// that observed the previous state is still running.
func (s *Stream) setGate(enabled bool) {
	s.mu.Lock()
	for _, t := range s.tracks {
		t.enabled.Store(enabled)
	}
	s.mu.Unlock()
}

// gate is the checked form of setGate. A nil stream is rejected, and so is
// enabling one that is no longer valid.
func gate(s *Stream, enabled bool) error {
	if s == nil {
		return ErrStreamUnavailable
	}
	if enabled && !s.Valid() {
		return ErrStreamUnavailable
	}
	s.setGate(enabled)
	return nil
}

// deliver runs on the device's audio thread.
func (s *Stream) deliver(track int, samples []float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sink == nil || track < 0 || track >= len(s.tracks) {
		return
	}
	if !s.tracks[track].enabled.Load() {
		return
	}
	s.sink.push(samples)
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.shutdown()
}

func (s *Stream) attach(g *graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Valid() {
		return fmt.Errorf("stream is closed")
	}
	if s.sink != nil {
		return fmt.Errorf("stream already has an attached graph")
	}
	s.sink = g
	return nil
}

// detach removes g if it is still attached. After it returns the audio
// thread can no longer reach g.
func (s *Stream) detach(g *graph) {
	s.mu.Lock()
	if s.sink == g {
		s.sink = nil
	}
	s.mu.Unlock()
}

func (s *Stream) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Close releases the device. The stream cannot be reopened.
func (s *Stream) Close() error {
	s.setGate(false)
	s.shutdown()
	s.releaseOnce.Do(func() {
		s.releaseErr = s.src.Close()
	})
	return s.releaseErr
}
