package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Bibek004/Quick-Music/internal/wav"
	"github.com/rs/zerolog"
)

// extra chunk slots beyond what the window should produce
const graphSlack = 16

// graph is the transient tap between a Stream and one recording's sample
// buffer. The audio thread is the only producer on chunks and collect is
// the only consumer.
type graph struct {
	stream  *Stream
	chunks  chan []float32
	buffer  [][]float32
	dropped atomic.Int64
	done    chan struct{}
	once    sync.Once
}

func newGraph(s *Stream, capacity int) (*graph, error) {
	g := &graph{
		stream: s,
		chunks: make(chan []float32, capacity),
		done:   make(chan struct{}),
	}
	if err := s.attach(g); err != nil {
		return nil, err
	}
	go g.collect()
	return g, nil
}

// push copies samples off the audio thread's buffer. It never blocks.
func (g *graph) push(samples []float32) {
	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	select {
	case g.chunks <- chunk:
	default:
		g.dropped.Add(1)
	}
}

func (g *graph) collect() {
	defer close(g.done)
	for chunk := range g.chunks {
		g.buffer = append(g.buffer, chunk)
	}
}

// disconnect detaches the graph and waits for the collector to drain. Safe
// to call more than once.
func (g *graph) disconnect() {
	g.once.Do(func() {
		g.stream.detach(g)
		close(g.chunks)
		<-g.done
	})
}

// samples concatenates the collected chunks in arrival order. Only valid
// after disconnect.
func (g *graph) samples() []float32 {
	total := 0
	for _, c := range g.buffer {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range g.buffer {
		out = append(out, c...)
	}
	return out
}

// Pipeline records fixed-duration windows from a Stream and encodes them.
type Pipeline struct {
	log zerolog.Logger

	// after starts the recording window timer.
	after func(time.Duration) <-chan time.Time
}

func NewPipeline(log zerolog.Logger) *Pipeline {
	return &Pipeline{
		log:   log,
		after: time.After,
	}
}

// CaptureAndEncode opens the gate on s for exactly d and returns the audio
// received in that window as a mono 16-bit WAV. Only one capture may run on
// a stream at a time. The gate is closed and the graph torn down on every
// return path.
func (p *Pipeline) CaptureAndEncode(s *Stream, d time.Duration) ([]byte, error) {
	if s == nil {
		return nil, ErrStreamUnavailable
	}
	if d < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrCaptureInProgress
	}
	defer s.busy.Store(false)

	g, err := newGraph(s, windowChunks(d, s.SampleRate(), s.ChunkSize())+graphSlack)
	if err != nil {
		gate(s, false)
		return nil, fmt.Errorf("%w: %v", ErrGraphSetupFailed, err)
	}
	defer g.disconnect()
	defer gate(s, false)

	start := time.Now()
	if err := gate(s, true); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
	}
	p.log.Debug().Dur("duration", d).Int("sample_rate", s.SampleRate()).Msg("Capture window opened")

	select {
	case <-p.after(d):
	case <-s.Done():
		cause := s.Err()
		if cause == nil {
			cause = fmt.Errorf("stream closed")
		}
		p.log.Error().Err(cause).Dur("elapsed", time.Since(start)).Msg("Capture interrupted")
		return nil, fmt.Errorf("%w: %v", ErrStreamInterrupted, cause)
	}

	gate(s, false)
	g.disconnect()

	samples := g.samples()
	out := wav.Encode(samples, s.SampleRate())

	ev := p.log.Info()
	if n := g.dropped.Load(); n > 0 {
		ev = p.log.Warn().Int64("dropped_chunks", n)
	}
	ev.Dur("elapsed", time.Since(start)).
		Int("chunks", len(g.buffer)).
		Int("samples", len(samples)).
		Int("wav_bytes", len(out)).
		Msg("Capture complete")

	return out, nil
}

// windowChunks estimates how many chunks a window of d produces.
func windowChunks(d time.Duration, rate, chunk int) int {
	if chunk <= 0 || rate <= 0 {
		return 0
	}
	frames := int(d.Seconds() * float64(rate))
	return (frames + chunk - 1) / chunk
}
