package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bibek004/Quick-Music/internal/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rate  int
	chunk int

	mu       sync.Mutex
	deliver  func(int, []float32)
	fail     func(error)
	startErr error
	closed   bool
	sent     int
}

func newFakeSource(rate, chunk int) *fakeSource {
	return &fakeSource{rate: rate, chunk: chunk}
}

func (f *fakeSource) Start(deliver func(int, []float32), fail func(error)) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.deliver, f.fail = deliver, fail
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) Tracks() int     { return 1 }
func (f *fakeSource) SampleRate() int { return f.rate }
func (f *fakeSource) ChunkSize() int  { return f.chunk }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// emitConst delivers n chunks filled with v, as the audio thread would.
func (f *fakeSource) emitConst(n int, v float32) {
	buf := make([]float32, f.chunk)
	for i := 0; i < n; i++ {
		for j := range buf {
			buf[j] = v
		}
		f.deliver(0, buf)
	}
}

// emitTone delivers enough 440 Hz chunks to cover d.
func (f *fakeSource) emitTone(d time.Duration) {
	tone := NewToneSource(440, f.rate, f.chunk)
	buf := make([]float32, f.chunk)
	for n := windowChunks(d, f.rate, f.chunk); n > 0; n-- {
		tone.Fill(buf, f.sent)
		f.sent += len(buf)
		f.deliver(0, buf)
	}
}

func newTestHolder(t *testing.T, src *fakeSource) (*Holder, *Stream) {
	t.Helper()
	h := NewHolder(HolderConfig{
		Open:      func(context.Context) (Source, error) { return src, nil },
		Authorize: func(context.Context) error { return nil },
		Logger:    zerolog.Nop(),
	})
	s, err := h.Acquire(context.Background())
	require.NoError(t, err)
	return h, s
}

// fired returns an already-expired window after running fn.
func fired(fn func()) func(time.Duration) <-chan time.Time {
	return func(time.Duration) <-chan time.Time {
		fn()
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
}

func TestCaptureAndEncodeTone(t *testing.T) {
	src := newFakeSource(44100, DefaultChunkSize)
	_, s := newTestHolder(t, src)

	p := NewPipeline(zerolog.Nop())
	p.after = func(d time.Duration) <-chan time.Time {
		return fired(func() { src.emitTone(d) })(d)
	}

	out, err := p.CaptureAndEncode(s, 5*time.Second)
	require.NoError(t, err)

	h, err := wav.ParseHeader(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), h.SampleRate)
	assert.Equal(t, uint16(1), h.NumChannels)
	assert.Equal(t, uint16(16), h.BitsPerSample)
	assert.InDelta(t, 5*44100*2, int(h.DataSize), float64(DefaultChunkSize*2))
	assert.False(t, s.GateEnabled())

	clip, err := wav.Decode(out)
	require.NoError(t, err)
	ref := make([]float32, 101)
	NewToneSource(440, 44100, DefaultChunkSize).Fill(ref, 0)
	assert.Equal(t, wav.Quantize(ref[100]), clip.Samples[100])
	assert.NotZero(t, clip.Samples[100])
}

func TestCaptureIgnoresAudioOutsideWindow(t *testing.T) {
	src := newFakeSource(8000, 160)
	_, s := newTestHolder(t, src)

	// Arrives while the gate is still closed.
	src.emitConst(5, 1)

	p := NewPipeline(zerolog.Nop())
	p.after = fired(func() { src.emitConst(2, -1) })

	out, err := p.CaptureAndEncode(s, 40*time.Millisecond)
	require.NoError(t, err)

	clip, err := wav.Decode(out)
	require.NoError(t, err)
	require.Len(t, clip.Samples, 320)
	for _, v := range clip.Samples {
		assert.Equal(t, int16(-32768), v)
	}

	// After return the gate is closed and the graph is gone.
	src.emitConst(3, 1)
	assert.False(t, s.GateEnabled())
	assert.Nil(t, s.sink)
}

func TestCaptureZeroDurationIsHeaderOnly(t *testing.T) {
	src := newFakeSource(44100, DefaultChunkSize)
	_, s := newTestHolder(t, src)

	p := NewPipeline(zerolog.Nop())
	p.after = fired(func() {})

	out, err := p.CaptureAndEncode(s, 0)
	require.NoError(t, err)
	assert.Len(t, out, wav.HeaderSize)
	assert.False(t, s.GateEnabled())
}

func TestCaptureWithoutStream(t *testing.T) {
	p := NewPipeline(zerolog.Nop())
	_, err := p.CaptureAndEncode(nil, 5*time.Second)
	assert.ErrorIs(t, err, ErrStreamUnavailable)
}

func TestCaptureNegativeDuration(t *testing.T) {
	src := newFakeSource(44100, DefaultChunkSize)
	_, s := newTestHolder(t, src)

	_, err := NewPipeline(zerolog.Nop()).CaptureAndEncode(s, -time.Second)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestCaptureInProgressRejected(t *testing.T) {
	src := newFakeSource(8000, 100)
	_, s := newTestHolder(t, src)

	release := make(chan time.Time)
	p := NewPipeline(zerolog.Nop())
	p.after = func(time.Duration) <-chan time.Time { return release }

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := p.CaptureAndEncode(s, time.Second)
		done <- result{out, err}
	}()

	require.Eventually(t, s.GateEnabled, time.Second, time.Millisecond)
	src.emitConst(2, 0.25)

	_, err := p.CaptureAndEncode(s, time.Second)
	require.ErrorIs(t, err, ErrCaptureInProgress)
	assert.True(t, s.GateEnabled(), "rejected call must not touch the gate")

	src.emitConst(1, 0.25)
	release <- time.Now()

	r := <-done
	require.NoError(t, r.err)
	clip, err := wav.Decode(r.out)
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 300)
	assert.False(t, s.GateEnabled())

	// A new capture is accepted once the first one has finished.
	p.after = fired(func() {})
	_, err = p.CaptureAndEncode(s, 0)
	assert.NoError(t, err)
}

func TestCaptureInterruptedByDeviceFault(t *testing.T) {
	src := newFakeSource(8000, 100)
	_, s := newTestHolder(t, src)

	p := NewPipeline(zerolog.Nop())
	p.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	go func() {
		for !s.GateEnabled() {
			time.Sleep(time.Millisecond)
		}
		src.emitConst(1, 0.5)
		src.fail(errors.New("device unplugged"))
	}()

	out, err := p.CaptureAndEncode(s, time.Minute)
	require.ErrorIs(t, err, ErrStreamInterrupted)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.Nil(t, out)
	assert.False(t, s.GateEnabled())
	assert.Nil(t, s.sink)
	assert.False(t, s.Valid())
}

func TestCaptureOnClosedStreamFailsSetup(t *testing.T) {
	src := newFakeSource(8000, 100)
	_, s := newTestHolder(t, src)
	require.NoError(t, s.Close())

	_, err := NewPipeline(zerolog.Nop()).CaptureAndEncode(s, time.Second)
	assert.ErrorIs(t, err, ErrGraphSetupFailed)
	assert.False(t, s.GateEnabled())
	assert.True(t, src.closed)
}

func TestGraphDisconnectIsIdempotent(t *testing.T) {
	src := newFakeSource(8000, 100)
	_, s := newTestHolder(t, src)

	g, err := newGraph(s, 4)
	require.NoError(t, err)
	_, err = newGraph(s, 4)
	assert.Error(t, err, "only one graph may be attached")

	g.disconnect()
	g.disconnect()
	assert.Nil(t, s.sink)
}

func TestGraphDropsWhenFull(t *testing.T) {
	src := newFakeSource(8000, 10)
	_, s := newTestHolder(t, src)

	g := &graph{stream: s, chunks: make(chan []float32, 1), done: make(chan struct{})}
	require.NoError(t, s.attach(g))
	s.setGate(true)

	// No collector running, so the second chunk has nowhere to go.
	src.emitConst(2, 0.1)
	assert.Equal(t, int64(1), g.dropped.Load())

	go g.collect()
	s.setGate(false)
	g.disconnect()
	assert.Len(t, g.samples(), 10)
}

func TestWindowChunks(t *testing.T) {
	assert.Equal(t, 54, windowChunks(5*time.Second, 44100, 4096))
	assert.Equal(t, 0, windowChunks(0, 44100, 4096))
	assert.Equal(t, 1, windowChunks(time.Millisecond, 44100, 4096))
	assert.Equal(t, 0, windowChunks(time.Second, 44100, 0))
}

func TestToneSourceRealTimeCapture(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time capture")
	}
	tone := NewToneSource(440, 8000, 256)
	h := NewHolder(HolderConfig{
		Open:      func(context.Context) (Source, error) { return tone, nil },
		Authorize: func(context.Context) error { return nil },
		Logger:    zerolog.Nop(),
	})
	s, err := h.Acquire(context.Background())
	require.NoError(t, err)
	defer h.Close()

	out, err := NewPipeline(zerolog.Nop()).CaptureAndEncode(s, 300*time.Millisecond)
	require.NoError(t, err)

	clip, err := wav.Decode(out)
	require.NoError(t, err)
	assert.InDelta(t, 2400, len(clip.Samples), 4*256)
	assert.Zero(t, len(clip.Samples)%256)
}
