package audio

import (
	"math"
	"sync"
	"time"
)

// ToneSource is a software device producing a sine wave in real time. It
// stands in for a microphone on machines without one.
type ToneSource struct {
	freq  float64
	rate  int
	chunk int

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewToneSource(freq float64, rate, chunk int) *ToneSource {
	return &ToneSource{
		freq:  freq,
		rate:  rate,
		chunk: chunk,
		stop:  make(chan struct{}),
	}
}

// Fill writes the tone starting at sample index n into buf.
func (t *ToneSource) Fill(buf []float32, n int) {
	for i := range buf {
		buf[i] = float32(0.5 * math.Sin(2*math.Pi*t.freq*float64(n+i)/float64(t.rate)))
	}
}

func (t *ToneSource) Start(deliver func(int, []float32), fail func(error)) error {
	period := time.Duration(float64(time.Second) * float64(t.chunk) / float64(t.rate))
	buf := make([]float32, t.chunk)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		n := 0
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.Fill(buf, n)
				n += len(buf)
				deliver(0, buf)
			}
		}
	}()
	return nil
}

func (t *ToneSource) Tracks() int     { return 1 }
func (t *ToneSource) SampleRate() int { return t.rate }
func (t *ToneSource) ChunkSize() int  { return t.chunk }

func (t *ToneSource) Close() error {
	t.once.Do(func() { close(t.stop) })
	t.wg.Wait()
	return nil
}
