package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// minStallTimeout is the shortest silence treated as a dead device.
const minStallTimeout = time.Second

// stallWatchdog fails a source whose callbacks stop arriving. Backends
// without an error callback of their own use it to report a device that
// died while the stream was held.
type stallWatchdog struct {
	timeout time.Duration
	last    atomic.Int64

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// stallTimeout allows eight missed chunks, but never less than a second.
func stallTimeout(rate, chunk int) time.Duration {
	if rate <= 0 || chunk <= 0 {
		return minStallTimeout
	}
	period := time.Duration(float64(chunk) / float64(rate) * float64(time.Second))
	return max(minStallTimeout, 8*period)
}

func newStallWatchdog(timeout time.Duration) *stallWatchdog {
	return &stallWatchdog{timeout: timeout, stop: make(chan struct{})}
}

// kick records a callback. Safe to call from the audio thread.
func (w *stallWatchdog) kick() {
	w.last.Store(time.Now().UnixNano())
}

// run calls fail once if no kick arrives within the timeout.
func (w *stallWatchdog) run(fail func(error)) {
	w.kick()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.timeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, w.last.Load()))
				if idle > w.timeout {
					fail(fmt.Errorf("%w: no audio for %s", ErrDeviceUnavailable, idle.Round(time.Millisecond)))
					return
				}
			}
		}
	}()
}

func (w *stallWatchdog) close() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}
