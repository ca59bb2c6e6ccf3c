package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/Bibek004/Quick-Music/internal/config"
	"github.com/gen2brain/malgo"
)

// MiniaudioSource captures through miniaudio. Periods are regrouped into
// fixed-size chunks since miniaudio treats the period size as a hint.
type MiniaudioSource struct {
	ctx    *malgo.AllocatedContext
	config malgo.DeviceConfig
	device *malgo.Device
	chunk  int

	mu     sync.Mutex
	closed bool
	frames []float32
}

func openMiniaudio(cfg config.AudioConfig) Opener {
	return func(ctx context.Context) (Source, error) {
		mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
		}

		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = 1
		deviceConfig.SampleRate = uint32(cfg.SampleRate)
		deviceConfig.PeriodSizeInFrames = uint32(cfg.ChunkSize)

		if cfg.DeviceID != "" {
			info, err := findMiniaudioDevice(mctx, cfg.DeviceID)
			if err != nil {
				freeMiniaudio(mctx)
				return nil, err
			}
			deviceConfig.Capture.DeviceID = info.ID.Pointer()
		}

		return &MiniaudioSource{
			ctx:    mctx,
			config: deviceConfig,
			chunk:  cfg.ChunkSize,
		}, nil
	}
}

func findMiniaudioDevice(mctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for i := range infos {
		if infos[i].Name() == name {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, name)
}

func freeMiniaudio(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}

func (m *MiniaudioSource) Start(deliver func(int, []float32), fail func(error)) error {
	rechunk := newChunker(m.chunk, func(c []float32) { deliver(0, c) })

	onData := func(_, input []byte, frameCount uint32) {
		n := min(int(frameCount), len(input)/4)
		if cap(m.frames) < n {
			m.frames = make([]float32, n)
		}
		frames := m.frames[:n]
		for i := range frames {
			frames[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
		}
		rechunk.write(frames)
	}

	onStop := func() {
		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if !closed {
			fail(fmt.Errorf("capture device stopped"))
		}
	}

	device, err := malgo.InitDevice(m.ctx.Context, m.config, malgo.DeviceCallbacks{
		Data: onData,
		Stop: onStop,
	})
	if err != nil {
		return fmt.Errorf("failed to init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.device = device
	return nil
}

func (m *MiniaudioSource) Tracks() int    { return 1 }
func (m *MiniaudioSource) ChunkSize() int { return m.chunk }

func (m *MiniaudioSource) SampleRate() int {
	if m.device != nil {
		return int(m.device.SampleRate())
	}
	return int(m.config.SampleRate)
}

func (m *MiniaudioSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
	}
	freeMiniaudio(m.ctx)
	return nil
}

func listMiniaudioDevices() ([]AudioDevice, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
	}
	defer freeMiniaudio(mctx)

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(infos))
	for _, info := range infos {
		result = append(result, AudioDevice{
			ID:      info.Name(),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return result, nil
}
