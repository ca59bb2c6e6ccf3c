package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/Bibek004/Quick-Music/internal/config"
	"github.com/gordonklaus/portaudio"
)

// PortAudioSource is a mono callback stream on a PortAudio input device.
type PortAudioSource struct {
	stream *portaudio.Stream
	device *portaudio.DeviceInfo
	rate   int
	chunk  int

	mu      sync.Mutex
	deliver func(int, []float32)
	closed  bool

	// PortAudio's callback API has no error path, so a device that stops
	// delivering is detected by silence.
	watchdog *stallWatchdog
}

func openPortAudio(cfg config.AudioConfig) Opener {
	return func(ctx context.Context) (Source, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
		}

		device, err := findPortAudioDevice(cfg.DeviceID)
		if err != nil {
			portaudio.Terminate()
			return nil, err
		}

		src := &PortAudioSource{
			device: device,
			chunk:  cfg.ChunkSize,
		}

		// Open stream: mono, configured sample rate, float32, fixed frames per buffer
		stream, err := portaudio.OpenStream(portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: 1,
				Latency:  device.DefaultLowInputLatency,
			},
			SampleRate:      float64(cfg.SampleRate),
			FramesPerBuffer: cfg.ChunkSize,
		}, src.callback)
		if err != nil {
			portaudio.Terminate()
			return nil, fmt.Errorf("failed to open audio stream: %w", err)
		}

		src.stream = stream
		src.rate = cfg.SampleRate
		if info := stream.Info(); info != nil && info.SampleRate > 0 {
			src.rate = int(info.SampleRate)
		}
		src.watchdog = newStallWatchdog(stallTimeout(src.rate, src.chunk))
		return src, nil
	}
}

func findPortAudioDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil || device == nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, deviceID)
}

func (p *PortAudioSource) callback(in []float32) {
	p.watchdog.kick()

	p.mu.Lock()
	deliver := p.deliver
	p.mu.Unlock()

	if deliver != nil {
		deliver(0, in)
	}
}

// Start starts the device once. It keeps running, gated or not, until Close.
func (p *PortAudioSource) Start(deliver func(int, []float32), fail func(error)) error {
	p.mu.Lock()
	p.deliver = deliver
	p.mu.Unlock()

	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	p.watchdog.run(fail)
	return nil
}

func (p *PortAudioSource) Tracks() int     { return 1 }
func (p *PortAudioSource) SampleRate() int { return p.rate }
func (p *PortAudioSource) ChunkSize() int  { return p.chunk }

func (p *PortAudioSource) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.deliver = nil
	p.mu.Unlock()

	p.watchdog.close()
	p.stream.Stop()
	err := p.stream.Close()
	portaudio.Terminate()
	return err
}

func listPortAudioDevices() ([]AudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}
