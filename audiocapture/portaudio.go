package audiocapture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice records from the default input device.
type PortAudioDevice struct {
	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioDevice returns a device bound to the system default input.
func NewPortAudioDevice() *PortAudioDevice {
	return &PortAudioDevice{}
}

// Open initializes PortAudio and starts a callback stream on the default
// input device at its native rate. Frames are downmixed to mono.
func (d *PortAudioDevice) Open(onSamples func(samples []float32)) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return 0, ErrAlreadyCapturing
	}
	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("initialize portaudio: %w", err)
	}

	info, err := portaudio.DefaultInputDevice()
	if err != nil || info == nil || info.MaxInputChannels < 1 {
		portaudio.Terminate()
		if err == nil {
			err = ErrNoDevice
		}
		return 0, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	params := portaudio.LowLatencyParameters(info, nil)
	channels := min(info.MaxInputChannels, 2)
	params.Input.Channels = channels
	params.Output.Channels = 0

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onSamples(Downmix(in, channels))
	})
	if err != nil {
		portaudio.Terminate()
		return 0, fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return 0, fmt.Errorf("start stream: %w", err)
	}

	d.stream = stream
	slog.Info("input device opened", "device", info.Name, "rate", info.DefaultSampleRate, "channels", channels)
	return int(info.DefaultSampleRate), nil
}

// Close stops the stream and releases PortAudio.
func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}
	stream := d.stream
	d.stream = nil

	stopErr := stream.Stop()
	closeErr := stream.Close()
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("terminate portaudio", "error", err)
	}
	if stopErr != nil {
		return fmt.Errorf("stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close stream: %w", closeErr)
	}
	return nil
}
