package audio

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// Microphone captures from the default input device via miniaudio.
type Microphone struct {
	format Format
	logger *log.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
	stopped bool
	seq     uint64

	done chan struct{}
}

func NewMicrophone(format Format, logger *log.Logger) (*Microphone, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}
	return &Microphone{
		format: format,
		logger: logger,
		ctx:    malgoCtx,
		done:   make(chan struct{}),
	}, nil
}

func (m *Microphone) Format() Format {
	return m.format
}

// Done never closes for a live microphone; capture runs until Stop.
func (m *Microphone) Done() <-chan struct{} {
	return m.done
}

func (m *Microphone) Start(onBuffer func(Buffer)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return fmt.Errorf("microphone already stopped")
	}
	if m.started {
		return fmt.Errorf("microphone already started")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.format.Channels)
	deviceConfig.SampleRate = uint32(m.format.SampleRate)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(_, inputSamples []byte, frameCount uint32) {
			m.handleCapture(inputSamples, onBuffer)
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.device = device
	m.started = true
	m.logger.Debug(
		"microphone started",
		"rate", m.format.SampleRate,
		"channels", m.format.Channels,
	)

	return nil
}

// handleCapture runs on the audio thread once per captured buffer.
func (m *Microphone) handleCapture(inputSamples []byte, onBuffer func(Buffer)) {
	// The device reuses inputSamples after this callback returns, so
	// the handoff gets its own copy.
	pcm := make([]byte, len(inputSamples))
	copy(pcm, inputSamples)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	seq := m.seq
	m.seq++
	m.mu.Unlock()

	onBuffer(Buffer{Format: m.format, PCM: pcm, Seq: seq})
}

func (m *Microphone) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	device := m.device
	m.device = nil
	malgoCtx := m.ctx
	m.ctx = nil
	m.mu.Unlock()

	// Stopping the device blocks until the audio thread has returned
	// from the data callback, and the callback takes m.mu. Holding
	// the lock across the stop would deadlock teardown.
	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if malgoCtx != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}
}
