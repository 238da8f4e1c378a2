// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"

	"micviz/internal/capture"
	applog "micviz/internal/log"
)

// MicSource acquires microphone streams from PortAudio. It implements
// capture.Source. The zero value is not usable; use NewMicSource.
type MicSource struct {
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
}

// NewMicSource creates a source for the given device. Pass
// UseDefaultDevice to follow the system default input.
func NewMicSource(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool) *MicSource {
	return &MicSource{
		deviceID:        deviceID,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		lowLatency:      lowLatency,
	}
}

// Acquire opens the input device. PortAudio has no host-level knobs for
// echo cancellation, noise suppression or gain control, so requested
// constraints are logged and capture stays raw, which is the pipeline's
// default expectation anyway.
func (s *MicSource) Acquire(ctx context.Context, cons capture.Constraints) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cons.EchoCancellation || cons.NoiseSuppression || cons.AutoGainControl {
		applog.Debugf("audio: host API cannot honor %+v, capturing raw", cons)
	}

	device, err := InputDevice(s.deviceID)
	if err != nil {
		return nil, mapHostError(err)
	}

	latency := device.DefaultHighInputLatency
	if s.lowLatency {
		latency = device.DefaultLowInputLatency
	}

	ms := &micStream{
		frame: &gaudio.FloatBuffer{
			Format: &gaudio.Format{NumChannels: 1, SampleRate: int(s.sampleRate)},
			Data:   make([]float64, s.framesPerBuffer),
		},
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: s.framesPerBuffer,
		SampleRate:      s.sampleRate,
	}

	stream, err := paLibOpenStream(params, ms.process)
	if err != nil {
		return nil, mapHostError(err)
	}
	ms.stream = stream

	applog.Debugf("audio: acquired %q (rate=%.0f, frames=%d, latency=%s)",
		device.Name, s.sampleRate, s.framesPerBuffer, latency.Round(time.Microsecond))
	return ms, nil
}

// micStream wraps one open PortAudio stream. The callback converts each
// hardware buffer into the pre-allocated FloatBuffer and hands it to the
// attached sink; no allocation happens per callback.
type micStream struct {
	stream *portaudio.Stream
	frame  *gaudio.FloatBuffer

	mu      sync.Mutex
	sink    capture.Sink
	started bool
	closed  bool
}

func (m *micStream) Attach(sink capture.Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("stream already closed")
	}
	m.sink = sink
	if !m.started {
		if err := m.stream.Start(); err != nil {
			m.sink = nil
			return fmt.Errorf("failed to start input stream: %w", err)
		}
		m.started = true
	}
	return nil
}

func (m *micStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.sink = nil
	// Best-effort release; a failed Stop must not keep Close from
	// freeing the device handle.
	if m.started {
		_ = m.stream.Stop()
	}
	return m.stream.Close()
}

func (m *micStream) process(in []float32) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink == nil {
		return
	}

	n := min(len(in), cap(m.frame.Data))
	m.frame.Data = m.frame.Data[:n]
	for i := 0; i < n; i++ {
		m.frame.Data[i] = float64(in[i])
	}
	sink.WriteFrame(m.frame)
}

// mapHostError folds PortAudio failures onto the capture package's
// error taxonomy. Unrecognized failures pass through with their
// original message.
func mapHostError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %v", capture.ErrPermissionDenied, err)
	case strings.Contains(msg, "no default input device") ||
		strings.Contains(msg, "device unavailable") ||
		strings.Contains(msg, "invalid device"):
		return fmt.Errorf("%w: %v", capture.ErrNoDevice, err)
	default:
		return err
	}
}
