// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"testing"
	"time"
)

type mockProvider struct {
	mu     sync.Mutex
	active bool
	freq   []byte
	wave   []byte
}

func (m *mockProvider) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *mockProvider) CopyBuffers(freq, wave []byte) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copy(freq, m.freq), copy(wave, m.wave)
}

type mockTransport struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (m *mockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := data.(Frame); ok {
		m.frames = append(m.frames, f)
	}
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockTransport) frameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func TestPublisherPublishesWhileActive(t *testing.T) {
	provider := &mockProvider{
		active: true,
		freq:   []byte{1, 2, 3, 4},
		wave:   []byte{128, 130, 126, 128, 128, 128, 128, 128},
	}
	sink := &mockTransport{}
	pub := NewPublisher(time.Millisecond, provider, 4, 8, sink)

	pub.Start()
	deadline := time.Now().Add(time.Second)
	for sink.frameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pub.Stop()

	if sink.frameCount() == 0 {
		t.Fatal("no frames published")
	}
	sink.mu.Lock()
	frame := sink.frames[0]
	sink.mu.Unlock()
	if len(frame.Frequency) != 4 || frame.Frequency[3] != 4 {
		t.Errorf("frequency payload = %v", frame.Frequency)
	}
	if len(frame.Waveform) != 8 {
		t.Errorf("waveform length = %d, want 8", len(frame.Waveform))
	}
	if frame.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}

func TestPublisherSkipsWhenInactive(t *testing.T) {
	provider := &mockProvider{active: false, freq: []byte{1}, wave: []byte{128}}
	sink := &mockTransport{}
	pub := NewPublisher(time.Millisecond, provider, 1, 1, sink)

	pub.Start()
	time.Sleep(20 * time.Millisecond)
	pub.Stop()

	if n := sink.frameCount(); n != 0 {
		t.Errorf("published %d frames while inactive, want 0", n)
	}
}

func TestPublisherStopIdempotent(t *testing.T) {
	provider := &mockProvider{}
	pub := NewPublisher(time.Millisecond, provider, 1, 1)

	pub.Stop() // before start: no-op
	pub.Start()
	pub.Stop()
	pub.Stop()
}

func TestPublisherCloseClosesTransports(t *testing.T) {
	provider := &mockProvider{}
	sink := &mockTransport{}
	pub := NewPublisher(time.Millisecond, provider, 1, 1, sink)

	pub.Start()
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !sink.closed {
		t.Error("transport not closed")
	}
}

func TestPublisherRestart(t *testing.T) {
	provider := &mockProvider{active: true, freq: []byte{9}, wave: []byte{128}}
	sink := &mockTransport{}
	pub := NewPublisher(time.Millisecond, provider, 1, 1, sink)

	pub.Start()
	pub.Start() // second start is a no-op, not a second goroutine
	time.Sleep(10 * time.Millisecond)
	pub.Stop()

	n := sink.frameCount()
	pub.Start()
	deadline := time.Now().Add(time.Second)
	for sink.frameCount() == n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pub.Stop()

	if sink.frameCount() == n {
		t.Error("publisher did not resume after restart")
	}
}
