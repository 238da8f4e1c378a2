// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"micviz/internal/transport"
)

func newLoopbackPair(t *testing.T) (*net.UDPConn, *Sender) {
	t.Helper()
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	return listener, sender
}

func TestTransportPacksFrame(t *testing.T) {
	listener, sender := newLoopbackPair(t)
	tr, err := NewTransport(sender)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}

	frame := transport.Frame{
		Timestamp: 1234567890,
		Frequency: []byte{0, 10, 255, 42},
		Waveform:  []byte{128, 128}, // not carried over UDP
	}
	if err := tr.Send(frame); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}

	const headerLen = 4 + 8 + 2
	if n != headerLen+len(frame.Frequency) {
		t.Fatalf("packet length = %d, want %d", n, headerLen+len(frame.Frequency))
	}
	if seq := binary.BigEndian.Uint32(buf[0:4]); seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}
	if ts := int64(binary.BigEndian.Uint64(buf[4:12])); ts != frame.Timestamp {
		t.Errorf("timestamp = %d, want %d", ts, frame.Timestamp)
	}
	if count := binary.BigEndian.Uint16(buf[12:14]); count != 4 {
		t.Errorf("bin count = %d, want 4", count)
	}
	for i, b := range frame.Frequency {
		if buf[headerLen+i] != b {
			t.Errorf("payload[%d] = %d, want %d", i, buf[headerLen+i], b)
		}
	}
}

func TestTransportSequenceIncrements(t *testing.T) {
	listener, sender := newLoopbackPair(t)
	tr, err := NewTransport(sender)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}

	frame := transport.Frame{Frequency: []byte{1}}
	for i := 0; i < 3; i++ {
		if err := tr.Send(frame); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	buf := make([]byte, 1500)
	var last uint32
	for i := 0; i < 3; i++ {
		listener.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := listener.ReadFromUDP(buf); err != nil {
			t.Fatalf("ReadFromUDP %d: %v", i, err)
		}
		seq := binary.BigEndian.Uint32(buf[0:4])
		if seq != last+1 {
			t.Errorf("sequence = %d, want %d", seq, last+1)
		}
		last = seq
	}
}

func TestTransportRejectsUnknownPayload(t *testing.T) {
	_, sender := newLoopbackPair(t)
	tr, err := NewTransport(sender)
	if err != nil {
		t.Fatalf("NewTransport: %v", err)
	}
	if err := tr.Send("not a frame"); err == nil {
		t.Error("expected error for non-Frame payload")
	}
}

func TestNewTransportNilSender(t *testing.T) {
	if _, err := NewTransport(nil); err == nil {
		t.Error("expected error for nil sender")
	}
}

func TestSenderClosed(t *testing.T) {
	_, sender := newLoopbackPair(t)
	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := sender.Send([]byte{1}); err == nil {
		t.Error("expected error sending on closed sender")
	}
}
