// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"micviz/internal/transport"
)

/*
Packet layout (BigEndian):

|<-- 4 Bytes -->|<---- 8 Bytes ---->|<-- 2 Bytes -->|<-- N Bytes -->|
+---------------+-------------------+---------------+---------------+
|   Sequence    |     Timestamp     |   Bin Count   |   Frequency   |
|   (uint32)    |  (int64, ns)      |   (uint16)    |   magnitudes  |
+---------------+-------------------+---------------+---------------+

Only the frequency bytes travel over UDP; waveform data is a poor fit
for lossy datagrams and stays on the WebSocket path.
*/

// Transport packs frames into the binary layout above and hands them to
// a Sender. Implements transport.Transport.
type Transport struct {
	sender *Sender

	mu       sync.Mutex
	sequence uint32
	packet   *bytes.Buffer // reused between sends
}

// NewTransport wraps sender.
func NewTransport(sender *Sender) (*Transport, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: sender cannot be nil")
	}
	return &Transport{
		sender: sender,
		packet: new(bytes.Buffer),
	}, nil
}

// Send packs and transmits one frame. Non-Frame payloads are rejected.
func (t *Transport) Send(data any) error {
	frame, ok := data.(transport.Frame)
	if !ok {
		return fmt.Errorf("udp: unsupported payload type %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sequence++
	t.packet.Reset()

	err := binary.Write(t.packet, binary.BigEndian, t.sequence)
	if err == nil {
		err = binary.Write(t.packet, binary.BigEndian, frame.Timestamp)
	}
	if err == nil {
		err = binary.Write(t.packet, binary.BigEndian, uint16(len(frame.Frequency)))
	}
	if err == nil {
		_, err = t.packet.Write(frame.Frequency)
	}
	if err != nil {
		return fmt.Errorf("udp: failed to pack frame: %w", err)
	}

	return t.sender.Send(t.packet.Bytes())
}

// Close closes the underlying sender.
func (t *Transport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*Transport)(nil)
