// SPDX-License-Identifier: MIT
//
// Package transport publishes analysis frames to external consumers
// (browser visualizers, lighting rigs). Transports carry derived
// analysis data only, never raw audio.
package transport

// Transport is a generic sink for outgoing data. Implementations must
// be safe for concurrent use and must not block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// AnalysisProvider is the slice of the capture pipeline the publishers
// need: a snapshot of the two analysis buffers and the activity flag.
// CopyBuffers copies into the destination slices under the pipeline's
// lock so publishers can ship frames to other goroutines safely.
type AnalysisProvider interface {
	Active() bool
	CopyBuffers(freq, wave []byte) (nFreq, nWave int)
}

// Frame is one published analysis snapshot. Byte slices serialize to
// base64 in JSON, which keeps WebSocket frames compact.
type Frame struct {
	Timestamp int64  `json:"ts"`
	Frequency []byte `json:"freq"`
	Waveform  []byte `json:"wave"`
}
