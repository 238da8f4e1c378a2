// SPDX-License-Identifier: MIT
package capture

import (
	"context"
	"errors"

	"github.com/go-audio/audio"
)

// Sink receives captured sample frames. The analyzer implements this;
// implementations must not hold on to the frame past the call.
type Sink interface {
	WriteFrame(frame *audio.FloatBuffer)
}

// Constraints are the acquisition options requested from the host audio
// subsystem. All default to off so visualizations see the raw signal.
// Sources that cannot honor a constraint capture unprocessed audio.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Source acquires microphone streams. Acquire may block until the host
// grants or denies access; the pipeline calls it from a goroutine and
// discards stale grants itself.
type Source interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is one acquired microphone stream. It holds the hardware
// device from Acquire until Close.
type Stream interface {
	// Attach starts capture and delivers sample frames to sink until
	// the stream is closed.
	Attach(sink Sink) error
	// Close halts delivery and releases the underlying device.
	// Idempotent; never called concurrently with Attach.
	Close() error
}

// Sentinel acquisition errors. Sources map host-specific failures onto
// these so callers can distinguish the recoverable cases; anything else
// is passed through verbatim.
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoDevice         = errors.New("no audio capture device found")
)
