// SPDX-License-Identifier: MIT
/*
Package capture implements the microphone capture pipeline: it owns the
hardware stream and the spectral analyzer, and refreshes two in-place
output buffers (frequency magnitudes and raw waveform) on a fixed tick
for a rendering consumer to read.

Lifecycle is guarded by a session generation counter: every asynchronous
completion (the acquisition goroutine, each refresh tick) records the
session it was started under and discards its work if the counter has
moved on. That compare-and-discard check is the only cancellation
mechanism; there is no locking handshake between sessions.
*/
package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"micviz/internal/analysis"
	applog "micviz/internal/log"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultFFTSize         = 2048
	DefaultSmoothing       = 0.65
	DefaultSampleRate      = 44100
	DefaultRefreshInterval = 16 * time.Millisecond // ~60Hz display rate
)

// Config holds pipeline options. Zero-value fields fall back to the
// defaults above, so callers only set what they care about.
type Config struct {
	// FFTSize is the transform window length (power of 2 >= 32). The
	// frequency buffer gets FFTSize/2 bins, the waveform buffer FFTSize
	// samples.
	FFTSize int
	// Smoothing in [0,1) exponentially blends each spectrum read with
	// the previous one. Higher is smoother and slower.
	Smoothing float64
	// SampleRate the analyzer assumes for bin frequencies.
	SampleRate float64
	// Window selects the FFT taper. Zero value is Hann.
	Window analysis.WindowFunc
	// Constraints are passed to the Source on every acquisition.
	Constraints Constraints
	// RefreshInterval paces the buffer refresh loop.
	RefreshInterval time.Duration
	// Analyzer, when non-nil, is used instead of a pipeline-created one.
	// The pipeline never closes a caller-supplied analyzer.
	Analyzer *analysis.Analyzer
}

func (c Config) withDefaults() Config {
	if c.FFTSize == 0 {
		c.FFTSize = DefaultFFTSize
	}
	if c.Smoothing == 0 {
		c.Smoothing = DefaultSmoothing
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	return c
}

// Pipeline owns one microphone stream and one analyzer at a time and
// exposes continuously refreshed analysis buffers. Methods are safe for
// concurrent use. The accessor methods hand out the live buffers; a
// consumer reading them between ticks may observe a partially refreshed
// frame, which is acceptable at visualization granularity.
type Pipeline struct {
	cfg    Config
	source Source

	mu           sync.Mutex
	session      uint64 // bumped on every stop; stale work compares and discards
	analyzer     *analysis.Analyzer
	ownsAnalyzer bool
	stream       Stream
	cancelTick   chan struct{}
	closed       bool
	lastErr      error

	active atomic.Bool

	// Output buffers, overwritten in place by the refresh loop. Their
	// identity changes only when a new session starts.
	freq []byte
	wave []byte
}

// NewPipeline creates a pipeline reading from source. cfg is merged
// over defaults. The output buffers start empty; they are sized when a
// session starts.
func NewPipeline(source Source, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:    cfg,
		source: source,
		freq:   []byte{},
		wave:   []byte{},
	}
	if cfg.Analyzer != nil {
		p.analyzer = cfg.Analyzer
		p.ownsAnalyzer = false
	}
	return p
}

// Start begins a new capture session, first tearing down any session in
// progress. It never fails from the caller's perspective: acquisition
// errors surface through Err() and Active() only. The returned channel
// closes when the attempt has settled either way, which callers may use
// to sequence against the permission prompt.
func (p *Pipeline) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(done)
		return done
	}
	p.lastErr = nil
	p.stopLocked()
	session := p.session

	if p.analyzer == nil {
		an, err := analysis.New(p.cfg.FFTSize, p.cfg.SampleRate, p.cfg.Smoothing, p.cfg.Window)
		if err != nil {
			p.lastErr = err
			p.mu.Unlock()
			close(done)
			return done
		}
		p.analyzer = an
		p.ownsAnalyzer = true
	}

	// Reallocate the output buffers for this session, sized to whatever
	// analyzer is in play (a caller-supplied one wins over cfg.FFTSize).
	p.freq = make([]byte, p.analyzer.BinCount())
	p.wave = make([]byte, p.analyzer.FFTSize())
	for i := range p.wave {
		p.wave[i] = 128 // silence baseline
	}

	src := p.source
	cons := p.cfg.Constraints
	p.mu.Unlock()

	go p.acquire(ctx, session, src, cons, done)
	return done
}

// acquire resolves the asynchronous microphone request for one session.
func (p *Pipeline) acquire(ctx context.Context, session uint64, src Source, cons Constraints, done chan struct{}) {
	defer close(done)

	stream, err := src.Acquire(ctx, cons)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.session != session {
		// A newer session or disposal superseded this attempt. If the
		// host did grant a stream, release it rather than leave the
		// device dangling; the outcome itself is discarded silently.
		if err == nil && stream != nil {
			_ = stream.Close()
		}
		applog.Debugf("capture: discarding stale acquisition for session %d", session)
		return
	}

	if err != nil {
		p.lastErr = err
		p.active.Store(false)
		applog.Warnf("capture: acquisition failed: %v", err)
		return
	}

	if err := stream.Attach(p.analyzer); err != nil {
		_ = stream.Close()
		p.lastErr = err
		p.active.Store(false)
		applog.Warnf("capture: stream attach failed: %v", err)
		return
	}

	p.stream = stream
	p.cancelTick = make(chan struct{})
	p.active.Store(true)
	applog.Infof("capture: session %d live (bins=%d, window=%d)", session, len(p.freq), len(p.wave))

	go p.refreshLoop(session, p.cancelTick)
}

// refreshLoop overwrites both output buffers once per tick until its
// session is superseded. Loop exits are silent: going stale is routine
// cancellation, not an error.
func (p *Pipeline) refreshLoop(session uint64, cancel <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.closed || p.session != session || p.analyzer == nil {
				p.mu.Unlock()
				return
			}
			p.analyzer.ByteFrequencyData(p.freq)
			p.analyzer.ByteTimeDomainData(p.wave)
			p.mu.Unlock()
		}
	}
}

// Stop tears down the current session: it invalidates in-flight work,
// cancels the refresh loop, releases the microphone stream, and closes
// the analyzer if the pipeline owns it. Idempotent and infallible;
// resource-release errors are swallowed as best-effort cleanup.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	p.session++

	if p.cancelTick != nil {
		close(p.cancelTick)
		p.cancelTick = nil
	}
	if p.stream != nil {
		_ = p.stream.Close()
		p.stream = nil
	}
	if p.analyzer != nil && p.ownsAnalyzer {
		_ = p.analyzer.Close()
		p.analyzer = nil
	}
	p.active.Store(false)
}

// Close stops the pipeline and marks it disposed. Any asynchronous
// completion arriving afterwards is dropped without mutating state.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}

// FrequencyData returns the frequency buffer: one byte per bin, low to
// high frequency, linear scale. The slice identity is stable for the
// lifetime of a session and is overwritten in place on every refresh
// tick; callers must treat it as read-only. After Stop it holds the
// last written values.
func (p *Pipeline) FrequencyData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freq
}

// TimeDomainData returns the waveform buffer: FFTSize bytes centered at
// 128. Same sharing contract as FrequencyData.
func (p *Pipeline) TimeDomainData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wave
}

// CopyBuffers copies the current buffer contents into freq and wave
// under the pipeline's lock, for consumers that ship snapshots to other
// goroutines. Returns the number of bytes copied into each.
func (p *Pipeline) CopyBuffers(freq, wave []byte) (nFreq, nWave int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copy(freq, p.freq), copy(wave, p.wave)
}

// Active reports whether a session currently holds the microphone and
// is refreshing the buffers.
func (p *Pipeline) Active() bool {
	return p.active.Load()
}

// Err returns the failure of the most recent Start attempt, or nil. It
// is cleared at the beginning of every Start.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
