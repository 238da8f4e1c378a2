// SPDX-License-Identifier: MIT
/*
Package analysis implements the spectral analyzer behind the capture
pipeline. The analyzer keeps a sliding window of the most recent samples,
runs a windowed FFT over it on demand, and exposes the results as
byte-scaled frequency magnitudes and time-domain waveform data.

Thread Safety:
- The sample window is fed from the audio callback and read from the
  refresh tick; a mutex guards both.
- All buffers are pre-allocated at construction; the read paths perform
  no allocations.
*/
package analysis

import (
	"fmt"
	"math/cmplx"
	"sync"

	"github.com/go-audio/audio"
	"gonum.org/v1/gonum/dsp/fourier"

	"micviz/pkg/bitint"
)

// MinFFTSize is the smallest accepted transform size.
const MinFFTSize = 32

// Pre-allocated buffers for FFT calculations.
type workspace struct {
	ring     []float64    // sliding window of raw samples (ring buffer)
	input    []float64    // windowed input, ring unrolled oldest-first
	coeffs   []complex128 // FFT complex output, fftSize/2+1 values
	smoothed []float64    // exponentially smoothed magnitudes, one per bin
	window   []float64    // taper coefficients
}

// Analyzer computes frequency-domain and time-domain views of the most
// recent fftSize captured samples. It implements capture.Sink so a
// microphone stream can feed it directly.
type Analyzer struct {
	fftSize      int
	binCount     int // fftSize / 2, Nyquist bin dropped
	sampleRate   float64
	smoothing    float64
	coherentGain float64 // mean of window coefficients, for amplitude correction

	mu        sync.Mutex
	ringPos   int
	fftCalc   *fourier.FFT
	workspace workspace
}

// New creates an Analyzer. fftSize must be a power of 2 >= MinFFTSize,
// smoothing must be in [0,1): 0 disables smoothing, values near 1 make
// the spectrum respond slowly.
func New(fftSize int, sampleRate, smoothing float64, windowFn WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < MinFFTSize {
		return nil, fmt.Errorf("fft size must be a power of 2 >= %d, got %d", MinFFTSize, fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0,1), got %f", smoothing)
	}

	coeffs := windowCoefficients(windowFn, fftSize)
	gain := 0.0
	for _, c := range coeffs {
		gain += c
	}
	gain /= float64(fftSize)

	return &Analyzer{
		fftSize:      fftSize,
		binCount:     fftSize / 2,
		sampleRate:   sampleRate,
		smoothing:    smoothing,
		coherentGain: gain,
		fftCalc:      fourier.NewFFT(fftSize),
		workspace: workspace{
			ring:     make([]float64, fftSize),
			input:    make([]float64, fftSize),
			coeffs:   make([]complex128, fftSize/2+1),
			smoothed: make([]float64, fftSize/2),
			window:   coeffs,
		},
	}, nil
}

// WriteFrame appends a captured sample frame to the sliding window.
// Samples are expected in [-1,1]. Called from the audio callback, so it
// must not allocate or block beyond the analyzer mutex.
func (a *Analyzer) WriteFrame(frame *audio.FloatBuffer) {
	if frame == nil || len(frame.Data) == 0 {
		return
	}
	a.mu.Lock()
	for _, s := range frame.Data {
		a.workspace.ring[a.ringPos] = s
		a.ringPos = (a.ringPos + 1) % a.fftSize
	}
	a.mu.Unlock()
}

// ByteFrequencyData overwrites dst with the current magnitude spectrum,
// one byte per bin, low to high frequency. Magnitudes are linear (not
// log-scaled), blended with the previous read by the smoothing factor,
// and clamped to [0,255]. dst should be BinCount() long; extra bins are
// left untouched and extra dst bytes are zeroed.
func (a *Analyzer) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Unroll the ring oldest-first and apply the taper.
	for i := 0; i < a.fftSize; i++ {
		a.workspace.input[i] = a.workspace.ring[(a.ringPos+i)%a.fftSize] * a.workspace.window[i]
	}
	a.fftCalc.Coefficients(a.workspace.coeffs, a.workspace.input)

	// Amplitude normalization: a full-scale sine maps to ~1.0 after
	// dividing out the transform length and the window's coherent gain.
	norm := 2.0 / (float64(a.fftSize) * a.coherentGain)
	s := a.smoothing
	for i := 0; i < a.binCount; i++ {
		mag := cmplx.Abs(a.workspace.coeffs[i]) * norm
		a.workspace.smoothed[i] = s*a.workspace.smoothed[i] + (1-s)*mag
		if i < len(dst) {
			dst[i] = clampByte(a.workspace.smoothed[i] * 255)
		}
	}
	for i := a.binCount; i < len(dst); i++ {
		dst[i] = 0
	}
}

// ByteTimeDomainData overwrites dst with the current waveform, oldest
// sample first. 128 is silence; 0 and 255 are the negative and positive
// extremes. dst should be FFTSize() long.
func (a *Analyzer) ByteTimeDomainData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := min(len(dst), a.fftSize)
	for i := 0; i < n; i++ {
		sample := a.workspace.ring[(a.ringPos+i)%a.fftSize]
		dst[i] = clampByte((sample + 1) * 128)
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 128
	}
}

// FFTSize returns the configured transform size.
func (a *Analyzer) FFTSize() int {
	return a.fftSize // Immutable after creation, no lock needed.
}

// BinCount returns the number of frequency bins (FFTSize / 2).
func (a *Analyzer) BinCount() int {
	return a.binCount
}

// SampleRate returns the sample rate the analyzer was configured for.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// FrequencyForBin returns the center frequency (Hz) of a bin index, or 0
// for out-of-range indexes.
func (a *Analyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= a.binCount {
		return 0
	}
	return float64(bin) * (a.sampleRate / float64(a.fftSize))
}

// Reset zeroes the sample window and the smoothed spectrum.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.workspace.ring)
	clear(a.workspace.smoothed)
	a.ringPos = 0
}

// Close releases the analyzer. It holds no external resources; the call
// exists so the pipeline can treat owned and caller-supplied analyzers
// uniformly.
func (a *Analyzer) Close() error {
	a.Reset()
	return nil
}

func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
