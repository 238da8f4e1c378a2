// SPDX-License-Identifier: MIT
//
// Package utils holds test helpers shared across packages: signal
// generators and peak finding for verifying analysis output.
package utils

import "math"

// GenerateSineWave returns size samples of a sine at the given frequency
// and sample rate, scaled to 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics,
// useful for exercising multi-peak spectra.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// FindPeakByte returns the index of the largest value in data between
// startBin and endBin inclusive. Bounds are clamped to the slice.
func FindPeakByte(data []byte, startBin, endBin int) int {
	if len(data) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(data) {
		endBin = len(data) - 1
	}

	peakBin := startBin
	peakValue := data[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if data[bin] > peakValue {
			peakValue = data[bin]
			peakBin = bin
		}
	}
	return peakBin
}
