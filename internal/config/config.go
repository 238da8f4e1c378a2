// SPDX-License-Identifier: MIT
//
// Package config loads runtime configuration: built-in defaults, then an
// optional YAML file, then MICVIZ_* environment overrides. CLI flags are
// applied on top by cmd. The merged result is validated before use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"micviz/internal/analysis"
	"micviz/pkg/bitint"
)

const (
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultFFTSize         = 2048
	DefaultSmoothing       = 0.65
	DefaultFFTWindow       = "Hann"
	DefaultUDPInterval     = 16 * time.Millisecond // ~60Hz
	DefaultWebSocketAddr   = ":8080"

	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// Config is the application configuration, loadable from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture and analysis settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"` // PortAudio device index, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	LowLatency      bool    `yaml:"low_latency"`

	FFTSize   int     `yaml:"fft_size"`   // transform window, power of 2
	Smoothing float64 `yaml:"smoothing"`  // [0,1), spectrum decay
	FFTWindow string  `yaml:"fft_window"` // e.g. "Hann", "Hamming"

	// Acquisition constraints requested from the host. All default to
	// off so the analyzer sees the unprocessed signal.
	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
	AutoGainControl  bool `yaml:"auto_gain_control"`
}

// TransportConfig holds settings for publishing analysis frames.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     -1,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			FFTSize:         DefaultFFTSize,
			Smoothing:       DefaultSmoothing,
			FFTWindow:       DefaultFFTWindow,
		},
		Transport: TransportConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  DefaultUDPInterval,
		},
	}
}

// Load builds the configuration from path. An empty path searches the
// default location ("micviz.yaml") and quietly falls back to defaults
// when no file exists. Environment overrides apply after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("micviz.yaml"); err == nil {
			path = "micviz.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f out of range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FFTSize) || c.Audio.FFTSize < analysis.MinFFTSize {
		return fmt.Errorf("audio.fft_size must be a power of 2 >= %d, got %d",
			analysis.MinFFTSize, c.Audio.FFTSize)
	}
	if c.Audio.Smoothing < 0 || c.Audio.Smoothing >= 1 {
		return fmt.Errorf("audio.smoothing must be in [0,1), got %f", c.Audio.Smoothing)
	}
	if _, err := analysis.ParseWindowFunc(c.Audio.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		return fmt.Errorf("transport.websocket_addr must be set when WebSocket is enabled")
	}
	return nil
}

// Window returns the parsed FFT window function. Call after Validate.
func (c *Config) Window() analysis.WindowFunc {
	fn, _ := analysis.ParseWindowFunc(c.Audio.FFTWindow)
	return fn
}

func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("MICVIZ_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("MICVIZ_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = iVal
		}
	}
	if val, ok := os.LookupEnv("MICVIZ_FFT_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.FFTSize = iVal
		}
	}
	if val, ok := os.LookupEnv("MICVIZ_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("MICVIZ_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("MICVIZ_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}
	if val, ok := os.LookupEnv("MICVIZ_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
	}
}
