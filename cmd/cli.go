// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"micviz/internal/config"
	"micviz/pkg/build"
)

// Options is the outcome of argument parsing: either a one-off command
// to execute, or a validated configuration to run with.
type Options struct {
	Config   *config.Config
	Command  string // one-off command ("list"), empty to run the visualizer
	Headless bool   // run capture and transports without the TUI
}

// ParseArgs parses the command line. Flags override the config file,
// which overrides environment and defaults.
func ParseArgs() (*Options, error) {
	info := build.GetInfo()
	opts := &Options{}

	var (
		configPath string
		deviceID   int
		sampleRate float64
		frames     int
		lowLatency bool
		fftSize    int
		smoothing  float64
		windowName string
		echoCancel bool
		noiseSupp  bool
		agc        bool
		wsEnabled  bool
		wsAddr     string
		udpEnabled bool
		udpTarget  string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Real-time microphone spectrum visualizer",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("device") {
				cfg.Audio.InputDevice = deviceID
			}
			if f.Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if f.Changed("frames-per-buffer") {
				cfg.Audio.FramesPerBuffer = frames
			}
			if f.Changed("low-latency") {
				cfg.Audio.LowLatency = lowLatency
			}
			if f.Changed("fft-size") {
				cfg.Audio.FFTSize = fftSize
			}
			if f.Changed("smoothing") {
				cfg.Audio.Smoothing = smoothing
			}
			if f.Changed("window") {
				cfg.Audio.FFTWindow = windowName
			}
			if f.Changed("echo-cancellation") {
				cfg.Audio.EchoCancellation = echoCancel
			}
			if f.Changed("noise-suppression") {
				cfg.Audio.NoiseSuppression = noiseSupp
			}
			if f.Changed("auto-gain") {
				cfg.Audio.AutoGainControl = agc
			}
			if f.Changed("websocket") {
				cfg.Transport.WebSocketEnabled = wsEnabled
			}
			if f.Changed("websocket-addr") {
				cfg.Transport.WebSocketAddr = wsAddr
			}
			if f.Changed("udp") {
				cfg.Transport.UDPEnabled = udpEnabled
			}
			if f.Changed("udp-target") {
				cfg.Transport.UDPTargetAddress = udpTarget
			}
			if f.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML config file (default: micviz.yaml if present)")

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", -1,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per capture buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Request low latency capture from the device")

	// Analysis configuration
	rootCmd.PersistentFlags().IntVarP(&fftSize, "fft-size", "f", config.DefaultFFTSize,
		"Transform window length (power of 2); frequency resolution")
	rootCmd.PersistentFlags().Float64Var(&smoothing, "smoothing", config.DefaultSmoothing,
		"Spectrum smoothing in [0,1); higher is smoother")
	rootCmd.PersistentFlags().StringVarP(&windowName, "window", "w", config.DefaultFFTWindow,
		"FFT window function (Hann, Hamming, Blackman, BlackmanNuttall, Nuttall)")

	// Acquisition constraints; all off by default so the analyzer sees
	// the raw signal.
	rootCmd.PersistentFlags().BoolVar(&echoCancel, "echo-cancellation", false,
		"Request echo cancellation from the host")
	rootCmd.PersistentFlags().BoolVar(&noiseSupp, "noise-suppression", false,
		"Request noise suppression from the host")
	rootCmd.PersistentFlags().BoolVar(&agc, "auto-gain", false,
		"Request automatic gain control from the host")

	// Transports
	rootCmd.PersistentFlags().BoolVar(&wsEnabled, "websocket", false,
		"Broadcast analysis frames over WebSocket")
	rootCmd.PersistentFlags().StringVar(&wsAddr, "websocket-addr", config.DefaultWebSocketAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().BoolVar(&udpEnabled, "udp", false,
		"Publish analysis frames over UDP")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "127.0.0.1:9090",
		"UDP target address (host:port)")

	// Runtime
	rootCmd.PersistentFlags().BoolVar(&opts.Headless, "headless", false,
		"Run without the terminal UI (with transports)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}
