// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"micviz/cmd"
	"micviz/internal/audio"
	"micviz/internal/capture"
	"micviz/internal/config"
	applog "micviz/internal/log"
	"micviz/internal/transport"
	"micviz/internal/transport/udp"
	"micviz/internal/tui"
)

// main wires the pieces together:
//
//  1. Startup: parse arguments, initialize PortAudio, handle one-off
//     commands (device listing).
//  2. Run: start the capture pipeline, the transports, and either the
//     terminal visualizer or a signal-driven headless loop.
//  3. Shutdown: stop publishers, close the pipeline, release PortAudio.
func main() {
	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}

	// One-off commands don't need the pipeline running.
	if opts.Command == "list" {
		if err := runList(); err != nil {
			applog.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}

	// --help / --version exit inside cobra and leave no config behind.
	if opts.Config == nil {
		return
	}
	cfg := opts.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if err := audio.Initialize(); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
	defer audio.Terminate()

	if err := run(cfg, opts.Headless); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, headless bool) error {
	source := audio.NewMicSource(cfg.Audio.InputDevice, cfg.Audio.SampleRate,
		cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency)

	pipeline := capture.NewPipeline(source, capture.Config{
		FFTSize:    cfg.Audio.FFTSize,
		Smoothing:  cfg.Audio.Smoothing,
		SampleRate: cfg.Audio.SampleRate,
		Window:     cfg.Window(),
		Constraints: capture.Constraints{
			EchoCancellation: cfg.Audio.EchoCancellation,
			NoiseSuppression: cfg.Audio.NoiseSuppression,
			AutoGainControl:  cfg.Audio.AutoGainControl,
		},
	})
	defer pipeline.Close()

	// Acquisition resolves asynchronously; the UI shows "waiting" until
	// it does and surfaces Err() if it fails.
	pipeline.Start(context.Background())

	publisher, err := buildPublisher(cfg, pipeline)
	if err != nil {
		return err
	}
	if publisher != nil {
		publisher.Start()
		defer publisher.Close()
	}

	if headless {
		applog.Infof("running headless, ctrl+c to exit")
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		<-done
		return nil
	}

	program := tea.NewProgram(tui.NewModel(pipeline), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// buildPublisher assembles the configured transports, or returns nil
// when none are enabled.
func buildPublisher(cfg *config.Config, pipeline *capture.Pipeline) (*transport.Publisher, error) {
	var transports []transport.Transport

	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		udpTransport, err := udp.NewTransport(sender)
		if err != nil {
			return nil, err
		}
		transports = append(transports, udpTransport)
	}

	if len(transports) == 0 {
		return nil, nil
	}
	return transport.NewPublisher(cfg.Transport.UDPSendInterval, pipeline,
		cfg.Audio.FFTSize/2, cfg.Audio.FFTSize, transports...), nil
}

func runList() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices()
}
