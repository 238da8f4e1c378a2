// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"time"

	applog "micviz/internal/log"
)

// Publisher periodically snapshots the pipeline's analysis buffers and
// fans the frame out to every configured transport. It runs in its own
// goroutine between Start and Stop.
type Publisher struct {
	provider   AnalysisProvider
	transports []Transport
	interval   time.Duration
	freqLen    int
	waveLen    int

	mu       sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher reading freqLen/waveLen-sized
// buffers from provider. An interval <= 0 defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, provider AnalysisProvider, freqLen, waveLen int, transports ...Transport) *Publisher {
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("transport: invalid publish interval, defaulting to %s", interval)
	}
	return &Publisher{
		provider:   provider,
		transports: transports,
		interval:   interval,
		freqLen:    freqLen,
		waveLen:    waveLen,
	}
}

// Start launches the publish loop. Safe to call when already running;
// subsequent calls are no-ops.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("transport: publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("transport: publisher started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishFrame()
			case <-doneChan:
				return
			}
		}
	}()
}

func (p *Publisher) publishFrame() {
	if !p.provider.Active() {
		return
	}

	// Fresh slices per frame: the WebSocket broadcast goroutine may
	// still be serializing the previous one.
	frame := Frame{
		Timestamp: time.Now().UnixNano(),
		Frequency: make([]byte, p.freqLen),
		Waveform:  make([]byte, p.waveLen),
	}
	nf, nw := p.provider.CopyBuffers(frame.Frequency, frame.Waveform)
	frame.Frequency = frame.Frequency[:nf]
	frame.Waveform = frame.Waveform[:nw]

	for _, t := range p.transports {
		if err := t.Send(frame); err != nil {
			applog.Debugf("transport: send failed: %v", err)
		}
	}
}

// Stop signals the publish loop to exit and waits for it. Idempotent.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("transport: publisher stopped")
}

// Close stops the publisher and closes every transport.
func (p *Publisher) Close() error {
	p.Stop()
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			applog.Warnf("transport: close error: %v", err)
		}
	}
	return nil
}
