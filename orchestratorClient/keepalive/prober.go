// Package keepalive periodically sends a cheap call through the RPC client so
// that a silently dead connection is noticed, and failed over, before a real
// caller depends on it.
package keepalive

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Caller is the part of rpcclient.Client the prober needs
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Status summarises the probes sent so far
type Status struct {
	Method        string    `json:"method"`
	Interval      string    `json:"interval"`
	Probes        uint64    `json:"probes"`
	Failures      uint64    `json:"failures"`
	LastProbeTime time.Time `json:"last_probe_time,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Prober sends method through a Caller every interval
type Prober struct {
	caller   Caller
	method   string
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	status Status
}

// NewProber creates a prober. Each probe is bounded by the interval.
func NewProber(caller Caller, method string, interval time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{
		caller:   caller,
		method:   method,
		interval: interval,
		timeout:  interval,
		logger:   logger.With().Str("component", "keepalive").Logger(),
		stopCh:   make(chan struct{}),
		status: Status{
			Method:   method,
			Interval: interval.String(),
		},
	}
}

// Start runs the probe loop until ctx ends or Stop is called
func (p *Prober) Start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	p.logger.Info().
		Str("method", p.method).
		Dur("interval", p.interval).
		Msg("starting keepalive prober")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("keepalive prober stopping: context cancelled")
			return
		case <-p.stopCh:
			p.logger.Info().Msg("keepalive prober stopping: stop signal received")
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

// Stop stops the probe loop
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Prober) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	_, err := p.caller.Call(probeCtx, p.method)
	latency := time.Since(start)

	p.mu.Lock()
	p.status.Probes++
	p.status.LastProbeTime = start
	if err != nil {
		p.status.Failures++
		p.status.LastError = err.Error()
	} else {
		p.status.LastError = ""
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn().
			Err(err).
			Dur("latency", latency).
			Msg("keepalive probe failed")
		return
	}
	p.logger.Debug().
		Dur("latency", latency).
		Msg("keepalive probe passed")
}

// Status returns a copy of the probe summary
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
