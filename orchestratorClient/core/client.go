package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/api"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/config"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/keepalive"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/metrics"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/orchestrator"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

type OrchestratorClient struct {
	ctx context.Context
	log zerolog.Logger
	cfg *config.Config

	worker   *rpcclient.Worker
	rpc      *rpcclient.Client
	chain    *orchestrator.Client
	registry *prometheus.Registry

	queryServer *api.Server
	prober      *keepalive.Prober
}

type options struct {
	dialer   transport.Dialer
	registry *prometheus.Registry
}

// Option configures an OrchestratorClient
type Option func(*options)

// WithDialer overrides the dialer built from the config
func WithDialer(d transport.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithRegistry registers the metrics on reg instead of a fresh registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// NewOrchestratorClient connects to the first reachable endpoint of cfg and
// wires the worker, query server and keepalive prober around it.
func NewOrchestratorClient(ctx context.Context, log zerolog.Logger, cfg *config.Config, opts ...Option) (*OrchestratorClient, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if o.dialer == nil {
		d, err := NewDialer(cfg, log)
		if err != nil {
			return nil, err
		}
		o.dialer = d
	}

	m := metrics.New(o.registry)
	worker, rpc, err := rpcclient.New(ctx, cfg.RPCURLs, o.dialer,
		rpcclient.WithLogger(log),
		rpcclient.WithMetrics(m),
		rpcclient.WithQueueSize(cfg.RequestQueueSize),
		rpcclient.WithDialTimeout(cfg.DialTimeout()),
		rpcclient.WithReconnectPolicy(cfg.ReconnectCycles, cfg.ReconnectBackoff()),
	)
	if err != nil {
		return nil, err
	}

	oc := &OrchestratorClient{
		ctx:      ctx,
		log:      log,
		cfg:      cfg,
		worker:   worker,
		rpc:      rpc,
		chain:    orchestrator.NewClient(rpc),
		registry: o.registry,
	}

	if cfg.KeepaliveInterval() > 0 {
		oc.prober = keepalive.NewProber(rpc, cfg.KeepaliveMethod, cfg.KeepaliveInterval(), log)
	}
	if cfg.QueryServerPort > 0 {
		oc.queryServer = api.NewServer(oc, metrics.Handler(o.registry), log, cfg.QueryServerPort)
	}
	return oc, nil
}

// Start runs the client until its context ends or the worker stops on its own.
func (oc *OrchestratorClient) Start() error {
	oc.log.Info().Msg("🚀 Starting orchestrator client...")

	runErr := make(chan error, 1)
	go func() { runErr <- oc.worker.Run(oc.ctx) }()

	var wg sync.WaitGroup
	if oc.prober != nil {
		wg.Add(1)
		go oc.prober.Start(oc.ctx, &wg)
	}

	if oc.queryServer != nil {
		if err := oc.queryServer.Start(); err != nil {
			oc.rpc.Close()
			<-runErr
			if oc.prober != nil {
				oc.prober.Stop()
			}
			wg.Wait()
			return err
		}
	}

	oc.log.Info().Msg("✅ Initialization complete. Entering main loop...")

	var err error
	select {
	case <-oc.ctx.Done():
		oc.rpc.Close()
		err = <-runErr
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case err = <-runErr:
		oc.log.Error().Err(err).Msg("rpc worker stopped")
	}

	oc.log.Info().Msg("🛑 Shutting down orchestrator client...")
	if oc.prober != nil {
		oc.prober.Stop()
	}
	wg.Wait()
	if oc.queryServer != nil {
		if stopErr := oc.queryServer.Stop(); stopErr != nil {
			oc.log.Warn().Err(stopErr).Msg("failed to stop query server")
		}
	}
	return err
}

// Chain returns the typed orchestrator chain queries
func (oc *OrchestratorClient) Chain() *orchestrator.Client {
	return oc.chain
}

// RPC returns the raw call client
func (oc *OrchestratorClient) RPC() *rpcclient.Client {
	return oc.rpc
}

// Status implements api.OrchestratorClientInterface
func (oc *OrchestratorClient) Status() rpcclient.Status {
	return oc.rpc.Status()
}

// Call implements api.OrchestratorClientInterface
func (oc *OrchestratorClient) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return oc.rpc.Call(ctx, method, params...)
}

// KeepaliveStatus implements api.OrchestratorClientInterface
func (oc *OrchestratorClient) KeepaliveStatus() *keepalive.Status {
	if oc.prober == nil {
		return nil
	}
	st := oc.prober.Status()
	return &st
}
