package rpcpool

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// Pool is the fixed, ordered endpoint list of one client together with the
// dialer used to reach it. Selection is strictly round-robin; the stats kept
// here are for reporting only.
type Pool struct {
	endpoints   []*Endpoint
	urls        []string
	dialer      transport.Dialer
	dialTimeout time.Duration
	observer    DialObserver
	logger      zerolog.Logger
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithPoolDialTimeout bounds every dial made by the pool
func WithPoolDialTimeout(d time.Duration) PoolOption {
	return func(p *Pool) { p.dialTimeout = d }
}

// WithPoolObserver forwards every dial outcome to fn after the pool's own stats are updated
func WithPoolObserver(fn DialObserver) PoolOption {
	return func(p *Pool) { p.observer = fn }
}

// NewPool creates a pool over urls. It fails when urls is empty.
func NewPool(urls []string, dialer transport.Dialer, logger zerolog.Logger, opts ...PoolOption) (*Pool, error) {
	if len(urls) == 0 {
		return nil, errors.NewValidationError("no RPC endpoints configured")
	}
	if dialer == nil {
		return nil, errors.NewValidationError("dialer is required")
	}

	p := &Pool{
		endpoints: make([]*Endpoint, len(urls)),
		urls:      append([]string(nil), urls...),
		dialer:    dialer,
		logger:    logger.With().Str("component", "rpc_pool").Logger(),
	}
	for i, url := range p.urls {
		p.endpoints[i] = NewEndpoint(i, url)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Len returns the number of endpoints
func (p *Pool) Len() int {
	return len(p.endpoints)
}

// URL returns the address of endpoint i
func (p *Pool) URL(i int) string {
	return p.urls[i]
}

// Connect runs one round-robin cycle starting at start
func (p *Pool) Connect(ctx context.Context, start int) (int, transport.Conn, error) {
	return ConnectNextAvailable(ctx, p.urls, start, p.dialer, p.logger,
		WithDialTimeout(p.dialTimeout),
		WithDialObserver(p.record),
	)
}

func (p *Pool) record(index int, url string, err error) {
	if err != nil {
		p.endpoints[index].Stats.RecordFailure(err)
	} else {
		p.endpoints[index].Stats.RecordSuccess()
	}
	if p.observer != nil {
		p.observer(index, url, err)
	}
}

// Snapshot returns the stats of every endpoint in list order
func (p *Pool) Snapshot() []EndpointSnapshot {
	out := make([]EndpointSnapshot, len(p.endpoints))
	for i, ep := range p.endpoints {
		out[i] = ep.Snapshot()
	}
	return out
}
