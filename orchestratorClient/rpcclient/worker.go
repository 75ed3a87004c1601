// Package rpcclient keeps one logical RPC connection to a set of
// interchangeable endpoints. A single Worker goroutine owns the connection and
// every in-flight call; when the connection dies it fails over to the next
// endpoint in round-robin order and sends the unanswered calls again.
package rpcclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/metrics"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcpool"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

const (
	// DefaultQueueSize bounds the request queue
	DefaultQueueSize = 100

	// DefaultReconnectCycles is the number of full endpoint cycles tried before
	// the worker gives up. One cycle makes a single exhausted cycle fatal.
	DefaultReconnectCycles = 1
)

type options struct {
	queueSize        int
	dialTimeout      time.Duration
	reconnectCycles  int
	reconnectBackoff time.Duration
	metrics          *metrics.Metrics
	logger           zerolog.Logger
}

// Option configures a Worker
type Option func(*options)

// WithQueueSize sets the request queue bound
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithDialTimeout bounds each endpoint dial
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithReconnectPolicy lets a reconnection run up to cycles full endpoint
// cycles, waiting backoff (doubled each time) between them.
func WithReconnectPolicy(cycles int, backoff time.Duration) Option {
	return func(o *options) {
		o.reconnectCycles = cycles
		o.reconnectBackoff = backoff
	}
}

// WithMetrics records worker activity on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the parent logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// dispatchResult is what a dispatched call reports back to the worker: nil
// retry means the call was resolved, otherwise the connection died and the
// untouched call is handed back.
type dispatchResult struct {
	retry *PendingCall
	err   error
}

// Worker owns the active connection and all in-flight calls. Run must be
// called exactly once.
type Worker struct {
	pool        *rpcpool.Pool
	retryConfig *errors.RetryConfig
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	queue       chan *PendingCall
	completions chan dispatchResult
	closing     chan struct{}
	stopping    chan struct{}
	done        chan struct{}
	started     atomic.Bool

	// owned by the Run goroutine
	conn     transport.Conn
	active   int
	inFlight int
	callCtx  context.Context

	status statusTracker
}

// New connects to the first reachable endpoint in urls, scanning from index 0,
// and returns the worker together with the client used to submit calls. It
// fails when urls is empty or no endpoint could be reached.
func New(ctx context.Context, urls []string, dialer transport.Dialer, opts ...Option) (*Worker, *Client, error) {
	o := options{
		queueSize:       DefaultQueueSize,
		reconnectCycles: DefaultReconnectCycles,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueSize <= 0 {
		o.queueSize = DefaultQueueSize
	}
	if o.reconnectCycles <= 0 {
		o.reconnectCycles = DefaultReconnectCycles
	}

	logger := o.logger.With().Str("component", "rpc_worker").Logger()

	pool, err := rpcpool.NewPool(urls, dialer, o.logger,
		rpcpool.WithPoolDialTimeout(o.dialTimeout),
		rpcpool.WithPoolObserver(o.metrics.Dialed),
	)
	if err != nil {
		return nil, nil, err
	}

	index, conn, err := pool.Connect(ctx, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "initial connection failed")
	}

	w := &Worker{
		pool: pool,
		retryConfig: &errors.RetryConfig{
			MaxAttempts:     o.reconnectCycles,
			InitialDelay:    o.reconnectBackoff,
			MaxDelay:        30 * time.Second,
			RetryableErrors: []errors.ErrorCode{errors.ErrCodeExhausted},
		},
		metrics:     o.metrics,
		logger:      logger,
		queue:       make(chan *PendingCall, o.queueSize),
		completions: make(chan dispatchResult, o.queueSize),
		closing:     make(chan struct{}),
		stopping:    make(chan struct{}),
		done:        make(chan struct{}),
		conn:        conn,
		active:      index,
		callCtx:     context.Background(),
	}
	w.status.connected(index, pool.URL(index))
	w.metrics.SetActiveEndpoint(index)

	client := &Client{
		queue:     w.queue,
		closing:   w.closing,
		closeOnce: &sync.Once{},
		stopping:  w.stopping,
		done:      w.done,
		worker:    w,
	}
	return w, client, nil
}

// Run drives the worker until the client is closed, ctx ends, or every
// endpoint failed during a reconnection. It returns nil after Client.Close,
// ctx.Err() on cancellation, and an error wrapping
// rpcpool.ErrAllEndpointsFailed on exhaustion. Every call not resolved by then
// observes cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("rpc worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.closing:
			cancel()
		case <-runCtx.Done():
		}
	}()

	// transport calls end when their connection is closed, never because a
	// caller or the worker context went away
	w.callCtx = context.WithoutCancel(ctx)

	err := w.loop(runCtx)
	switch {
	case err == nil:
	case isClosed(w.closing):
		w.logger.Info().Msg("rpc client closed, stopping worker")
		err = nil
	case ctx.Err() != nil:
		w.logger.Info().Err(ctx.Err()).Msg("context done, stopping worker")
		err = ctx.Err()
	default:
		w.logger.Error().Err(err).Msg("unable to reconnect, stopping worker")
	}

	w.shutdown()
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	disconnected := false
	var trigger *PendingCall

	for {
		if disconnected {
			if err := w.handleReconnect(ctx, trigger); err != nil {
				return err
			}
			disconnected, trigger = false, nil
		}

		// a nil channel never fires, so completions are only polled while
		// something is in flight
		var completions <-chan dispatchResult
		if w.inFlight > 0 {
			completions = w.completions
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case call := <-w.queue:
			w.dispatch(call)
		case res := <-completions:
			w.inFlight--
			w.status.setInFlight(w.inFlight)
			if res.retry != nil {
				w.logger.Warn().
					Err(res.err).
					Int("index", w.active).
					Str("method", res.retry.Method).
					Msg("connection lost")
				disconnected, trigger = true, res.retry
			}
		}
	}
}

// shutdown resolves every call the worker still owns and closes done.
func (w *Worker) shutdown() {
	close(w.stopping)
	w.status.stopped()
	w.metrics.SetActiveEndpoint(-1)

	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}

	for w.inFlight > 0 {
		res := <-w.completions
		w.inFlight--
		if res.retry != nil {
			w.cancelCall(res.retry)
		}
	}
	w.status.setInFlight(0)

	for {
		select {
		case call := <-w.queue:
			w.cancelCall(call)
		default:
			close(w.done)
			return
		}
	}
}

func (w *Worker) cancelCall(call *PendingCall) {
	call.cancel()
	w.metrics.CallCompleted(metrics.OutcomeCancelled, call.submitted)
}

// Done is closed once Run returned and every call it owned was resolved.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Status returns a snapshot of the worker.
func (w *Worker) Status() Status {
	s := w.status.snapshot()
	s.QueueDepth = len(w.queue)
	s.Endpoints = w.pool.Snapshot()
	return s
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
