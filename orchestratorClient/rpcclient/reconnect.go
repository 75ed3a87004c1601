package rpcclient

import (
	"context"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/metrics"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// handleReconnect moves the worker from disconnected back to connected:
// collect every call the dead connection still holds, connect starting after
// the endpoint that failed, and send the collected calls again. When no
// endpoint can be reached the collected calls are cancelled and the error is
// returned.
func (w *Worker) handleReconnect(ctx context.Context, trigger *PendingCall) error {
	w.status.reconnecting()

	retry := make([]*PendingCall, 0, w.inFlight+1)
	if trigger != nil {
		retry = append(retry, trigger)
	}

	// Every call left on the dead connection fails as soon as it is closed.
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	for w.inFlight > 0 {
		res := <-w.completions
		w.inFlight--
		if res.retry != nil {
			retry = append(retry, res.retry)
		}
	}
	w.status.setInFlight(0)

	failed := w.active
	w.logger.Info().
		Int("failed_index", failed).
		Int("pending", len(retry)).
		Msg("reconnecting to next RPC endpoint")

	var (
		index int
		conn  transport.Conn
	)
	err := errors.RetryWithConfig(ctx, func() error {
		i, c, err := w.pool.Connect(ctx, failed+1)
		if err != nil {
			return err
		}
		index, conn = i, c
		return nil
	}, w.retryConfig)
	if err != nil {
		for _, call := range retry {
			w.cancelCall(call)
		}
		if ctx.Err() == nil {
			w.metrics.Reconnected(metrics.ReconnectExhausted)
		}
		return errors.Wrap(err, "unable to find a reachable RPC endpoint")
	}

	w.conn = conn
	w.active = index
	w.status.connected(index, w.pool.URL(index))
	w.status.incReconnects()
	w.metrics.Reconnected(metrics.ReconnectSuccess)
	w.metrics.SetActiveEndpoint(index)

	w.logger.Info().
		Int("index", index).
		Str("url", w.pool.URL(index)).
		Int("retried", len(retry)).
		Msg("reconnected")

	for _, call := range retry {
		w.dispatch(call)
	}
	return nil
}
