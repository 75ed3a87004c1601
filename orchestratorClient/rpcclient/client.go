package rpcclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
)

// Client submits calls to a Worker. It is safe for concurrent use.
type Client struct {
	queue     chan<- *PendingCall
	closing   chan struct{}
	closeOnce *sync.Once
	stopping  <-chan struct{}
	done      <-chan struct{}
	worker    *Worker
}

// Submit queues method for dispatch and returns a handle on its result. It
// blocks while the request queue is full. ctx bounds the wait for queue space
// and also marks the caller's interest: a result arriving after ctx ended is
// discarded.
func (c *Client) Submit(ctx context.Context, method string, params []any) (*Future, error) {
	if method == "" {
		return nil, errors.NewValidationError("method is required")
	}

	select {
	case <-c.closing:
		return nil, ErrWorkerStopped
	case <-c.stopping:
		return nil, ErrWorkerStopped
	default:
	}

	call := newPendingCall(ctx, method, params)
	select {
	case c.queue <- call:
		return &Future{result: call.result, done: c.done}, nil
	case <-c.closing:
		return nil, ErrWorkerStopped
	case <-c.stopping:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call submits method and waits for its result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f, err := c.Submit(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// CallResult is Call followed by decoding the result into result.
func (c *Client) CallResult(ctx context.Context, result any, method string, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return errors.WrapClientError(err, errors.ErrCodeRPC, "", "failed to decode "+method+" result")
	}
	return nil
}

// Close stops the worker. Calls not yet resolved observe cancellation and
// later submissions fail with ErrWorkerStopped.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closing) })
}

// Done is closed once the worker stopped and resolved every call it owned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Status returns a snapshot of the worker.
func (c *Client) Status() Status {
	return c.worker.Status()
}
