package rpcclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
)

var (
	// ErrCancelled is returned by Future.Wait when the worker stopped without
	// resolving the call.
	ErrCancelled = errors.New("rpc call cancelled: worker stopped before a result was delivered")

	// ErrWorkerStopped is returned by Client.Submit once the worker stopped or
	// the client was closed.
	ErrWorkerStopped = errors.New("rpc worker stopped")
)

// Response is the answer of the remote node to one call. Err, when set, is the
// node's application error (usually a *transport.RPCError).
type Response struct {
	Result json.RawMessage
	Err    error
}

// PendingCall is a submitted request. It is owned by exactly one of the
// request queue, a dispatch goroutine, or the reconnect retry list at any
// time, and its result slot is written at most once.
type PendingCall struct {
	Method string
	Params []any

	ctx       context.Context
	submitted time.Time
	attempts  int
	result    chan Response
}

func newPendingCall(ctx context.Context, method string, params []any) *PendingCall {
	return &PendingCall{
		Method:    method,
		Params:    params,
		ctx:       ctx,
		submitted: time.Now(),
		result:    make(chan Response, 1),
	}
}

// deliver hands resp to the caller. It reports false, and drops resp, when the
// caller is no longer waiting.
func (c *PendingCall) deliver(resp Response) bool {
	if c.ctx.Err() != nil {
		close(c.result)
		return false
	}
	c.result <- resp
	return true
}

// cancel resolves the call without a value.
func (c *PendingCall) cancel() {
	close(c.result)
}

// Future is the caller's handle on a submitted call. Wait may be called again
// after it returned a result; it is not meant for concurrent use.
type Future struct {
	result <-chan Response
	done   <-chan struct{}

	mu      sync.Mutex
	settled bool
	resp    Response
	err     error
}

// Wait blocks until the call is resolved, the worker stops without resolving
// it, or ctx ends. An application error from the node is returned as err.
func (f *Future) Wait(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.settled {
		return f.outcome()
	}

	select {
	case resp, ok := <-f.result:
		f.settle(resp, ok)
	case <-f.done:
		// the worker resolves everything it owns before done closes
		select {
		case resp, ok := <-f.result:
			f.settle(resp, ok)
		default:
			f.settle(Response{}, false)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.outcome()
}

func (f *Future) settle(resp Response, ok bool) {
	f.settled = true
	if !ok {
		f.err = ErrCancelled
		return
	}
	f.resp = resp
}

func (f *Future) outcome() (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp.Result, f.resp.Err
}
