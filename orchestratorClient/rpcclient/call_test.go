package rpcclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

func TestPendingCall_Deliver(t *testing.T) {
	call := newPendingCall(context.Background(), "echo", nil)
	done := make(chan struct{})
	f := &Future{result: call.result, done: done}

	assert.True(t, call.deliver(Response{Result: json.RawMessage(`1`)}))

	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(res))

	// settled outcome is kept
	close(done)
	res, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(res))
}

func TestPendingCall_DeliverApplicationError(t *testing.T) {
	call := newPendingCall(context.Background(), "nope", nil)
	f := &Future{result: call.result, done: make(chan struct{})}

	call.deliver(Response{Err: &transport.RPCError{Code: -32601, Message: "Method not found"}})

	_, err := f.Wait(context.Background())
	var rpcErr *transport.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestPendingCall_DeliverToGoneCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	call := newPendingCall(ctx, "echo", nil)
	f := &Future{result: call.result, done: make(chan struct{})}
	cancel()

	assert.False(t, call.deliver(Response{Result: json.RawMessage(`1`)}))

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFuture_Cancelled(t *testing.T) {
	call := newPendingCall(context.Background(), "echo", nil)
	f := &Future{result: call.result, done: make(chan struct{})}
	call.cancel()

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFuture_WorkerDoneWithoutValue(t *testing.T) {
	call := newPendingCall(context.Background(), "echo", nil)
	done := make(chan struct{})
	f := &Future{result: call.result, done: done}
	close(done)

	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFuture_WaitContext(t *testing.T) {
	call := newPendingCall(context.Background(), "echo", nil)
	f := &Future{result: call.result, done: make(chan struct{})}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// a later wait still sees the value
	call.deliver(Response{Result: json.RawMessage(`"late"`)})
	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `"late"`, string(res))
}
