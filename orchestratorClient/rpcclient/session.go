package rpcclient

import (
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/metrics"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// dispatch sends call on the active connection. The call belongs to the
// spawned goroutine until it reports back on w.completions.
func (w *Worker) dispatch(call *PendingCall) {
	retry := call.attempts > 0
	call.attempts++

	w.inFlight++
	w.status.setInFlight(w.inFlight)
	w.metrics.CallDispatched(retry)

	conn := w.conn
	go func() {
		w.completions <- w.send(conn, call)
	}()
}

// send issues one call and waits for its single response. An answer from the
// node, including an error object, resolves the call; a dead connection hands
// the call back unchanged so it can be sent again.
func (w *Worker) send(conn transport.Conn, call *PendingCall) dispatchResult {
	result, err := conn.Call(w.callCtx, call.Method, call.Params)
	w.metrics.CallReturned()

	if err != nil && transport.IsConnectionLost(err) {
		return dispatchResult{retry: call, err: err}
	}

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeRPCError
	}
	if !call.deliver(Response{Result: result, Err: err}) {
		outcome = metrics.OutcomeDiscarded
		w.logger.Debug().
			Str("method", call.Method).
			Msg("recipient no longer interested in request result")
	}
	w.metrics.CallCompleted(outcome, call.submitted)
	return dispatchResult{}
}
