// Package transport defines the connection primitive the RPC worker drives:
// dial an address, issue calls, and tell a dead connection apart from an
// error answered by the remote node.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConnectionLost is returned (possibly wrapped) by Conn.Call when the
// connection can no longer carry requests. Calls failing with it were not
// answered and may be sent again on another connection.
var ErrConnectionLost = errors.New("transport: connection lost")

// IsConnectionLost reports whether err signals a dead connection rather than
// an answer from the remote node.
func IsConnectionLost(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// RPCError is an error object returned by the remote node. It is the node's
// authoritative answer to a call and is never retried.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the JSON-RPC error code.
func (e *RPCError) ErrorCode() int { return e.Code }

// Conn is a live connection to one endpoint. Call must be safe for
// concurrent use so many calls can be outstanding on one connection.
type Conn interface {
	// Call issues method with params and waits for its single response.
	// It returns either the raw result, an *RPCError, or an error wrapping
	// ErrConnectionLost.
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
	// Close tears the connection down; outstanding calls fail with ErrConnectionLost.
	Close() error
}

// Dialer opens connections to endpoint addresses.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, addr string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, addr string) (Conn, error) {
	return f(ctx, addr)
}
