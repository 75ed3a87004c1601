// Package geth adapts go-ethereum's rpc.Client to transport.Conn.
//
// rpc.Client redials on its own after a write failure. The worker never relies
// on that: the first connection-level error is reported as
// transport.ErrConnectionLost and the client is discarded.
package geth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// internalErrorCode is the JSON-RPC 2.0 "Internal error" code.
const internalErrorCode = -32603

// Dialer opens go-ethereum rpc clients.
type Dialer struct {
	logger zerolog.Logger
}

// NewDialer creates a go-ethereum backed dialer.
func NewDialer(logger zerolog.Logger) *Dialer {
	return &Dialer{logger: logger.With().Str("component", "geth_transport").Logger()}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	client, err := rpc.DialContext(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Conn{
		addr:   addr,
		client: client,
		logger: d.logger.With().Str("url", addr).Logger(),
	}, nil
}

// Conn wraps one rpc.Client.
type Conn struct {
	addr   string
	client *rpc.Client
	logger zerolog.Logger

	mu   sync.Mutex
	dead error
}

// Call implements transport.Conn.
func (c *Conn) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	c.mu.Lock()
	dead := c.dead
	c.mu.Unlock()
	if dead != nil {
		return nil, dead
	}

	var result json.RawMessage
	err := c.client.CallContext(ctx, &result, method, params...)
	if err == nil {
		if result == nil {
			result = json.RawMessage("null")
		}
		return result, nil
	}
	return nil, c.classify(ctx, err)
}

// classify separates answers from the node from a broken connection.
func (c *Conn) classify(ctx context.Context, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		appErr := &transport.RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
			if data, mErr := json.Marshal(dataErr.ErrorData()); mErr == nil {
				appErr.Data = data
			}
		}
		return appErr
	}
	// The node answered, just without a result or an error member.
	if errors.Is(err, rpc.ErrNoResult) {
		return &transport.RPCError{Code: internalErrorCode, Message: err.Error()}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	lost := fmt.Errorf("%w: %s: %v", transport.ErrConnectionLost, c.addr, err)
	c.mu.Lock()
	if c.dead == nil {
		c.dead = lost
	}
	c.mu.Unlock()
	c.logger.Debug().Err(err).Msg("rpc client connection failed")
	return lost
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.dead == nil {
		c.dead = fmt.Errorf("%w: closed by client", transport.ErrConnectionLost)
	}
	c.mu.Unlock()
	c.client.Close()
	return nil
}
