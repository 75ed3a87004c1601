// Package mock provides an in-memory transport whose endpoints can be made
// unreachable or killed on demand. It is used by tests and local demos.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// Handler serves a call on a mock endpoint. ctx is cancelled when the
// connection carrying the call dies.
type Handler func(ctx context.Context, method string, params []any) (json.RawMessage, error)

// Echo answers "echo" with its first parameter and rejects every other method.
func Echo(_ context.Context, method string, params []any) (json.RawMessage, error) {
	if method != "echo" {
		return nil, &transport.RPCError{Code: -32601, Message: "Method not found"}
	}
	if len(params) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(params[0])
}

// Network is a set of named endpoints and implements transport.Dialer.
type Network struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	dials     []string
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{endpoints: make(map[string]*Endpoint)}
}

// Add registers an endpoint served by Echo.
func (n *Network) Add(addr string, reachable bool) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	ep := &Endpoint{
		addr:      addr,
		reachable: reachable,
		handler:   Echo,
		calls:     make(map[string]int),
	}
	n.endpoints[addr] = ep
	return ep
}

// Endpoint returns the endpoint registered at addr, or nil.
func (n *Network) Endpoint(addr string) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.endpoints[addr]
}

// Dials returns every address dialed so far, in order, including failures.
func (n *Network) Dials() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.dials))
	copy(out, n.dials)
	return out
}

// Dial implements transport.Dialer.
func (n *Network) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.dials = append(n.dials, addr)
	ep := n.endpoints[addr]
	n.mu.Unlock()

	if ep == nil {
		return nil, fmt.Errorf("mock transport: no endpoint at %s", addr)
	}
	return ep.connect()
}

// Endpoint is one mock node.
type Endpoint struct {
	addr string

	mu        sync.Mutex
	reachable bool
	handler   Handler
	conns     []*Conn
	calls     map[string]int
	accepted  int
}

// SetReachable controls whether new dials succeed. Live connections are untouched.
func (e *Endpoint) SetReachable(reachable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reachable = reachable
}

// SetHandler replaces the call handler.
func (e *Endpoint) SetHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

// Kill breaks every live connection; calls in flight on them fail with
// transport.ErrConnectionLost.
func (e *Endpoint) Kill() {
	e.mu.Lock()
	conns := e.conns
	e.conns = nil
	e.mu.Unlock()

	for _, c := range conns {
		c.die(fmt.Errorf("%w: %s killed", transport.ErrConnectionLost, e.addr))
	}
}

// Calls returns how many times method reached this endpoint.
func (e *Endpoint) Calls(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[method]
}

// Accepted returns how many connections this endpoint accepted.
func (e *Endpoint) Accepted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accepted
}

func (e *Endpoint) connect() (*Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reachable {
		return nil, fmt.Errorf("mock transport: %s unreachable", e.addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{endpoint: e, ctx: ctx, cancel: cancel}
	e.conns = append(e.conns, c)
	e.accepted++
	return c, nil
}

func (e *Endpoint) serve(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	e.mu.Lock()
	e.calls[method]++
	h := e.handler
	e.mu.Unlock()
	return h(ctx, method, params)
}

// Conn is a connection to a mock endpoint.
type Conn struct {
	endpoint *Endpoint
	ctx      context.Context
	cancel   context.CancelFunc

	mu   sync.Mutex
	dead error
}

// Call implements transport.Conn.
func (c *Conn) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if err := c.err(); err != nil {
		return nil, err
	}

	type reply struct {
		result json.RawMessage
		err    error
	}
	ch := make(chan reply, 1)
	go func() {
		result, err := c.endpoint.serve(c.ctx, method, params)
		ch <- reply{result, err}
	}()

	select {
	case r := <-ch:
		// a handler unblocked by the connection dying reports the loss, not its own error
		if err := c.err(); err != nil {
			return nil, err
		}
		return r.result, r.err
	case <-c.ctx.Done():
		return nil, c.err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.die(fmt.Errorf("%w: closed by client", transport.ErrConnectionLost))
	return nil
}

func (c *Conn) die(err error) {
	c.mu.Lock()
	if c.dead == nil {
		c.dead = err
	}
	c.mu.Unlock()
	c.cancel()
}

func (c *Conn) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}
