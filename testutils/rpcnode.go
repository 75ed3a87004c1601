package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// Handler answers one JSON-RPC method on a Node.
type Handler func(params []json.RawMessage) (any, *transport.RPCError)

type nodeRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type nodeResponse struct {
	Version string              `json:"jsonrpc"`
	ID      json.RawMessage     `json:"id"`
	Result  any                 `json:"result,omitempty"`
	Error   *transport.RPCError `json:"error,omitempty"`
}

type nodeConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Node is an in-process websocket JSON-RPC server standing in for an
// orchestrator node. Every request is served on its own goroutine, so
// responses on one connection can arrive out of order.
type Node struct {
	t        testing.TB
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	handlers    map[string]Handler
	conns       map[*nodeConn]struct{}
	calls       map[string]int
	accepted    int
	unreachable bool
}

// NewNode starts a Node with "echo" and "system_health" handlers registered.
func NewNode(t testing.TB) *Node {
	n := &Node{
		t:        t,
		handlers: make(map[string]Handler),
		conns:    make(map[*nodeConn]struct{}),
		calls:    make(map[string]int),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	n.Handle("echo", func(params []json.RawMessage) (any, *transport.RPCError) {
		if len(params) == 0 {
			return nil, nil
		}
		return params[0], nil
	})
	n.Handle("system_health", func([]json.RawMessage) (any, *transport.RPCError) {
		return map[string]any{"peers": 1, "isSyncing": false, "shouldHavePeers": true}, nil
	})
	n.server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

// URL returns the ws:// address of the node.
func (n *Node) URL() string {
	return "ws" + strings.TrimPrefix(n.server.URL, "http")
}

// Handle registers h for method, replacing any previous handler.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// SetReachable toggles whether new websocket handshakes succeed. Making a
// node unreachable also drops its live connections.
func (n *Node) SetReachable(reachable bool) {
	n.mu.Lock()
	n.unreachable = !reachable
	n.mu.Unlock()
	if !reachable {
		n.DropConnections()
	}
}

// DropConnections closes every live connection without a close handshake.
func (n *Node) DropConnections() {
	n.mu.Lock()
	conns := make([]*nodeConn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	n.conns = make(map[*nodeConn]struct{})
	n.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
}

// Calls returns how many times method was received.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Accepted returns the number of websocket connections accepted so far.
func (n *Node) Accepted() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accepted
}

// Close drops all connections and stops the server.
func (n *Node) Close() {
	n.DropConnections()
	n.server.Close()
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	unreachable := n.unreachable
	n.mu.Unlock()
	if unreachable {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &nodeConn{ws: ws}

	n.mu.Lock()
	n.conns[conn] = struct{}{}
	n.accepted++
	n.mu.Unlock()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			n.mu.Lock()
			delete(n.conns, conn)
			n.mu.Unlock()
			_ = ws.Close()
			return
		}

		var req nodeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		go n.dispatch(conn, req)
	}
}

func (n *Node) dispatch(conn *nodeConn, req nodeRequest) {
	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := nodeResponse{Version: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &transport.RPCError{Code: -32601, Message: "Method not found"}
	} else {
		result, rpcErr := h(req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
		} else if result == nil {
			resp.Result = json.RawMessage("null")
		} else {
			resp.Result = result
		}
	}

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	_ = conn.ws.WriteJSON(resp)
}

// NewSilentNode starts a websocket server that completes the handshake and
// then never reads or writes, like a peer that hung after accepting. It
// returns the ws:// address.
func NewSilentNode(t testing.TB) string {
	var (
		mu    sync.Mutex
		conns []*websocket.Conn
	)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, ws)
		mu.Unlock()
	}))
	t.Cleanup(func() {
		mu.Lock()
		for _, c := range conns {
			_ = c.Close()
		}
		mu.Unlock()
		server.Close()
	})
	return "ws" + strings.TrimPrefix(server.URL, "http")
}
