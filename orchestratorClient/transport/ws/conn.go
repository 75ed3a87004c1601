// Package ws implements transport.Conn as JSON-RPC 2.0 over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadLimit        = 32 << 20
	closeGracePeriod        = time.Second
	pingWriteTimeout        = 5 * time.Second
)

// Config tunes the websocket dialer.
type Config struct {
	HandshakeTimeout time.Duration
	ReadLimit        int64
	Header           http.Header

	// PingInterval enables the heartbeat when positive. A connection that
	// receives nothing, pongs included, for PingInterval+PongWait is treated
	// as lost.
	PingInterval time.Duration
	// PongWait defaults to PingInterval.
	PongWait time.Duration
}

func (c *Config) setDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = defaultReadLimit
	}
	if c.PingInterval > 0 && c.PongWait <= 0 {
		c.PongWait = c.PingInterval
	}
}

// readTimeout is how long the read loop waits for any frame; zero disables it.
func (c Config) readTimeout() time.Duration {
	if c.PingInterval <= 0 {
		return 0
	}
	return c.PingInterval + c.PongWait
}

// Dialer opens websocket JSON-RPC connections.
type Dialer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewDialer creates a websocket dialer.
func NewDialer(cfg Config, logger zerolog.Logger) *Dialer {
	cfg.setDefaults()
	return &Dialer{
		cfg:    cfg,
		logger: logger.With().Str("component", "ws_transport").Logger(),
	}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	wsConn, _, err := dialer.DialContext(ctx, toWebsocketURL(addr), d.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	wsConn.SetReadLimit(d.cfg.ReadLimit)

	c := &Conn{
		addr:        addr,
		ws:          wsConn,
		pending:     make(map[uint64]chan callResult),
		done:        make(chan struct{}),
		readTimeout: d.cfg.readTimeout(),
		logger:      d.logger.With().Str("url", addr).Logger(),
	}
	if c.readTimeout > 0 {
		if err := c.extendReadDeadline(); err != nil {
			_ = wsConn.Close()
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		wsConn.SetPongHandler(func(string) error {
			return c.extendReadDeadline()
		})
		go c.heartbeat(d.cfg.PingInterval)
	}
	go c.readLoop()
	return c, nil
}

func toWebsocketURL(addr string) string {
	switch {
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://")
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://")
	default:
		return addr
	}
}

type jsonrpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonrpcResponse struct {
	Version string              `json:"jsonrpc"`
	ID      *uint64             `json:"id"`
	Method  string              `json:"method,omitempty"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *transport.RPCError `json:"error,omitempty"`
}

type callResult struct {
	result json.RawMessage
	err    error
}

// Conn is a single websocket connection multiplexing many outstanding calls.
type Conn struct {
	addr string
	ws   *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   uint64
	pending  map[uint64]chan callResult
	closed   bool
	closeErr error

	done      chan struct{}
	closeOnce sync.Once

	readTimeout time.Duration

	logger zerolog.Logger
}

// Call implements transport.Conn.
func (c *Conn) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	ch := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	req := jsonrpcRequest{Version: "2.0", ID: id, Method: method, Params: params}
	if err := c.write(ctx, req); err != nil {
		c.fail(fmt.Errorf("%w: write to %s: %v", transport.ErrConnectionLost, c.addr, err))
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Conn) write(ctx context.Context, req jsonrpcRequest) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(req)
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("%w: read from %s: %v", transport.ErrConnectionLost, c.addr, err))
			return
		}
		if c.readTimeout > 0 {
			if err := c.extendReadDeadline(); err != nil {
				c.fail(fmt.Errorf("%w: read from %s: %v", transport.ErrConnectionLost, c.addr, err))
				return
			}
		}

		var msg jsonrpcResponse
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("dropping undecodable message")
			continue
		}
		if msg.ID == nil {
			// Subscriptions are not supported yet, so notifications have no consumer.
			c.logger.Debug().Str("method", msg.Method).Msg("ignoring notification")
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		delete(c.pending, *msg.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug().Uint64("id", *msg.ID).Msg("response for unknown or abandoned call")
			continue
		}

		if msg.Error != nil {
			ch <- callResult{err: msg.Error}
		} else {
			result := msg.Result
			if len(result) == 0 {
				result = json.RawMessage("null")
			}
			ch <- callResult{result: result}
		}
	}
}

func (c *Conn) extendReadDeadline() error {
	return c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
}

// heartbeat pings the peer until the connection dies. Pongs, like any other
// frame, push the read deadline forward, so a silent peer trips it.
func (c *Conn) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteTimeout))
			if err != nil {
				c.fail(fmt.Errorf("%w: ping %s: %v", transport.ErrConnectionLost, c.addr, err))
				return
			}
		}
	}
}

// fail marks the connection dead and resolves every pending call with err.
func (c *Conn) fail(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.closeErr = err
		pending := c.pending
		c.pending = make(map[uint64]chan callResult)
		c.mu.Unlock()

		_ = c.ws.Close()
		for _, ch := range pending {
			ch <- callResult{err: err}
		}
		close(c.done)

		c.logger.Debug().Err(err).Int("pending", len(pending)).Msg("connection closed")
	})
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)

	c.fail(fmt.Errorf("%w: closed by client", transport.ErrConnectionLost))
	return nil
}

// Done is closed once the connection is dead.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
