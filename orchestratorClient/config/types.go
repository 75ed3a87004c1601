package config

import "time"

// TransportKind selects the wire implementation used to reach the endpoints
type TransportKind string

const (
	// TransportWebsocket speaks JSON-RPC 2.0 over a gorilla/websocket connection
	TransportWebsocket TransportKind = "ws"

	// TransportGeth uses go-ethereum's rpc.Client as the connection. Over
	// http:// there is no persistent socket, so a dead endpoint is only
	// noticed when a call fails.
	TransportGeth TransportKind = "geth"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home"` // Node home directory (default: ~/.orchestratord)

	// Orchestrator endpoints, tried round-robin in this order
	RPCURLs   []string      `json:"rpc_urls"`
	Transport TransportKind `json:"transport"` // "ws" or "geth" (default: ws)

	// Websocket heartbeat. A peer that stops answering pings is dropped and
	// the worker fails over.
	WSPingIntervalSeconds int `json:"ws_ping_interval_seconds"` // default: 15, negative disables

	// Worker Config
	RequestQueueSize   int `json:"request_queue_size"`   // Bound of the request queue (default: 100)
	DialTimeoutSeconds int `json:"dial_timeout_seconds"` // Per-endpoint connect timeout (default: 10)

	// Reconnection policy. One cycle with no backoff keeps the worker's original
	// behaviour: a single failed round-robin cycle is fatal.
	ReconnectCycles    int `json:"reconnect_cycles"`     // Full endpoint cycles before giving up (default: 1)
	ReconnectBackoffMs int `json:"reconnect_backoff_ms"` // Initial delay between cycles, doubled each cycle (default: 0)

	// Keepalive Config
	KeepaliveIntervalSeconds int    `json:"keepalive_interval_seconds"` // 0 disables the prober
	KeepaliveMethod          string `json:"keepalive_method"`           // Cheap method used as a probe (default: system_health)

	// Query Server Config
	QueryServerPort int `json:"query_server_port"` // Port for HTTP query server (default: 8080, negative disables)
}

// DialTimeout returns the per-endpoint connect timeout
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

// WSPingInterval returns the websocket heartbeat interval, zero when disabled
func (c *Config) WSPingInterval() time.Duration {
	if c.WSPingIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.WSPingIntervalSeconds) * time.Second
}

// ReconnectBackoff returns the initial delay between reconnection cycles
func (c *Config) ReconnectBackoff() time.Duration {
	return time.Duration(c.ReconnectBackoffMs) * time.Millisecond
}

// KeepaliveInterval returns the prober interval, zero when disabled
func (c *Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveIntervalSeconds) * time.Second
}
