package rpcclient

import (
	"sync"
	"time"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcpool"
)

// Worker states
const (
	StateConnected    = "connected"
	StateReconnecting = "reconnecting"
	StateStopped      = "stopped"
)

// Status is a point-in-time view of a worker
type Status struct {
	State         string                     `json:"state"`
	ActiveIndex   int                        `json:"active_index"`
	ActiveURL     string                     `json:"active_url,omitempty"`
	InFlight      int                        `json:"in_flight"`
	QueueDepth    int                        `json:"queue_depth"`
	Reconnects    uint64                     `json:"reconnects"`
	LastReconnect time.Time                  `json:"last_reconnect,omitempty"`
	Endpoints     []rpcpool.EndpointSnapshot `json:"endpoints"`
}

// statusTracker publishes the worker's private state for readers on other
// goroutines. Only the worker writes to it.
type statusTracker struct {
	mu sync.RWMutex
	s  Status
}

func (t *statusTracker) connected(index int, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = StateConnected
	t.s.ActiveIndex = index
	t.s.ActiveURL = url
}

func (t *statusTracker) reconnecting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = StateReconnecting
}

func (t *statusTracker) stopped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.State = StateStopped
	t.s.ActiveIndex = -1
	t.s.ActiveURL = ""
}

func (t *statusTracker) incReconnects() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Reconnects++
	t.s.LastReconnect = time.Now()
}

func (t *statusTracker) setInFlight(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.InFlight = n
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}
