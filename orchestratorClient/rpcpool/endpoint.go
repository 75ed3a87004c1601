package rpcpool

import (
	"sync"
	"time"
)

// EndpointState is the last observed dial outcome of an endpoint. It is
// informational only and never influences selection order.
type EndpointState int

const (
	StateUnknown EndpointState = iota
	StateConnected
	StateFailed
)

func (s EndpointState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EndpointStats tracks dial activity for an endpoint
type EndpointStats struct {
	mu                  sync.RWMutex
	DialAttempts        uint64
	DialSuccesses       uint64
	DialFailures        uint64
	ConsecutiveFailures int
	LastConnectedTime   time.Time
	LastErrorTime       time.Time
	LastError           error
}

// RecordSuccess updates stats for a successful dial
func (s *EndpointStats) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DialAttempts++
	s.DialSuccesses++
	s.ConsecutiveFailures = 0
	s.LastConnectedTime = time.Now()
}

// RecordFailure updates stats for a failed dial
func (s *EndpointStats) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DialAttempts++
	s.DialFailures++
	s.ConsecutiveFailures++
	s.LastErrorTime = time.Now()
	s.LastError = err
}

// Endpoint is one configured RPC address with its dial stats
type Endpoint struct {
	Index int
	URL   string
	Stats *EndpointStats
}

// NewEndpoint creates an endpoint at position index of the endpoint list
func NewEndpoint(index int, url string) *Endpoint {
	return &Endpoint{
		Index: index,
		URL:   url,
		Stats: &EndpointStats{},
	}
}

// State derives the endpoint state from its most recent dial
func (e *Endpoint) State() EndpointState {
	e.Stats.mu.RLock()
	defer e.Stats.mu.RUnlock()

	switch {
	case e.Stats.DialAttempts == 0:
		return StateUnknown
	case e.Stats.ConsecutiveFailures > 0:
		return StateFailed
	default:
		return StateConnected
	}
}

// EndpointSnapshot is a point-in-time copy of an endpoint's stats
type EndpointSnapshot struct {
	Index               int       `json:"index"`
	URL                 string    `json:"url"`
	State               string    `json:"state"`
	DialAttempts        uint64    `json:"dial_attempts"`
	DialSuccesses       uint64    `json:"dial_successes"`
	DialFailures        uint64    `json:"dial_failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastConnectedTime   time.Time `json:"last_connected_time,omitempty"`
	LastErrorTime       time.Time `json:"last_error_time,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
}

// Snapshot returns a copy of the endpoint's stats
func (e *Endpoint) Snapshot() EndpointSnapshot {
	state := e.State()

	e.Stats.mu.RLock()
	defer e.Stats.mu.RUnlock()

	snap := EndpointSnapshot{
		Index:               e.Index,
		URL:                 e.URL,
		State:               state.String(),
		DialAttempts:        e.Stats.DialAttempts,
		DialSuccesses:       e.Stats.DialSuccesses,
		DialFailures:        e.Stats.DialFailures,
		ConsecutiveFailures: e.Stats.ConsecutiveFailures,
		LastConnectedTime:   e.Stats.LastConnectedTime,
		LastErrorTime:       e.Stats.LastErrorTime,
	}
	if e.Stats.LastError != nil {
		snap.LastError = e.Stats.LastError.Error()
	}
	return snap
}
