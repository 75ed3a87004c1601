package rpcpool

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

func TestNewPool_Validation(t *testing.T) {
	d := transport.DialerFunc(func(context.Context, string) (transport.Conn, error) { return &stubConn{}, nil })

	_, err := NewPool(nil, d, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewPool([]string{"ws://a"}, nil, zerolog.Nop())
	assert.Error(t, err)

	p, err := NewPool([]string{"ws://a", "ws://b"}, d, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "ws://b", p.URL(1))
}

func TestPool_ConnectRecordsStats(t *testing.T) {
	up := map[string]bool{"ws://b": true}
	d := transport.DialerFunc(func(_ context.Context, addr string) (transport.Conn, error) {
		if up[addr] {
			return &stubConn{addr: addr}, nil
		}
		return nil, fmt.Errorf("%s refused", addr)
	})

	var forwarded int
	p, err := NewPool([]string{"ws://a", "ws://b"}, d, zerolog.Nop(),
		WithPoolObserver(func(int, string, error) { forwarded++ }),
	)
	require.NoError(t, err)

	idx, _, err := p.Connect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, forwarded)

	snap := p.Snapshot()
	require.Len(t, snap, 2)

	assert.Equal(t, "failed", snap[0].State)
	assert.Equal(t, uint64(1), snap[0].DialFailures)
	assert.Equal(t, 1, snap[0].ConsecutiveFailures)
	assert.Contains(t, snap[0].LastError, "refused")

	assert.Equal(t, "connected", snap[1].State)
	assert.Equal(t, uint64(1), snap[1].DialSuccesses)
	assert.False(t, snap[1].LastConnectedTime.IsZero())
}

func TestEndpoint_StateTransitions(t *testing.T) {
	ep := NewEndpoint(0, "ws://a")
	assert.Equal(t, StateUnknown, ep.State())

	ep.Stats.RecordFailure(fmt.Errorf("boom"))
	ep.Stats.RecordFailure(fmt.Errorf("boom"))
	assert.Equal(t, StateFailed, ep.State())
	assert.Equal(t, 2, ep.Snapshot().ConsecutiveFailures)

	ep.Stats.RecordSuccess()
	assert.Equal(t, StateConnected, ep.State())
	assert.Equal(t, 0, ep.Snapshot().ConsecutiveFailures)
	assert.Equal(t, uint64(3), ep.Snapshot().DialAttempts)
}
