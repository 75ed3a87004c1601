package rpcclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/ws"
	"github.com/pushchain/orchestrator-rpc/testutils"
)

// WebsocketTestSuite runs the worker against real websocket nodes
type WebsocketTestSuite struct {
	suite.Suite
	first  *testutils.Node
	second *testutils.Node
	worker *Worker
	client *Client
	cancel context.CancelFunc
}

func (s *WebsocketTestSuite) SetupTest() {
	s.first = testutils.NewNode(s.T())
	s.second = testutils.NewNode(s.T())

	dialer := ws.NewDialer(ws.Config{}, zerolog.Nop())
	w, c, err := New(context.Background(), []string{s.first.URL(), s.second.URL()}, dialer, WithLogger(zerolog.Nop()))
	require.NoError(s.T(), err)
	s.worker, s.client = w, c

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() { _ = w.Run(ctx) }()
}

func (s *WebsocketTestSuite) TearDownTest() {
	s.client.Close()
	s.cancel()
	<-s.worker.Done()
}

func (s *WebsocketTestSuite) TestCallsFirstEndpoint() {
	var echoed string
	s.Require().NoError(s.client.CallResult(context.Background(), &echoed, "echo", "hello"))
	s.Equal("hello", echoed)
	s.Equal(0, s.client.Status().ActiveIndex)
	s.Equal(1, s.first.Calls("echo"))
}

func (s *WebsocketTestSuite) TestFailoverRetriesInFlightCall() {
	stuck := make(chan struct{})
	defer close(stuck)
	s.first.Handle("chain_getHead", func([]json.RawMessage) (any, *transport.RPCError) {
		<-stuck
		return "0xdead", nil
	})
	s.second.Handle("chain_getHead", func([]json.RawMessage) (any, *transport.RPCError) {
		return "0xbeef", nil
	})

	f, err := s.client.Submit(context.Background(), "chain_getHead", nil)
	s.Require().NoError(err)
	s.Require().Eventually(func() bool { return s.first.Calls("chain_getHead") == 1 }, waitTimeout, 5*time.Millisecond)

	s.first.SetReachable(false)

	res, err := waitResult(s.T(), f)
	s.Require().NoError(err)
	s.JSONEq(`"0xbeef"`, string(res))
	s.Equal(1, s.second.Calls("chain_getHead"))
	s.Equal(1, s.client.Status().ActiveIndex)
	s.Equal(uint64(1), s.client.Status().Reconnects)
}

func (s *WebsocketTestSuite) TestApplicationErrorNotRetried() {
	_, err := s.client.Call(context.Background(), "no_such_method")

	var rpcErr *transport.RPCError
	s.Require().ErrorAs(err, &rpcErr)
	s.Equal(-32601, rpcErr.Code)
	s.Equal(1, s.first.Calls("no_such_method"))
	s.Equal(0, s.second.Calls("no_such_method"))
}

func (s *WebsocketTestSuite) TestAllNodesGone() {
	f, err := s.client.Submit(context.Background(), "echo", []any{"x"})
	s.Require().NoError(err)
	_, err = waitResult(s.T(), f)
	s.Require().NoError(err)

	s.second.SetReachable(false)
	s.first.SetReachable(false)

	// the dead connection is only noticed by the next call
	_, err = s.client.Call(context.Background(), "echo", "y")
	s.ErrorIs(err, ErrCancelled)

	select {
	case <-s.worker.Done():
	case <-time.After(waitTimeout):
		s.Fail("worker did not stop")
	}
	s.Equal(StateStopped, s.client.Status().State)
}

func TestWebsocket_SilentEndpointFailsOver(t *testing.T) {
	healthy := testutils.NewNode(t)
	urls := []string{testutils.NewSilentNode(t), healthy.URL()}

	dialer := ws.NewDialer(ws.Config{HandshakeTimeout: time.Second, PingInterval: 50 * time.Millisecond}, zerolog.Nop())
	w, c, err := New(context.Background(), urls, dialer, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.Equal(t, 0, c.Status().ActiveIndex)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		c.Close()
		cancel()
		<-w.Done()
	}()
	go func() { _ = w.Run(ctx) }()

	callCtx, callCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer callCancel()
	raw, err := c.Call(callCtx, "system_health")
	require.NoError(t, err)
	require.Contains(t, string(raw), "isSyncing")

	status := c.Status()
	require.Equal(t, 1, status.ActiveIndex)
	require.Equal(t, StateConnected, status.State)
	require.Equal(t, 1, healthy.Calls("system_health"))
}

func TestWebsocketTestSuite(t *testing.T) {
	suite.Run(t, new(WebsocketTestSuite))
}
