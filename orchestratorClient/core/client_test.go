package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/config"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/orchestrator"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcpool"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/geth"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/mock"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/ws"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T, urls ...string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		LogLevel:                 0,
		LogFormat:                "console",
		RPCURLs:                  urls,
		KeepaliveIntervalSeconds: 1,
		QueryServerPort:          freePort(t),
	}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func healthyNode(_ context.Context, method string, params []any) (json.RawMessage, error) {
	switch method {
	case orchestrator.MethodGetHead:
		return json.RawMessage(`"0x0000000000000000000000000000000000000000000000000000000000000007"`), nil
	case orchestrator.MethodSystemHealth:
		return json.RawMessage(`{"peers":2,"isSyncing":false,"shouldHavePeers":true}`), nil
	}
	return mock.Echo(context.Background(), method, params)
}

func TestOrchestratorClient_StartAndShutdown(t *testing.T) {
	net := mock.NewNetwork()
	ep := net.Add("ws://node-1", true)
	ep.SetHandler(healthyNode)

	cfg := testConfig(t, "ws://node-1")
	reg := prometheus.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oc, err := NewOrchestratorClient(ctx, zerolog.Nop(), cfg, WithDialer(net), WithRegistry(reg))
	require.NoError(t, err)

	startErr := make(chan error, 1)
	go func() { startErr <- oc.Start() }()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.QueryServerPort)
	httpClient := &http.Client{Timeout: 2 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := httpClient.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	head, err := oc.Chain().BestBlockHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(7), head[31])

	// the prober goes through the same worker
	require.Eventually(t, func() bool { return ep.Calls(orchestrator.MethodSystemHealth) > 0 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		st := oc.KeepaliveStatus()
		return st != nil && st.Probes > 0
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := httpClient.Get(base + "/api/v1/status")
	require.NoError(t, err)
	var body struct {
		Worker rpcclient.Status `json:"worker"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, rpcclient.StateConnected, body.Worker.State)
	assert.Equal(t, "ws://node-1", body.Worker.ActiveURL)

	count, err := testutil.GatherAndCount(reg, "orchestrator_rpc_calls_dispatched_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cancel()
	select {
	case err := <-startErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not shut down")
	}
	assert.Equal(t, rpcclient.StateStopped, oc.Status().State)
}

func TestOrchestratorClient_WorkerExhaustion(t *testing.T) {
	net := mock.NewNetwork()
	ep := net.Add("ws://node-1", true)

	cfg := testConfig(t, "ws://node-1")
	cfg.KeepaliveIntervalSeconds = 0
	cfg.QueryServerPort = -1

	oc, err := NewOrchestratorClient(context.Background(), zerolog.Nop(), cfg, WithDialer(net))
	require.NoError(t, err)
	assert.Nil(t, oc.KeepaliveStatus())

	startErr := make(chan error, 1)
	go func() { startErr <- oc.Start() }()

	ep.SetReachable(false)
	ep.Kill()

	// a call exposes the dead connection to the worker
	_, _ = oc.Call(context.Background(), "echo", "x")

	select {
	case err := <-startErr:
		assert.ErrorIs(t, err, rpcpool.ErrAllEndpointsFailed)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestNewOrchestratorClient_NoReachableEndpoint(t *testing.T) {
	net := mock.NewNetwork()
	net.Add("ws://node-1", false)

	_, err := NewOrchestratorClient(context.Background(), zerolog.Nop(), testConfig(t, "ws://node-1"), WithDialer(net))
	assert.ErrorIs(t, err, rpcpool.ErrAllEndpointsFailed)
}

func TestNewDialer(t *testing.T) {
	cfg := &config.Config{Transport: config.TransportWebsocket}
	d, err := NewDialer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ws.Dialer{}, d)

	cfg.Transport = config.TransportGeth
	d, err = NewDialer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &geth.Dialer{}, d)

	cfg.Transport = "carrier-pigeon"
	_, err = NewDialer(cfg, zerolog.Nop())
	assert.Error(t, err)
}
