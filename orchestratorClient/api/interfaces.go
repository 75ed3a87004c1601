package api

import (
	"context"
	"encoding/json"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/keepalive"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
)

// OrchestratorClientInterface defines the methods needed by the API server
type OrchestratorClientInterface interface {
	Status() rpcclient.Status
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	KeepaliveStatus() *keepalive.Status
}
