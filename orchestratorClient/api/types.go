package api

import (
	"encoding/json"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/keepalive"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
)

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Worker    rpcclient.Status  `json:"worker"`
	Keepalive *keepalive.Status `json:"keepalive,omitempty"`
}

// CallRequest is the body of POST /api/v1/call
type CallRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// CallResponse is returned for a call answered by the node
type CallResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCErrorBody   `json:"error,omitempty"`
}

// RPCErrorBody is an application error answered by the node
type RPCErrorBody struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
