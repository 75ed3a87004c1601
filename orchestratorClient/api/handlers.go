package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

const (
	defaultCallTimeout = 30 * time.Second
	maxCallTimeout     = 5 * time.Minute
)

// handleHealth handles GET /health. It fails once the worker stopped.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.client != nil && s.client.Status().State == rpcclient.StateStopped {
		http.Error(w, "rpc worker stopped", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Worker:    s.client.Status(),
		Keepalive: s.client.KeepaliveStatus(),
	})
}

// handleCall handles POST /api/v1/call?timeout_ms=<ms>
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Method == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "method is required"})
		return
	}

	timeout := defaultCallTimeout
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := cast.ToInt64E(raw)
		if err != nil || ms <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "timeout_ms must be a positive integer"})
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > maxCallTimeout {
			timeout = maxCallTimeout
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	params := make([]any, len(req.Params))
	for i, p := range req.Params {
		params[i] = p
	}

	result, err := s.client.Call(ctx, req.Method, params...)

	var rpcErr *transport.RPCError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CallResponse{Result: result})
	case errors.As(err, &rpcErr):
		writeJSON(w, http.StatusOK, CallResponse{Error: &RPCErrorBody{
			Code:    rpcErr.Code,
			Message: rpcErr.Message,
			Data:    rpcErr.Data,
		}})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
	case errors.Is(err, rpcclient.ErrCancelled), errors.Is(err, rpcclient.ErrWorkerStopped):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Str("method", req.Method).Msg("call failed")
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
