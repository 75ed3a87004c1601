package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/config"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/geth"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport/ws"
)

// NewDialer returns the dialer selected by cfg.Transport
func NewDialer(cfg *config.Config, log zerolog.Logger) (transport.Dialer, error) {
	switch cfg.Transport {
	case config.TransportWebsocket, "":
		return ws.NewDialer(ws.Config{
			HandshakeTimeout: cfg.DialTimeout(),
			PingInterval:     cfg.WSPingInterval(),
		}, log), nil
	case config.TransportGeth:
		return geth.NewDialer(log), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
