package orchestrator

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Header is an orchestrator block header as returned by chain_getHeader
type Header struct {
	ParentHash     common.Hash    `json:"parentHash"`
	Number         hexutil.Uint64 `json:"number"`
	StateRoot      common.Hash    `json:"stateRoot"`
	ExtrinsicsRoot common.Hash    `json:"extrinsicsRoot"`
	Digest         Digest         `json:"digest"`
}

// Digest holds the SCALE-encoded digest items of a header
type Digest struct {
	Logs []hexutil.Bytes `json:"logs"`
}

// ReadProof is a storage read proof as returned by state_getReadProof
type ReadProof struct {
	At    common.Hash     `json:"at"`
	Proof []hexutil.Bytes `json:"proof"`
}

// Health is the node health as returned by system_health
type Health struct {
	Peers           uint64 `json:"peers"`
	IsSyncing       bool   `json:"isSyncing"`
	ShouldHavePeers bool   `json:"shouldHavePeers"`
}
