// Package orchestrator exposes typed orchestrator chain queries on top of the
// reconnecting RPC client.
package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/rpcclient"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// RPC methods used by Client
const (
	MethodGetHead          = "chain_getHead"
	MethodGetFinalizedHead = "chain_getFinalizedHead"
	MethodGetHeader        = "chain_getHeader"
	MethodGetStorage       = "state_getStorage"
	MethodGetReadProof     = "state_getReadProof"
	MethodSystemHealth     = "system_health"
)

// ErrNotFound is returned when the node answers null for a header
var ErrNotFound = errors.New("not found")

// Caller is the part of rpcclient.Client used here
type Caller interface {
	CallResult(ctx context.Context, result any, method string, params ...any) error
}

// Client issues orchestrator chain queries
type Client struct {
	rpc Caller
}

// NewClient wraps rpc
func NewClient(rpc Caller) *Client {
	return &Client{rpc: rpc}
}

// BestBlockHash returns the hash of the best block
func (c *Client) BestBlockHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, MethodGetHead); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// FinalizedBlockHash returns the hash of the last finalized block
func (c *Client) FinalizedBlockHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, MethodGetFinalizedHead); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// Header returns the header of block hash
func (c *Client) Header(ctx context.Context, hash common.Hash) (*Header, error) {
	var header *Header
	if err := c.call(ctx, &header, MethodGetHeader, hash); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, errors.NewRPCError(MethodGetHeader, "header "+hash.Hex(), ErrNotFound)
	}
	return header, nil
}

// LatestBlockNumber returns the number of the best block known to the node
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var header *Header
	if err := c.call(ctx, &header, MethodGetHeader); err != nil {
		return 0, err
	}
	if header == nil {
		return 0, errors.NewRPCError(MethodGetHeader, "best header", ErrNotFound)
	}
	return uint64(header.Number), nil
}

// StorageByKey reads the raw storage value at key in the state of block parent.
// A missing value is returned as nil without error.
func (c *Client) StorageByKey(ctx context.Context, parent common.Hash, key []byte) ([]byte, error) {
	var value *hexutil.Bytes
	if err := c.call(ctx, &value, MethodGetStorage, hexutil.Bytes(key), parent); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return *value, nil
}

// StorageByMapKey reads the value of a map entry whose key is hashed with
// Blake2_128Concat, under the 32-byte storage prefix of the map.
func (c *Client) StorageByMapKey(ctx context.Context, parent common.Hash, prefix, mapKey []byte) ([]byte, error) {
	return c.StorageByKey(ctx, parent, MapStorageKey(prefix, mapKey))
}

// ProveRead returns a proof for keys in the state of block parent
func (c *Client) ProveRead(ctx context.Context, parent common.Hash, keys [][]byte) (*ReadProof, error) {
	encoded := make([]hexutil.Bytes, len(keys))
	for i, k := range keys {
		encoded[i] = k
	}

	var proof ReadProof
	if err := c.call(ctx, &proof, MethodGetReadProof, encoded, parent); err != nil {
		return nil, err
	}
	return &proof, nil
}

// SystemHealth returns the node's health summary
func (c *Client) SystemHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.call(ctx, &health, MethodSystemHealth); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) call(ctx context.Context, result any, method string, params ...any) error {
	err := c.rpc.CallResult(ctx, result, method, params...)
	if err == nil {
		return nil
	}

	var rpcErr *transport.RPCError
	switch {
	case errors.As(err, &rpcErr):
		return errors.NewRPCError(method, rpcErr.Message, err).WithContext("rpc_code", rpcErr.Code)
	case errors.Is(err, rpcclient.ErrCancelled), errors.Is(err, rpcclient.ErrWorkerStopped):
		return errors.NewNetworkError("", method+" not answered", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.NewClientError(errors.ErrCodeTimeout, "", method+" timed out", err)
	default:
		return err
	}
}
