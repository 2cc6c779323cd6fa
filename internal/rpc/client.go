package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
)

// Compile-time check to ensure Client implements pkgrpc.Client interface.
var _ pkgrpc.Client = (*Client)(nil)

const (
	methodCall           = "starknet_call"
	methodBlockNumber    = "starknet_blockNumber"
	methodGetEvents      = "starknet_getEvents"
	methodGetBlockHashes = "starknet_getBlockWithTxHashes"

	latestBlockTag = "latest"
	maxBatchSize   = 100
)

// Client is a Starknet JSON-RPC client built on the go-ethereum JSON-RPC transport.
// Every call runs with the configured per-call timeout and is retried with backoff.
type Client struct {
	rpc     *rpc.Client
	timeout time.Duration
	retry   *config.RetryConfig
	log     *logger.Logger
}

// NewClient creates a new RPC client connected to the configured endpoint.
func NewClient(ctx context.Context, cfg config.RPCConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}

	return newClient(rpcClient, cfg, log), nil
}

func newClient(rpcClient *rpc.Client, cfg config.RPCConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		rpc:     rpcClient,
		timeout: cfg.RequestTimeout.Duration,
		retry:   cfg.Retry,
		log:     log.WithComponent(common.ComponentRPC),
	}
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type blockID struct {
	BlockNumber uint64 `json:"block_number"`
}

type callRequest struct {
	ContractAddress    starknet.Felt   `json:"contract_address"`
	EntryPointSelector starknet.Felt   `json:"entry_point_selector"`
	Calldata           []starknet.Felt `json:"calldata"`
}

type eventsRequest struct {
	FromBlock         blockID           `json:"from_block"`
	ToBlock           blockID           `json:"to_block"`
	Address           starknet.Felt     `json:"address"`
	Keys              [][]starknet.Felt `json:"keys,omitempty"`
	ChunkSize         int               `json:"chunk_size"`
	ContinuationToken string            `json:"continuation_token,omitempty"`
}

// Call invokes a view entrypoint at the latest block.
func (c *Client) Call(
	ctx context.Context,
	contract starknet.Felt,
	entrypoint string,
	calldata []starknet.Felt,
) ([]starknet.Felt, error) {
	if calldata == nil {
		calldata = []starknet.Felt{}
	}

	req := callRequest{
		ContractAddress:    contract,
		EntryPointSelector: starknet.Selector(entrypoint),
		Calldata:           calldata,
	}

	var result []starknet.Felt
	err := c.call(ctx, methodCall, &result, req, latestBlockTag)
	if err != nil {
		return nil, fmt.Errorf("%s %s.%s: %w", methodCall, contract, entrypoint, err)
	}

	return result, nil
}

// BlockNumber returns the latest accepted block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	if err := c.call(ctx, methodBlockNumber, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetEvents returns one page of events matching the filter.
func (c *Client) GetEvents(ctx context.Context, filter pkgrpc.EventFilter) (*pkgrpc.EventsPage, error) {
	req := eventsRequest{
		FromBlock:         blockID{BlockNumber: filter.FromBlock},
		ToBlock:           blockID{BlockNumber: filter.ToBlock},
		Address:           filter.Address,
		Keys:              filter.Keys,
		ChunkSize:         filter.PageSize,
		ContinuationToken: filter.ContinuationToken,
	}

	var page pkgrpc.EventsPage
	if err := c.call(ctx, methodGetEvents, &page, req); err != nil {
		return nil, err
	}

	return &page, nil
}

// GetBlockHeader returns number, hash, timestamp and status of a block.
func (c *Client) GetBlockHeader(ctx context.Context, blockNum uint64) (*pkgrpc.BlockHeader, error) {
	var header pkgrpc.BlockHeader
	if err := c.call(ctx, methodGetBlockHashes, &header, blockID{BlockNumber: blockNum}); err != nil {
		return nil, err
	}

	return &header, nil
}

// BatchGetBlockHeaders retrieves headers for multiple block numbers in batches of maxBatchSize.
func (c *Client) BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*pkgrpc.BlockHeader, error) {
	all := make([]*pkgrpc.BlockHeader, 0, len(blockNums))

	for i := 0; i < len(blockNums); i += maxBatchSize {
		chunk := blockNums[i:min(i+maxBatchSize, len(blockNums))]

		batch := make([]rpc.BatchElem, len(chunk))
		results := make([]*pkgrpc.BlockHeader, len(chunk))
		for j, n := range chunk {
			results[j] = &pkgrpc.BlockHeader{}
			batch[j] = rpc.BatchElem{
				Method: methodGetBlockHashes,
				Args:   []any{blockID{BlockNumber: n}},
				Result: results[j],
			}
		}

		err := c.withRetry(ctx, methodGetBlockHashes+"_batch", func(ctx context.Context) error {
			if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
				return err
			}
			for _, elem := range batch {
				if elem.Error != nil {
					return elem.Error
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		all = append(all, results...)
	}

	return all, nil
}

func (c *Client) call(ctx context.Context, method string, result any, args ...any) error {
	return c.withRetry(ctx, method, func(ctx context.Context) error {
		return c.rpc.CallContext(ctx, result, method, args...)
	})
}

// withRetry runs fn with a per-attempt timeout, retrying transient failures and recording metrics.
func (c *Client) withRetry(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	return retryWithBackoff(ctx, c.retry, method, func() error {
		RPCMethodInc(method)
		start := time.Now()

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		err := fn(callCtx)
		RPCMethodDuration(method, time.Since(start))
		if err != nil {
			RPCMethodError(method, errorType(err))
			c.log.Debugw("rpc call failed", "method", method, "error", err)
		}

		return err
	})
}
