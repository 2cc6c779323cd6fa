package rpc

import (
	"context"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
)

// Caller performs read-only contract calls. It is all the token resolver and
// the scoring engine need from the node.
type Caller interface {
	Call(ctx context.Context, contract starknet.Felt, entrypoint string, calldata []starknet.Felt) ([]starknet.Felt, error)
}

// Block statuses reported by the node.
const (
	BlockStatusPending      = "PENDING"
	BlockStatusAcceptedOnL2 = "ACCEPTED_ON_L2"
	BlockStatusAcceptedOnL1 = "ACCEPTED_ON_L1"
	BlockStatusRejected     = "REJECTED"
)

// BlockHeader is the subset of a block the event source needs.
type BlockHeader struct {
	Number    uint64        `json:"block_number"`
	Hash      starknet.Felt `json:"block_hash"`
	Timestamp uint64        `json:"timestamp"`
	Status    string        `json:"status"`
}

// EventFilter selects events of one contract in an inclusive block range.
type EventFilter struct {
	FromBlock         uint64
	ToBlock           uint64
	Address           starknet.Felt
	Keys              [][]starknet.Felt
	PageSize          int
	ContinuationToken string
}

// EmittedEvent is an event as returned by starknet_getEvents.
type EmittedEvent struct {
	FromAddress     starknet.Felt   `json:"from_address"`
	Keys            []starknet.Felt `json:"keys"`
	Data            []starknet.Felt `json:"data"`
	BlockHash       starknet.Felt   `json:"block_hash"`
	BlockNumber     uint64          `json:"block_number"`
	TransactionHash starknet.Felt   `json:"transaction_hash"`
}

// EventsPage is one page of starknet_getEvents results.
type EventsPage struct {
	Events            []EmittedEvent `json:"events"`
	ContinuationToken string         `json:"continuation_token,omitempty"`
}

// Client defines the Starknet JSON-RPC operations used by the indexer.
// This abstraction allows for easier testing and alternative implementations.
type Client interface {
	Caller

	// Close closes the RPC client connection.
	Close()

	// BlockNumber returns the latest accepted block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// GetEvents returns one page of events matching the filter.
	GetEvents(ctx context.Context, filter EventFilter) (*EventsPage, error)

	// GetBlockHeader returns number, hash, timestamp and status of a block.
	GetBlockHeader(ctx context.Context, blockNum uint64) (*BlockHeader, error)

	// BatchGetBlockHeaders retrieves headers for multiple block numbers in batch calls.
	BatchGetBlockHeaders(ctx context.Context, blockNums []uint64) ([]*BlockHeader, error)
}
