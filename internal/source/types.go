package source

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
)

// FetchMode represents the operating mode of the poller.
type FetchMode string

const (
	// ModeBackfill walks historical blocks in chunk_size ranges up to the safe head
	ModeBackfill FetchMode = "backfill"

	// ModeLive waits poll_interval at the head and then polls again
	ModeLive FetchMode = "live"
)

// String returns the string representation of FetchMode.
func (m FetchMode) String() string {
	return string(m)
}

// Finality selects the head the poller is allowed to index up to.
type Finality string

const (
	// FinalityLatest indexes up to the latest accepted block
	FinalityLatest Finality = "latest"

	// FinalityAcceptedOnL1 indexes only blocks whose state was accepted on L1
	FinalityAcceptedOnL1 Finality = "accepted_on_l1"
)

// ParseFinality validates a finality setting.
func ParseFinality(s string) (Finality, error) {
	switch f := Finality(s); f {
	case FinalityLatest, FinalityAcceptedOnL1:
		return f, nil
	case "":
		return FinalityLatest, nil
	default:
		return "", fmt.Errorf("unknown finality %q (expected latest or accepted_on_l1)", s)
	}
}

// FetchResult is one chunk of merged events ready for dispatch.
type FetchResult struct {
	// Events are ordered by block number and order of appearance
	Events []*starknet.Event

	// FromBlock is the first block of the chunk
	FromBlock uint64

	// ToBlock is the last block of the chunk
	ToBlock uint64
}

// Dispatcher applies events to the entity store and knows which addresses are routed.
type Dispatcher interface {
	Addresses() []string
	HandleEvents(ctx context.Context, events []*starknet.Event) error
}
