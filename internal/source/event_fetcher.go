package source

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/rpc"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

const (
	// fetchConcurrency bounds the parallel per-address getEvents walks of one chunk
	fetchConcurrency = 4
	minPageSize      = 1
)

// EventFetcher pulls the events of a set of contracts over a block range.
type EventFetcher struct {
	client   pkgrpc.Client
	pageSize atomic.Int64
	finality Finality
	log      *logger.Logger

	// lastL1 is the highest block already seen ACCEPTED_ON_L1
	lastL1 uint64
}

// NewEventFetcher creates a fetcher issuing pages of pageSize events.
func NewEventFetcher(client pkgrpc.Client, pageSize int, finality Finality, log *logger.Logger) *EventFetcher {
	if pageSize < minPageSize {
		pageSize = minPageSize
	}

	f := &EventFetcher{
		client:   client,
		finality: finality,
		log:      log,
	}
	f.pageSize.Store(int64(pageSize))

	return f
}

// PageSize returns the events page size currently sent to the node.
func (f *EventFetcher) PageSize() int {
	return int(f.pageSize.Load())
}

// SafeHead returns the highest block that may be indexed under the configured finality.
func (f *EventFetcher) SafeHead(ctx context.Context) (uint64, error) {
	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}

	if f.finality == FinalityAcceptedOnL1 {
		head, err = f.highestAcceptedOnL1(ctx, head)
		if err != nil {
			return 0, err
		}
	}

	safeHeadSet(head)
	return head, nil
}

// highestAcceptedOnL1 binary searches (lastL1, head] for the last block accepted on L1.
// L1 acceptance is monotonic, so every block below an accepted one is accepted too.
func (f *EventFetcher) highestAcceptedOnL1(ctx context.Context, head uint64) (uint64, error) {
	lo, hi := f.lastL1, head
	for lo < hi {
		mid := lo + (hi-lo+1)/2 //nolint:mnd

		header, err := f.client.GetBlockHeader(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("failed to get header of block %d: %w", mid, err)
		}

		if header.Status == pkgrpc.BlockStatusAcceptedOnL1 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	f.lastL1 = lo
	return lo, nil
}

// FetchRange returns the events emitted by addresses in [from, to], merged by block number
// and order of appearance, with block timestamps filled in.
func (f *EventFetcher) FetchRange(ctx context.Context, addresses []string, from, to uint64) ([]*starknet.Event, error) {
	perAddress := make([][]pkgrpc.EmittedEvent, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			felt, err := starknet.ParseFelt(addr)
			if err != nil {
				return fmt.Errorf("invalid contract address %s: %w", addr, err)
			}

			events, err := f.fetchAddress(gctx, felt, from, to)
			if err != nil {
				return fmt.Errorf("failed to fetch events of %s in [%d, %d]: %w", addr, from, to, err)
			}
			perAddress[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []pkgrpc.EmittedEvent
	for _, events := range perAddress {
		merged = append(merged, events...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].BlockNumber < merged[j].BlockNumber
	})

	timestamps, err := f.blockTimestamps(ctx, merged)
	if err != nil {
		return nil, err
	}

	return toEnvelopes(merged, timestamps), nil
}

// fetchAddress walks every page of one contract's events in [from, to].
func (f *EventFetcher) fetchAddress(ctx context.Context, address starknet.Felt, from, to uint64) ([]pkgrpc.EmittedEvent, error) {
	var (
		events    []pkgrpc.EmittedEvent
		token     string
		restarted bool
		pageSize  = f.PageSize()
	)

	for {
		page, err := f.client.GetEvents(ctx, pkgrpc.EventFilter{
			FromBlock:         from,
			ToBlock:           to,
			Address:           address,
			PageSize:          pageSize,
			ContinuationToken: token,
		})
		switch {
		case err == nil:
		case rpc.IsPageSizeTooBig(err) && pageSize > minPageSize:
			pageSize /= 2
			f.pageSize.Store(int64(pageSize))
			f.log.Warnw("node rejected events page size, halving", "page_size", pageSize)
			continue
		case rpc.IsInvalidContinuationToken(err) && !restarted:
			f.log.Warnw("continuation token rejected, restarting range",
				"address", address.Hex(), "from", from, "to", to)
			events, token, restarted = nil, "", true
			continue
		default:
			return nil, err
		}

		PagesFetched.Inc()
		events = append(events, page.Events...)

		if page.ContinuationToken == "" {
			return events, nil
		}
		token = page.ContinuationToken
	}
}

// blockTimestamps loads the timestamp of every block that has events.
func (f *EventFetcher) blockTimestamps(ctx context.Context, events []pkgrpc.EmittedEvent) (map[uint64]uint64, error) {
	var blocks []uint64
	seen := make(map[uint64]struct{})
	for _, ev := range events {
		if _, ok := seen[ev.BlockNumber]; ok {
			continue
		}
		seen[ev.BlockNumber] = struct{}{}
		blocks = append(blocks, ev.BlockNumber)
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	headers, err := f.client.BatchGetBlockHeaders(ctx, blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to get block headers: %w", err)
	}

	timestamps := make(map[uint64]uint64, len(headers))
	for _, h := range headers {
		if h != nil {
			timestamps[h.Number] = h.Timestamp
		}
	}
	for _, b := range blocks {
		if _, ok := timestamps[b]; !ok {
			return nil, fmt.Errorf("missing header of block %d", b)
		}
	}

	return timestamps, nil
}

// toEnvelopes converts node events to dispatcher envelopes. Index counts events within a block.
func toEnvelopes(events []pkgrpc.EmittedEvent, timestamps map[uint64]uint64) []*starknet.Event {
	out := make([]*starknet.Event, 0, len(events))

	var (
		block uint64
		index int
	)
	for i, ev := range events {
		if i == 0 || ev.BlockNumber != block {
			block, index = ev.BlockNumber, 0
		}

		out = append(out, &starknet.Event{
			ContractAddress: ev.FromAddress,
			TransactionHash: ev.TransactionHash,
			BlockNumber:     ev.BlockNumber,
			BlockTimestamp:  timestamps[ev.BlockNumber],
			Index:           index,
			Keys:            ev.Keys,
			Data:            ev.Data,
		})
		index++
	}

	return out
}
