package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/handlers"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/StarkIndexor/pkg/rpc"
)

// Poller streams contract events from the node to the dispatcher.
// It walks chunk_size block ranges up to the safe head, then polls every poll_interval.
type Poller struct {
	cfg         config.SourceConfig
	fetcher     *EventFetcher
	dispatcher  Dispatcher
	syncManager *SyncManager
	log         *logger.Logger

	// registered collects children announced while a chunk is being applied
	mu         sync.Mutex
	registered []handlers.Registration
}

var _ handlers.Subscriber = (*Poller)(nil)

// NewPoller creates a new Poller instance.
func NewPoller(
	cfg config.SourceConfig,
	client pkgrpc.Client,
	dispatcher Dispatcher,
	syncManager *SyncManager,
	log *logger.Logger,
) (*Poller, error) {
	if client == nil {
		return nil, errors.New("RPC client is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if syncManager == nil {
		return nil, errors.New("sync manager is required")
	}

	finality, err := ParseFinality(cfg.Finality)
	if err != nil {
		return nil, fmt.Errorf("invalid finality configuration: %w", err)
	}

	cfg.ApplyDefaults()
	log = log.WithComponent(common.ComponentEventSource)

	return &Poller{
		cfg:         cfg,
		fetcher:     NewEventFetcher(client, cfg.PageSize, finality, log),
		dispatcher:  dispatcher,
		syncManager: syncManager,
		log:         log,
	}, nil
}

// ContractRegistered queues a child for a refetch of the chunk it was created in.
func (p *Poller) ContractRegistered(reg handlers.Registration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registered = append(p.registered, reg)
}

func (p *Poller) takeRegistered() []handlers.Registration {
	p.mu.Lock()
	defer p.mu.Unlock()

	regs := p.registered
	p.registered = nil
	return regs
}

// Run polls until ctx is cancelled or an error occurs.
func (p *Poller) Run(ctx context.Context) error {
	last, err := p.syncManager.LastProcessedBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	next := p.cfg.StartBlock
	if last > 0 && last+1 > next {
		next = last + 1
		p.log.Infow("resuming indexing", "last_processed_block", last)
	} else {
		p.log.Infow("starting fresh indexing", "start_block", next)
	}

	metrics.ComponentHealthSet(common.ComponentEventSource, true)
	defer metrics.ComponentHealthSet(common.ComponentEventSource, false)

	p.syncManager.SetMode(ModeBackfill)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("event polling cancelled")
			return ctx.Err()
		default:
		}

		head, err := p.fetcher.SafeHead(ctx)
		if err != nil {
			metrics.ErrorsInc(common.ComponentEventSource, "error")
			return err
		}

		if next > head {
			p.syncManager.SetMode(ModeLive)
			if err := p.wait(ctx); err != nil {
				return err
			}
			continue
		}

		to := min(next+p.cfg.ChunkSize-1, head)
		result, err := p.ProcessChunk(ctx, next, to)
		if err != nil {
			metrics.ErrorsInc(common.ComponentEventSource, "error")
			return err
		}

		if to == head {
			p.syncManager.SetMode(ModeLive)
		}

		p.log.Infow("checkpoint saved",
			"block", result.ToBlock,
			"mode", p.syncManager.Mode(),
			"events_processed", len(result.Events),
		)
		next = to + 1
	}
}

// wait blocks for one poll interval.
func (p *Poller) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.PollInterval.Duration):
		return nil
	}
}

// ProcessChunk fetches and applies the events of [from, to] and advances the cursor to to.
// Children registered while the chunk is applied get their own events in the chunk fetched
// and applied before the cursor moves.
func (p *Poller) ProcessChunk(ctx context.Context, from, to uint64) (*FetchResult, error) {
	start := time.Now()
	chunkFetchedInc(p.syncManager.Mode())

	// stale registrations belong to chunks that were already checkpointed
	p.takeRegistered()

	events, err := p.fetcher.FetchRange(ctx, p.dispatcher.Addresses(), from, to)
	if err != nil {
		return nil, err
	}
	eventsFetchedAdd(len(events))

	result := &FetchResult{FromBlock: from, ToBlock: to, Events: events}

	if err := p.dispatcher.HandleEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to handle events of [%d, %d]: %w", from, to, err)
	}

	for regs := p.takeRegistered(); len(regs) > 0; regs = p.takeRegistered() {
		children, err := p.refetchChildren(ctx, regs, from, to)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, children...)
	}

	if err := p.syncManager.SaveCheckpoint(ctx, to); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	elapsed := time.Since(start)
	blocks := to - from + 1
	metrics.BlocksProcessedInc(blocks)
	metrics.BatchProcessingTimeLog(elapsed)
	if elapsed > 0 {
		metrics.IndexingRateLog(float64(blocks) / elapsed.Seconds())
	}

	return result, nil
}

// refetchChildren fetches and applies the events of newly registered children from their
// registration block to the end of the chunk.
func (p *Poller) refetchChildren(
	ctx context.Context, regs []handlers.Registration, from, to uint64,
) ([]*starknet.Event, error) {
	var applied []*starknet.Event

	for _, reg := range regs {
		childFrom := max(reg.Block, from)
		if childFrom > to {
			continue
		}

		ChildRefetches.Inc()
		p.log.Infow("fetching events of new contract",
			"name", reg.Name, "kind", reg.Kind, "address", reg.Address,
			"from", childFrom, "to", to)

		events, err := p.fetcher.FetchRange(ctx, []string{reg.Address}, childFrom, to)
		if err != nil {
			return nil, err
		}
		eventsFetchedAdd(len(events))

		if err := p.dispatcher.HandleEvents(ctx, events); err != nil {
			return nil, fmt.Errorf("failed to handle events of %s in [%d, %d]: %w",
				reg.Name, childFrom, to, err)
		}
		applied = append(applied, events...)
	}

	return applied, nil
}
