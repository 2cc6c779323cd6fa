package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
)

// maxEnvelopeSize bounds one JSON line of a replay file.
const maxEnvelopeSize = 4 * 1024 * 1024

// payloadTimestamp picks block_timestamp out of a named payload.
type payloadTimestamp struct {
	BlockTimestamp uint64 `json:"block_timestamp" starknet:"block_timestamp"`
}

// ReadEnvelopes parses JSON-lines event envelopes. Blank lines are skipped. An envelope without
// a block_timestamp takes the one carried in its payload.
func ReadEnvelopes(r io.Reader) ([]*starknet.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEnvelopeSize) //nolint:mnd

	var (
		events []*starknet.Event
		line   int
	)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		ev := new(starknet.Event)
		if err := json.Unmarshal([]byte(text), ev); err != nil {
			return nil, fmt.Errorf("line %d: invalid envelope: %w", line, err)
		}
		if ev.ContractAddress.IsZero() {
			return nil, fmt.Errorf("line %d: missing contract_address", line)
		}
		if ev.Name == "" && len(ev.Keys) == 0 {
			return nil, fmt.Errorf("line %d: envelope has neither event name nor keys", line)
		}

		if ev.BlockTimestamp == 0 && len(ev.Payload) > 0 {
			var ts payloadTimestamp
			if err := starknet.DecodeNamed(ev.Payload, &ts); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			ev.BlockTimestamp = ts.BlockTimestamp
		}

		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read envelopes: %w", err)
	}

	ReplayedEvents.Add(float64(len(events)))
	return events, nil
}

// Replay applies envelopes recorded in a JSON-lines file instead of polling a node.
type Replay struct {
	dispatcher  Dispatcher
	syncManager *SyncManager
	log         *logger.Logger
}

// NewReplay creates a new Replay instance.
func NewReplay(dispatcher Dispatcher, syncManager *SyncManager, log *logger.Logger) (*Replay, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if syncManager == nil {
		return nil, errors.New("sync manager is required")
	}

	return &Replay{
		dispatcher:  dispatcher,
		syncManager: syncManager,
		log:         log.WithComponent(common.ComponentEventSource),
	}, nil
}

// RunFile replays the envelopes stored at path.
func (r *Replay) RunFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	events, err := ReadEnvelopes(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	return r.Run(ctx, events)
}

// Run applies events block by block in file order and checkpoints after every block.
// Blocks at or below the cursor are skipped, so an interrupted replay resumes where it stopped.
// It returns the number of events applied.
func (r *Replay) Run(ctx context.Context, events []*starknet.Event) (int, error) {
	last, err := r.syncManager.LastProcessedBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get sync state: %w", err)
	}

	applied := 0
	for start := 0; start < len(events); {
		block := events[start].BlockNumber
		end := start + 1
		for end < len(events) && events[end].BlockNumber == block {
			end++
		}
		batch := events[start:end]
		start = end

		if last > 0 && block <= last {
			continue
		}

		if err := r.dispatcher.HandleEvents(ctx, batch); err != nil {
			return applied, err
		}
		if err := r.syncManager.SaveCheckpoint(ctx, block); err != nil {
			return applied, fmt.Errorf("failed to save checkpoint: %w", err)
		}
		applied += len(batch)
	}

	r.log.Infow("replay finished", "events", len(events), "applied", applied)

	return applied, nil
}
