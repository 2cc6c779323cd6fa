package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

// ErrUnknownEvent is returned for an event name the contract kind has no handler for.
var ErrUnknownEvent = errors.New("unknown event")

// call carries one event through its handler.
type call struct {
	ctx      context.Context
	tx       *store.Tx
	ev       *starknet.Event
	log      *logger.Logger
	contract string
	txHash   string
	ts       uint64
}

// at returns the block timestamp as a row timestamp.
func (c *call) at() int64 {
	return int64(c.ts) //nolint:gosec
}

// missing logs an event whose referent is not indexed yet. The event is dropped.
func (c *call) missing(entity, key string) error {
	c.log.Warnf("%s %s not found, skipping %s (tx %s)", entity, key, c.ev.Name, c.txHash)
	MissingReferentInc(entity)
	return nil
}

type eventFunc func(c *call) error

// handlerSet maps event names to the functions applying them.
type handlerSet struct {
	kind   indexer.ContractKind
	log    *logger.Logger
	events map[string]eventFunc
}

func newHandlerSet(kind indexer.ContractKind, log *logger.Logger) *handlerSet {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &handlerSet{kind: kind, log: log, events: make(map[string]eventFunc)}
}

func (h *handlerSet) Kind() indexer.ContractKind {
	return h.kind
}

func (h *handlerSet) Events() []string {
	names := make([]string, 0, len(h.events))
	for name := range h.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *handlerSet) Handle(ctx context.Context, tx *store.Tx, ev *starknet.Event) error {
	fn, ok := h.events[ev.Name]
	if !ok {
		return fmt.Errorf("%w: %s has no handler for %q", ErrUnknownEvent, h.kind, ev.Name)
	}

	return fn(&call{
		ctx:      ctx,
		tx:       tx,
		ev:       ev,
		log:      h.log,
		contract: ev.ContractAddress.Hex(),
		txHash:   ev.TransactionHash.Hex(),
		ts:       ev.BlockTimestamp,
	})
}

// on registers fn for the event name, decoding its payload into P first.
// A payload that cannot be decoded is logged, counted and skipped.
func on[P any](h *handlerSet, name string, fn func(c *call, p *P) error) {
	h.events[name] = func(c *call) error {
		p := new(P)
		if err := c.ev.Decode(p); err != nil {
			c.log.Errorf("failed to decode %s %s payload (tx %s): %v", h.kind, name, c.txHash, err)
			DecodeErrorInc(string(h.kind), name)
			return nil
		}
		return fn(c, p)
	}
}

// zeroIfNil returns a non-nil copy of v.
func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(zeroIfNil(a), zeroIfNil(b))
}

func u64(f starknet.Felt) uint64 {
	v, _ := f.Uint64()
	return v
}

// resolveToken returns the metadata of token, or the defaults when no source is configured.
func resolveToken(c *call, src indexer.TokenSource, token string) tokens.Metadata {
	if src == nil {
		return tokens.DefaultMetadata()
	}
	return src.Get(c.ctx, token)
}
