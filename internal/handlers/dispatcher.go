package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

// Dispatcher routes events to the handler set of the contract that emitted them.
type Dispatcher struct {
	mu sync.RWMutex

	// routes maps a registered address to its contract kind
	routes map[string]indexer.ContractKind

	// handlers holds one handler set per contract kind
	handlers map[indexer.ContractKind]indexer.Handler

	// selectors maps kind -> selector hex -> event name
	selectors map[indexer.ContractKind]map[string]string

	// events maps kind -> handled event names
	events map[indexer.ContractKind]map[string]struct{}

	store     *store.Store
	registrar *Registrar
	log       *logger.Logger
}

// NewDispatcher builds the handler set of every contract kind.
func NewDispatcher(st *store.Store, tokens indexer.TokenSource, log *logger.Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes:    make(map[string]indexer.ContractKind),
		handlers:  make(map[indexer.ContractKind]indexer.Handler),
		selectors: make(map[indexer.ContractKind]map[string]string),
		events:    make(map[indexer.ContractKind]map[string]struct{}),
		store:     st,
		registrar: NewRegistrar(log.WithComponent(common.ComponentRegistrar)),
		log:       log.WithComponent(common.ComponentDispatcher),
	}

	deps := indexer.Deps{
		Registrar: d.registrar,
		Tokens:    tokens,
		Log:       log.WithComponent(common.ComponentHandlers),
	}

	for _, kind := range indexer.AllKinds {
		h, err := indexer.Create(kind, deps)
		if err != nil {
			return nil, err
		}

		names := make(map[string]string)
		known := make(map[string]struct{})
		for _, event := range h.Events() {
			names[starknet.Selector(event).Hex()] = event
			known[event] = struct{}{}
		}

		d.handlers[kind] = h
		d.selectors[kind] = names
		d.events[kind] = known
	}

	d.registrar.Subscribe(d)

	return d, nil
}

// Registrar returns the registrar used by the factory handlers.
func (d *Dispatcher) Registrar() *Registrar {
	return d.registrar
}

// Load persists the root contracts and routes every registered contract.
func (d *Dispatcher) Load(ctx context.Context, roots []config.ContractConfig) error {
	var contracts []*store.RegisteredContract

	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, root := range roots {
			kind, err := indexer.ParseKind(root.Type)
			if err != nil {
				return fmt.Errorf("contract %s: %w", root.Name, err)
			}

			addr, err := starknet.NormalizeAddress(root.Address)
			if err != nil {
				return fmt.Errorf("contract %s: %w", root.Name, err)
			}

			if _, err := tx.InsertRegisteredContract(&store.RegisteredContract{
				Address:   addr,
				Name:      root.Name,
				Kind:      string(kind),
				IndexName: root.Name + "_events",
				Template:  kind.Template(),
			}); err != nil {
				return fmt.Errorf("failed to persist root contract %s: %w", root.Name, err)
			}
		}

		var err error
		contracts, err = tx.ListRegisteredContracts()
		return err
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range contracts {
		kind, err := indexer.ParseKind(c.Kind)
		if err != nil {
			d.log.Warnf("ignoring registered contract %s: %v", c.Name, err)
			continue
		}
		d.routes[c.Address] = kind
		metrics.RegisteredContractsInc(c.Kind)
	}

	d.log.Infow("routing table loaded", "contracts", len(d.routes), "roots", len(roots))

	return nil
}

// ContractRegistered routes the events of a newly registered child.
func (d *Dispatcher) ContractRegistered(reg Registration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[reg.Address] = reg.Kind
}

// Addresses returns the routed addresses in sorted order.
func (d *Dispatcher) Addresses() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addrs := make([]string, 0, len(d.routes))
	for addr := range d.routes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Route returns the kind registered for address.
func (d *Dispatcher) Route(address string) (indexer.ContractKind, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kind, ok := d.routes[address]
	return kind, ok
}

// HandleEvents applies events one at a time in the given order. Each event runs in its own
// transaction. The first storage error stops the batch and is returned.
func (d *Dispatcher) HandleEvents(ctx context.Context, events []*starknet.Event) error {
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.handleEvent(ctx, ev); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev *starknet.Event) error {
	kind, ok := d.Route(ev.ContractAddress.Hex())
	if !ok {
		metrics.EventSkippedInc("unknown_contract")
		return nil
	}

	if ev.Name == "" {
		ev.Name = d.selectors[kind][ev.Selector().Hex()]
	}
	if _, ok := d.events[kind][ev.Name]; !ok {
		d.log.Debugf("skipping unknown %s event %q (selector %s)", kind, ev.Name, ev.Selector().Hex())
		metrics.EventSkippedInc("unknown_event")
		return nil
	}
	h := d.handlers[kind]

	start := time.Now()
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		tx.At(ev.BlockTimestamp)
		return h.Handle(ctx, tx, ev)
	})
	if err != nil {
		d.registrar.Discard()
		metrics.ErrorsInc(common.ComponentDispatcher, "error")
		return fmt.Errorf("failed to handle %s %s at block %d (tx %s): %w",
			kind, ev.Name, ev.BlockNumber, ev.TransactionHash.Hex(), err)
	}

	d.registrar.Commit()

	metrics.EventDispatchedInc(string(kind), ev.Name)
	metrics.HandlerDurationLog(string(kind), ev.Name, time.Since(start))
	d.log.Debugw("event applied", "kind", kind, "event", ev.Name, "block", ev.BlockNumber,
		"contract", ev.ContractAddress.Hex())

	return nil
}
