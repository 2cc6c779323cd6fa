package handlers

import (
	"fmt"
	"sync"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

// ParamContract is the RegisterIndex parameter naming the registered contract.
const ParamContract = "contract"

// Registration is a contract that became routable.
type Registration struct {
	Name    string
	Kind    indexer.ContractKind
	Address string
	// Block is the block the contract was created in. Its events are fetched from there.
	Block uint64
}

// Subscriber is notified of every committed registration.
type Subscriber interface {
	ContractRegistered(reg Registration)
}

// Registrar persists factory children and announces them once the transaction that
// created them has committed. It implements indexer.Registrar.
type Registrar struct {
	mu          sync.Mutex
	pending     []Registration
	subscribers []Subscriber

	log *logger.Logger
}

var _ indexer.Registrar = (*Registrar)(nil)

func NewRegistrar(log *logger.Logger) *Registrar {
	return &Registrar{log: log}
}

// Subscribe adds s to the subscribers notified on Commit.
func (r *Registrar) Subscribe(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = append(r.subscribers, s)
}

// RegisterContract stores the contract in tx and queues the announcement.
// A known address is a no-op.
func (r *Registrar) RegisterContract(
	tx *store.Tx, name string, kind indexer.ContractKind, address string, block uint64,
) error {
	if !kind.Valid() {
		return fmt.Errorf("cannot register %s: unknown contract kind %q", name, kind)
	}

	addr, err := starknet.NormalizeAddress(address)
	if err != nil {
		return fmt.Errorf("cannot register %s: %w", name, err)
	}

	created, err := tx.InsertRegisteredContract(&store.RegisteredContract{
		Address:        addr,
		Name:           name,
		Kind:           string(kind),
		CreatedAtBlock: block,
	})
	if err != nil {
		return fmt.Errorf("failed to register contract %s: %w", name, err)
	}
	if !created {
		r.log.Debugf("contract %s at %s already registered", name, addr)
		return nil
	}

	r.mu.Lock()
	r.pending = append(r.pending, Registration{Name: name, Kind: kind, Address: addr, Block: block})
	r.mu.Unlock()

	return nil
}

// RegisterIndex attaches the index name and handler template to the contract named by
// params[ParamContract].
func (r *Registrar) RegisterIndex(tx *store.Tx, name, template string, params map[string]string) error {
	contract, ok := params[ParamContract]
	if !ok {
		return fmt.Errorf("index %s: missing %q parameter", name, ParamContract)
	}

	c, err := tx.GetRegisteredContractByName(contract)
	if err != nil {
		return fmt.Errorf("index %s: failed to find contract %s: %w", name, contract, err)
	}

	if c.IndexName == name && c.Template == template {
		return nil
	}

	return tx.SetContractIndex(c.Address, name, template)
}

// Commit announces the registrations queued since the last Commit or Discard.
func (r *Registrar) Commit() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	subscribers := append([]Subscriber(nil), r.subscribers...)
	r.mu.Unlock()

	for _, reg := range pending {
		metrics.RegisteredContractsInc(string(reg.Kind))
		r.log.Infow("registered contract",
			"name", reg.Name, "kind", reg.Kind, "address", reg.Address, "block", reg.Block)

		for _, s := range subscribers {
			s.ContractRegistered(reg)
		}
	}
}

// Discard drops the queued registrations of a rolled back transaction.
func (r *Registrar) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = nil
}

// registerChild registers a factory child and its event index.
func registerChild(c *call, reg indexer.Registrar, kind indexer.ContractKind, address string) error {
	name := indexer.ChildName(kind, address)
	if err := reg.RegisterContract(c.tx, name, kind, address, c.ev.BlockNumber); err != nil {
		return err
	}

	return reg.RegisterIndex(c.tx, name+"_events", kind.Template(), map[string]string{ParamContract: name})
}
