package indexer

import (
	"context"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
)

// Handler applies the events of one contract kind to the entity store.
type Handler interface {
	// Kind returns the contract kind this handler set serves.
	Kind() ContractKind

	// Events returns the event names the handler set understands.
	Events() []string

	// Handle applies ev inside tx. A missing referent is logged and returns nil;
	// any returned error aborts the batch.
	Handle(ctx context.Context, tx *store.Tx, ev *starknet.Event) error
}

// Registrar subscribes child contracts created by factories.
// Registrations made inside a transaction take effect when that transaction commits.
type Registrar interface {
	// RegisterContract persists address under name and routes its events to kind.
	// Registering a known address is a no-op.
	RegisterContract(tx *store.Tx, name string, kind ContractKind, address string, block uint64) error

	// RegisterIndex records the index name and handler template of a registered contract.
	RegisterIndex(tx *store.Tx, name, template string, params map[string]string) error
}

// TokenSource resolves token metadata.
type TokenSource interface {
	Get(ctx context.Context, token string) tokens.Metadata
}

// Deps are the collaborators handed to handler factories.
type Deps struct {
	Registrar Registrar
	Tokens    TokenSource
	Log       *logger.Logger
}
