package indexer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
)

// Factory builds the handler set of one contract kind.
type Factory func(deps Deps) Handler

var (
	registry = make(map[ContractKind]Factory)
	mu       sync.RWMutex
)

// Register registers a handler factory for kind.
// This is typically called in init() functions of handler packages.
func Register(kind ContractKind, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[kind]; exists {
		logger.GetDefaultLogger().Infof("handler for kind %s already in handler registry. "+
			"It will be overwritten.", kind)
	}

	registry[kind] = factory
}

// GetFactory returns the factory for kind, nil if none is registered.
func GetFactory(kind ContractKind) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[kind]
}

// ListRegistered returns the registered kinds in sorted order.
func ListRegistered() []ContractKind {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]ContractKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Create builds the handler set of kind using the registered factory.
func Create(kind ContractKind, deps Deps) (Handler, error) {
	factory := GetFactory(kind)
	if factory == nil {
		return nil, fmt.Errorf("unknown contract kind: %s (registered kinds: %v)", kind, ListRegistered())
	}

	return factory(deps), nil
}
