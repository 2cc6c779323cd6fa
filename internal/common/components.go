package common

const (
	ComponentIndexer       = "indexer"
	ComponentEventSource   = "event-source"
	ComponentSyncManager   = "sync-manager"
	ComponentDispatcher    = "dispatcher"
	ComponentRegistrar     = "registrar"
	ComponentHandlers      = "handlers"
	ComponentTokenResolver = "token-resolver"
	ComponentRPC           = "rpc"
	ComponentScheduler     = "scheduler"
	ComponentWindowJob     = "window-job"
	ComponentScoringJob    = "scoring-job"
	ComponentMaintenance   = "maintenance"
)

var AllComponents = map[string]struct{}{
	ComponentIndexer:       {},
	ComponentEventSource:   {},
	ComponentSyncManager:   {},
	ComponentDispatcher:    {},
	ComponentRegistrar:     {},
	ComponentHandlers:      {},
	ComponentTokenResolver: {},
	ComponentRPC:           {},
	ComponentScheduler:     {},
	ComponentWindowJob:     {},
	ComponentScoringJob:    {},
	ComponentMaintenance:   {},
}
