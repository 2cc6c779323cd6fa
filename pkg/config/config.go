package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
)

// Contract types that can be configured as root contracts.
const (
	ContractTypeAmmFactory    = "amm_factory"
	ContractTypeFarmFactory   = "farm_factory"
	ContractTypeFaucetFactory = "faucet_factory"
	ContractTypeGameFactory   = "game_factory"
)

var validContractTypes = []string{
	ContractTypeAmmFactory,
	ContractTypeFarmFactory,
	ContractTypeFaucetFactory,
	ContractTypeGameFactory,
}

// Config represents the complete configuration for the indexer.
type Config struct {
	// RPC contains the Starknet node connection settings
	RPC RPCConfig `yaml:"rpc" json:"rpc" toml:"rpc"`

	// DB contains database configuration for the entity store
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Source contains the event polling settings
	Source SourceConfig `yaml:"source" json:"source" toml:"source"`

	// Contracts lists the root factory contracts. Child contracts are discovered from their events.
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Jobs contains the scheduled job settings
	Jobs JobsConfig `yaml:"jobs" json:"jobs" toml:"jobs"`

	// Scoring contains the agent progression scoring weights
	Scoring ScoringConfig `yaml:"scoring" json:"scoring" toml:"scoring"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// RPCConfig configures the Starknet JSON-RPC endpoint.
type RPCConfig struct {
	// URL is the Starknet JSON-RPC endpoint URL
	URL string `yaml:"url" json:"url" toml:"url"`

	// RequestTimeout bounds every single RPC call
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional RPC configuration fields.
func (r *RPCConfig) ApplyDefaults() {
	if r.RequestTimeout.Duration == 0 {
		r.RequestTimeout = common.NewDuration(10 * time.Second) //nolint:mnd
	}
	if r.Retry == nil {
		r.Retry = &RetryConfig{}
	}
	r.Retry.ApplyDefaults()
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks the database settings.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	return nil
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("maintenance.wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// SourceConfig configures how contract events are pulled from the node.
type SourceConfig struct {
	// StartBlock is the first block to index
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// ChunkSize is the block range per starknet_getEvents window
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// PageSize is the chunk_size parameter sent to starknet_getEvents (events per page)
	PageSize int `yaml:"page_size" json:"page_size" toml:"page_size"`

	// PollInterval is how long to wait at the chain head before polling again
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// Finality is either "latest" or "accepted_on_l1"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`
}

// ApplyDefaults sets default values for optional source configuration fields.
func (s *SourceConfig) ApplyDefaults() {
	if s.ChunkSize == 0 {
		s.ChunkSize = 500
	}
	if s.PageSize == 0 {
		s.PageSize = 1000
	}
	if s.PollInterval.Duration == 0 {
		s.PollInterval = common.NewDuration(10 * time.Second) //nolint:mnd
	}
	if s.Finality == "" {
		s.Finality = "latest"
	}
}

// ContractConfig represents a root contract to index.
type ContractConfig struct {
	// Name is a unique label for the contract
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address (0x-prefixed hex)
	Address string `yaml:"address" json:"address" toml:"address"`

	// Type is one of amm_factory, farm_factory, faucet_factory, game_factory
	Type string `yaml:"type" json:"type" toml:"type"`
}

// JobsConfig configures the scheduled recalculation jobs.
type JobsConfig struct {
	// WindowInterval is how often stake window activation is recomputed
	WindowInterval common.Duration `yaml:"window_interval" json:"window_interval" toml:"window_interval"`

	// ScoringInterval is how often agent progression scores are recomputed
	ScoringInterval common.Duration `yaml:"scoring_interval" json:"scoring_interval" toml:"scoring_interval"`

	// ScoringConcurrency caps the number of agents scored in parallel
	ScoringConcurrency int `yaml:"scoring_concurrency" json:"scoring_concurrency" toml:"scoring_concurrency"`

	// DisableScoring turns the scoring job off
	DisableScoring bool `yaml:"disable_scoring" json:"disable_scoring" toml:"disable_scoring"`
}

// ApplyDefaults sets default values for optional job configuration fields.
func (j *JobsConfig) ApplyDefaults() {
	if j.WindowInterval.Duration == 0 {
		j.WindowInterval = common.NewDuration(time.Minute)
	}
	if j.ScoringInterval.Duration == 0 {
		j.ScoringInterval = common.NewDuration(5 * time.Minute) //nolint:mnd
	}
	if j.ScoringConcurrency == 0 {
		j.ScoringConcurrency = 8
	}
}

// ScoringConfig configures the weights used by the agent progression score.
type ScoringConfig struct {
	// TokenWeights maps a token symbol to its weight. Merged over the built-in table.
	TokenWeights map[string]float64 `yaml:"token_weights,omitempty" json:"token_weights,omitempty" toml:"token_weights,omitempty"` //nolint:lll

	// PoolWeights maps a "SYMBOL0/SYMBOL1" pool key to its weight. Merged over the built-in table.
	PoolWeights map[string]float64 `yaml:"pool_weights,omitempty" json:"pool_weights,omitempty" toml:"pool_weights,omitempty"` //nolint:lll

	// DefaultTokenWeight applies to symbols missing from TokenWeights
	DefaultTokenWeight float64 `yaml:"default_token_weight" json:"default_token_weight" toml:"default_token_weight"`

	// DefaultPoolWeight applies to pools missing from PoolWeights
	DefaultPoolWeight float64 `yaml:"default_pool_weight" json:"default_pool_weight" toml:"default_pool_weight"`

	// DefaultLPDecimals is used when LP token metadata cannot be resolved
	DefaultLPDecimals uint8 `yaml:"default_lp_decimals" json:"default_lp_decimals" toml:"default_lp_decimals"`
}

// DefaultTokenWeights is the built-in resource token weight table.
var DefaultTokenWeights = map[string]float64{
	"He3": 100,
	"GPH": 50,
	"Y":   50,
	"GRP": 25,
	"Dy":  25,
	"wD":  5,
	"C":   5,
	"Nd":  5,
}

// DefaultPoolWeights is the built-in LP pool weight table.
var DefaultPoolWeights = map[string]float64{
	"He3/wD":  50,
	"He3/GPH": 45,
	"GPH/Y":   40,
	"GRP/Dy":  30,
	"wD/C":    20,
	"C/Nd":    20,
}

// ApplyDefaults merges the built-in weight tables and fills default weights.
func (s *ScoringConfig) ApplyDefaults() {
	s.TokenWeights = mergeWeights(DefaultTokenWeights, s.TokenWeights)
	s.PoolWeights = mergeWeights(DefaultPoolWeights, s.PoolWeights)

	if s.DefaultTokenWeight == 0 {
		s.DefaultTokenWeight = 1
	}
	if s.DefaultPoolWeight == 0 {
		s.DefaultPoolWeight = 20
	}
	if s.DefaultLPDecimals == 0 {
		s.DefaultLPDecimals = 18
	}
}

func mergeWeights(base, override map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - indexer: process bootstrap
	//   - event-source: starknet_getEvents polling
	//   - sync-manager: cursor persistence
	//   - dispatcher: event routing
	//   - registrar: dynamic child contract registration
	//   - handlers: event projection
	//   - token-resolver: token metadata lookups
	//   - rpc: Starknet JSON-RPC client
	//   - scheduler, window-job, scoring-job: scheduled jobs
	//   - maintenance: Database maintenance
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.RPC.ApplyDefaults()
	c.DB.ApplyDefaults()
	c.Source.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	c.Scoring.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}

	if err := c.DB.Validate(); err != nil {
		return err
	}

	if c.Source.Finality != "latest" && c.Source.Finality != "accepted_on_l1" {
		return fmt.Errorf("source.finality must be one of: 'latest', 'accepted_on_l1'")
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.Jobs.ScoringConcurrency < 0 {
		return fmt.Errorf("jobs.scoring_concurrency must not be negative")
	}

	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	names := make(map[string]bool)
	for i, contract := range c.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("contracts[%d]: name is required", i)
		}

		if names[contract.Name] {
			return fmt.Errorf("contracts[%d]: duplicate contract name '%s'", i, contract.Name)
		}
		names[contract.Name] = true

		if !strings.HasPrefix(contract.Address, "0x") {
			return fmt.Errorf("contracts[%d] (%s): address must be 0x-prefixed hex", i, contract.Name)
		}

		if !slices.Contains(validContractTypes, contract.Type) {
			return fmt.Errorf("contracts[%d] (%s): type must be one of: %s",
				i, contract.Name, strings.Join(validContractTypes, ", "))
		}
	}

	return nil
}
