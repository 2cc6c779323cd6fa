package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML("../../config.example.yaml")
	require.NoError(t, err)

	validateConfig(t, cfg, "YAML")
	require.Len(t, cfg.Contracts, 4)
	require.NotNil(t, cfg.Maintenance)
	require.Equal(t, "debug", cfg.Logging.GetComponentLevel("handlers"))
	require.Equal(t, "info", cfg.Logging.GetComponentLevel("rpc"))
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON("../../config.example.json")
	require.NoError(t, err)

	validateConfig(t, cfg, "JSON")
}

func TestLoadFromTOML(t *testing.T) {
	cfg, err := LoadFromTOML("../../config.example.toml")
	require.NoError(t, err)

	validateConfig(t, cfg, "TOML")
	require.Equal(t, "accepted_on_l1", cfg.Source.Finality)
	require.Equal(t, 4, cfg.Jobs.ScoringConcurrency)
}

func TestLoadFromFile(t *testing.T) {
	for _, path := range []string{
		"../../config.example.yaml",
		"../../config.example.json",
		"../../config.example.toml",
	} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			validateConfig(t, cfg, path)
		})
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.ErrorContains(t, err, "unsupported config file format")
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv(EnvRPCURL, "http://localhost:5050")
	t.Setenv(EnvDBPath, "/tmp/override.sqlite")

	cfg, err := LoadFromFile("../../config.example.yaml")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5050", cfg.RPC.URL)
	require.Equal(t, "/tmp/override.sqlite", cfg.DB.Path)
}

func TestLoadFromYAML_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc:\n  url: \"\"\ndb:\n  path: x.db\n"), 0o600))

	_, err := LoadFromYAML(path)
	require.ErrorContains(t, err, "rpc.url is required")
}

// validateConfig checks that the loaded config has expected values
func validateConfig(t *testing.T, cfg *config.Config, format string) {
	t.Helper()

	require.NotEmpty(t, cfg.RPC.URL, "[%s] rpc.url should not be empty", format)
	require.NotZero(t, cfg.RPC.RequestTimeout.Duration, "[%s] rpc.request_timeout should be set", format)
	require.NotNil(t, cfg.RPC.Retry, "[%s] rpc.retry should have defaults", format)

	require.NotZero(t, cfg.Source.ChunkSize, "[%s] source.chunk_size should not be zero", format)
	require.NotZero(t, cfg.Source.PageSize, "[%s] source.page_size should not be zero", format)
	require.NotEmpty(t, cfg.Source.Finality, "[%s] finality should have default value applied", format)

	require.NotEmpty(t, cfg.DB.Path, "[%s] db.path should not be empty", format)
	require.NotEmpty(t, cfg.DB.JournalMode, "[%s] db.journal_mode should have default value", format)
	require.NotEmpty(t, cfg.DB.Synchronous, "[%s] db.synchronous should have default value", format)

	require.NotZero(t, cfg.Jobs.WindowInterval.Duration, "[%s] jobs.window_interval should be set", format)
	require.NotZero(t, cfg.Jobs.ScoringInterval.Duration, "[%s] jobs.scoring_interval should be set", format)

	require.NotEmpty(t, cfg.Contracts, "[%s] there should be at least one contract configured", format)
	for i, contract := range cfg.Contracts {
		require.NotEmpty(t, contract.Name, "[%s] contract[%d].name should not be empty", format, i)
		require.NotEmpty(t, contract.Address, "[%s] contract[%d].address should not be empty", format, i)
		require.NotEmpty(t, contract.Type, "[%s] contract[%d].type should not be empty", format, i)
	}

	require.NotNil(t, cfg.Logging, "[%s] logging should have defaults", format)
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		RPC: config.RPCConfig{URL: "https://test.com"},
		DB:  config.DatabaseConfig{Path: "./test.db"},
		Contracts: []config.ContractConfig{
			{Name: "amm", Address: "0x1234", Type: config.ContractTypeAmmFactory},
		},
		Scoring: config.ScoringConfig{
			TokenWeights: map[string]float64{"He3": 7, "NEW": 3},
		},
	}

	cfg.ApplyDefaults()

	require.Equal(t, uint64(500), cfg.Source.ChunkSize)
	require.Equal(t, 1000, cfg.Source.PageSize)
	require.Equal(t, 10*time.Second, cfg.Source.PollInterval.Duration)
	require.Equal(t, "latest", cfg.Source.Finality)

	require.Equal(t, 10*time.Second, cfg.RPC.RequestTimeout.Duration)
	require.Equal(t, 5, cfg.RPC.Retry.MaxAttempts)

	require.Equal(t, "WAL", cfg.DB.JournalMode)
	require.Equal(t, "NORMAL", cfg.DB.Synchronous)
	require.Equal(t, 5000, cfg.DB.BusyTimeout)
	require.Equal(t, 25, cfg.DB.MaxOpenConnections)

	require.Equal(t, time.Minute, cfg.Jobs.WindowInterval.Duration)
	require.Equal(t, 5*time.Minute, cfg.Jobs.ScoringInterval.Duration)
	require.Equal(t, 8, cfg.Jobs.ScoringConcurrency)

	require.InDelta(t, 7.0, cfg.Scoring.TokenWeights["He3"], 0)
	require.InDelta(t, 3.0, cfg.Scoring.TokenWeights["NEW"], 0)
	require.InDelta(t, 50.0, cfg.Scoring.TokenWeights["GPH"], 0)
	require.InDelta(t, 45.0, cfg.Scoring.PoolWeights["He3/GPH"], 0)
	require.InDelta(t, 1.0, cfg.Scoring.DefaultTokenWeight, 0)
	require.InDelta(t, 20.0, cfg.Scoring.DefaultPoolWeight, 0)
	require.Equal(t, uint8(18), cfg.Scoring.DefaultLPDecimals)

	require.NotNil(t, cfg.Logging)
	require.Equal(t, "info", cfg.Logging.GetDefaultLevel())

	// built-in tables stay untouched
	require.InDelta(t, 100.0, config.DefaultTokenWeights["He3"], 0)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			RPC: config.RPCConfig{URL: "https://test.com"},
			DB:  config.DatabaseConfig{Path: "./test.db"},
			Contracts: []config.ContractConfig{
				{Name: "games", Address: "0x1234", Type: config.ContractTypeGameFactory},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*config.Config) {},
		},
		{
			name:    "missing rpc url",
			mutate:  func(c *config.Config) { c.RPC.URL = "" },
			wantErr: "rpc.url is required",
		},
		{
			name:    "invalid finality",
			mutate:  func(c *config.Config) { c.Source.Finality = "finalized" },
			wantErr: "source.finality",
		},
		{
			name:    "no contracts",
			mutate:  func(c *config.Config) { c.Contracts = nil },
			wantErr: "at least one contract",
		},
		{
			name: "duplicate contract name",
			mutate: func(c *config.Config) {
				c.Contracts = append(c.Contracts, config.ContractConfig{
					Name: "games", Address: "0x99", Type: config.ContractTypeFaucetFactory,
				})
			},
			wantErr: "duplicate contract name",
		},
		{
			name:    "unknown contract type",
			mutate:  func(c *config.Config) { c.Contracts[0].Type = "erc20" },
			wantErr: "type must be one of",
		},
		{
			name:    "address without prefix",
			mutate:  func(c *config.Config) { c.Contracts[0].Address = "1234" },
			wantErr: "0x-prefixed",
		},
		{
			name: "unknown logging component",
			mutate: func(c *config.Config) {
				c.Logging = &config.LoggingConfig{ComponentLevels: map[string]string{"downloader": "debug"}}
			},
			wantErr: "unknown component",
		},
		{
			name: "metrics path without slash",
			mutate: func(c *config.Config) {
				c.Metrics = &config.MetricsConfig{Enabled: true, Path: "metrics"}
			},
			wantErr: "path must start with '/'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			cfg.ApplyDefaults()

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
