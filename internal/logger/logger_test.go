package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for level := range ValidLogLevels {
		for _, dev := range []bool{false, true} {
			l, err := NewLogger(level, dev)
			require.NoError(t, err)
			require.Equal(t, level, l.GetLevel())
			require.Empty(t, l.GetComponent())
		}
	}

	l, err := NewLogger("verbose", false)
	require.Error(t, err)
	require.Nil(t, l)
}

// observed returns a logger writing to an in-memory core at level.
func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(level)
	core, logs := observer.New(atomicLevel)

	return &Logger{SugaredLogger: zap.New(core).Sugar(), atomicLevel: atomicLevel}, logs
}

func TestLogger_ComponentField(t *testing.T) {
	root, logs := observed(zapcore.InfoLevel)

	root.WithComponent("scoring-job").Infow("agent scores updated", "scored", 3)
	root.WithComponent("dispatcher").Debug("dropped below level")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "agent scores updated", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "scoring-job", fields[componentKey])
	require.Equal(t, int64(3), fields["scored"])
}

func TestLogger_SharedLevel(t *testing.T) {
	root, logs := observed(zapcore.WarnLevel)
	source := root.WithComponent("event-source")
	window := root.WithComponent("window-job")

	source.Info("chunk processed")
	require.Zero(t, logs.Len())

	require.NoError(t, source.SetLevel("debug"))
	require.Equal(t, "debug", root.GetLevel())
	require.Equal(t, "debug", window.GetLevel())

	window.Debug("stake windows updated")
	require.Equal(t, 1, logs.Len())

	require.Error(t, root.SetLevel("loud"))
	require.Equal(t, "debug", root.GetLevel())
}

func TestNewComponentLogger(t *testing.T) {
	l := NewComponentLogger("event-source", "warn", false)
	require.Equal(t, "event-source", l.GetComponent())
	require.Equal(t, "warn", l.GetLevel())

	require.Panics(t, func() { NewComponentLogger("rpc", "loud", false) })
}

type staticLoggingConfig struct {
	def        string
	dev        bool
	components map[string]string
}

func (c staticLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := c.components[component]; ok {
		return level
	}
	return c.def
}

func (c staticLoggingConfig) GetDefaultLevel() string { return c.def }
func (c staticLoggingConfig) IsDevelopment() bool     { return c.dev }

func TestNewComponentLoggerFromConfig(t *testing.T) {
	cfg := staticLoggingConfig{def: "warn", components: map[string]string{"handlers": "debug"}}

	tests := []struct {
		component string
		cfg       LoggingConfig
		want      string
	}{
		{component: "handlers", cfg: cfg, want: "debug"},
		{component: "scheduler", cfg: cfg, want: "warn"},
		{component: "rpc", cfg: staticLoggingConfig{def: "error", dev: true}, want: "error"},
		{component: "maintenance", cfg: nil, want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.component, func(t *testing.T) {
			l := NewComponentLoggerFromConfig(tt.component, tt.cfg)
			require.Equal(t, tt.component, l.GetComponent())
			require.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Errorw("discarded", "error", "boom")
	require.Equal(t, "fatal", l.GetLevel())
}

func TestDefaultLogger(t *testing.T) {
	custom := NewNopLogger().WithComponent("indexer")
	SetDefaultLogger(custom)
	require.Same(t, custom, GetDefaultLogger())
}
