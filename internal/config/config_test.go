package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/nh-parity-go/internal/diff"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nhparity.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "fixtures", cfg.FixtureDir)
	assert.Equal(t, diff.Major, cfg.Threshold)
	assert.Equal(t, 30*time.Second, cfg.FixtureTimeout)
	assert.Equal(t, uint64(2), cfg.OracleRetries)
	assert.Empty(t, cfg.OraclePath)
	assert.False(t, cfg.GateEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NHP_THRESHOLD", "minor")
	t.Setenv("NHP_WORKERS", "4")
	t.Setenv("NHP_ORACLE", "/usr/local/bin/nhparity-worker")
	t.Setenv("NHP_ORACLE_ARGS", "--quiet --level 1")
	t.Setenv("NHP_GATE_MAX_DIVERGENT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, diff.Minor, cfg.Threshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"--quiet", "--level", "1"}, cfg.OracleArgs)
	assert.True(t, cfg.GateEnabled())
	assert.Equal(t, 0, cfg.Gate().MaxDivergent)
	assert.Equal(t, -1, cfg.Gate().MaxMajor)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad severity", "NHP_THRESHOLD", "catastrophic", "parse env:"},
		{"bad duration", "NHP_FIXTURE_TIMEOUT", "soon", "parse env:"},
		{"negative workers", "NHP_WORKERS", "-2", "workers must not be negative"},
		{"zero timeout", "NHP_FIXTURE_TIMEOUT", "0s", "fixture timeout must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}
