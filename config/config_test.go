package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("pacsindex")
	require.NoError(t, err)
	assert.Equal(t, "pacsindex", cfg.Service.Name)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 10*time.Second, cfg.Database.FlushSleep)
	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, 8081, cfg.Diagnostics.Port)
}

func TestValidateRejectsEmptyPath(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "", FlushSleep: time.Second}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveFlushSleep(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: ":memory:", FlushSleep: 0}}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDiagnosticsPort(t *testing.T) {
	cfg := &Config{
		Database:    DatabaseConfig{Path: ":memory:", FlushSleep: time.Second},
		Diagnostics: DiagnosticsConfig{Enabled: true, Port: 0},
	}
	assert.Error(t, cfg.Validate())
}

func TestGetEnvDurationDefaultsOnUnparseable(t *testing.T) {
	t.Setenv("FLUSH_SLEEP_SECONDS", "not-a-number")
	cfg, err := Load("pacsindex")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Database.FlushSleep)
}

func TestGetEnvDurationUsesProvidedSeconds(t *testing.T) {
	t.Setenv("FLUSH_SLEEP_SECONDS", "45")
	cfg, err := Load("pacsindex")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Database.FlushSleep)
}
