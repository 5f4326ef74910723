package config

import (
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("PGSQL_URL", "postgres://localhost/ledgerflow")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/ledgerflow", cfg.DatabaseURL)
	assert.Equal(t, domain.RemittanceKeyCreditSystem, cfg.RemittanceKeyScheme)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.IsProduction)
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Reset()
	t.Setenv("PGSQL_URL", "postgres://db/prod")
	t.Setenv("REMITTANCE_KEY_SCHEME", "LINE")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, domain.RemittanceKeyLine, cfg.RemittanceKeyScheme)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, int32(4), cfg.DBMaxConns)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_InvalidScheme(t *testing.T) {
	viper.Reset()
	t.Setenv("REMITTANCE_KEY_SCHEME", "both")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ProductionRequiresDatabase(t *testing.T) {
	viper.Reset()
	t.Setenv("IS_PRODUCTION", "true")
	t.Setenv("PGSQL_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_BadIntervalFallsBack(t *testing.T) {
	viper.Reset()
	t.Setenv("RECONCILE_INTERVAL", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.ReconcileInterval)
}
