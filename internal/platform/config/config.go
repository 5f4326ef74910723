package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	IsProduction      bool
	EnableDBCheck     bool
	RunMigrations     bool
	DBMaxConns        int32
	LogLevel          string
	ReconcileInterval time.Duration

	// RemittanceKeyScheme picks the discriminator that, together with the
	// TransactionID, makes a remittance unique. One scheme per deployment.
	RemittanceKeyScheme domain.RemittanceKeyScheme
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", true)
	viper.SetDefault("RUN_MIGRATIONS", true)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("RECONCILE_INTERVAL", "5m")
	viper.SetDefault("REMITTANCE_KEY_SCHEME", string(domain.RemittanceKeyCreditSystem))

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RunMigrations = viper.GetBool("RUN_MIGRATIONS")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	maxConns := viper.GetInt("DB_MAX_CONNS")
	if maxConns <= 0 {
		maxConns = 10
		log.Printf("Warning: Invalid value for DB_MAX_CONNS. Defaulting to %d.\n", maxConns)
	}
	cfg.DBMaxConns = int32(maxConns)

	intervalStr := viper.GetString("RECONCILE_INTERVAL")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		interval = 5 * time.Minute
		if intervalStr != "" {
			log.Printf("Warning: Invalid value for RECONCILE_INTERVAL ('%s'). Defaulting to %s.\n", intervalStr, interval.String())
		}
	}
	cfg.ReconcileInterval = interval

	scheme := domain.RemittanceKeyScheme(strings.ToLower(viper.GetString("REMITTANCE_KEY_SCHEME")))
	if !scheme.IsValid() {
		return nil, fmt.Errorf("invalid REMITTANCE_KEY_SCHEME %q: expected %q or %q",
			scheme, domain.RemittanceKeyCreditSystem, domain.RemittanceKeyLine)
	}
	cfg.RemittanceKeyScheme = scheme

	if cfg.IsProduction && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PGSQL_URL is required in production")
	}

	return cfg, nil
}
