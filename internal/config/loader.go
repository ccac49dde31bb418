package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper for env vars
	v.SetEnvPrefix("ICEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Determine config file path
	if configPath == "" {
		configPath = os.Getenv("ICEKEEPER_CONFIG")
	}
	if configPath == "" {
		// Try default locations
		defaultPaths := []string{"config.yaml", "config.yml", "/etc/icekeeper/config.yaml"}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	// Read config file if found
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}
	// If no file found, continue with defaults and env vars

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options. The trino
// and maintenance defaults match a local unauthenticated coordinator with
// the stock schedule table.
func setDefaults(v *viper.Viper) {
	v.SetDefault("trino.host", "localhost")
	v.SetDefault("trino.port", 8080)
	v.SetDefault("trino.user", "admin")
	v.SetDefault("trino.password", "")
	v.SetDefault("trino.catalog", "iceberg")
	v.SetDefault("trino.schema", "default")

	v.SetDefault("maintenance.schedule_table", "iceberg_maintenance_schedule")
	v.SetDefault("maintenance.workers", 5)

	// Empty cron means run one cycle and exit
	v.SetDefault("schedule.cron", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
