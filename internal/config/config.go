package config

// Config represents the complete application configuration
type Config struct {
	Trino       TrinoConfig       `mapstructure:"trino"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Log         LogConfig         `mapstructure:"log"`
}

// TrinoConfig identifies the coordinator and catalog/schema to maintain
type TrinoConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Catalog  string `mapstructure:"catalog"`
	Schema   string `mapstructure:"schema"`
}

// MaintenanceConfig controls the cycle itself
type MaintenanceConfig struct {
	// ScheduleTable is the name of the table holding per-table policies.
	ScheduleTable string `mapstructure:"schedule_table"`
	// Workers is the maximum number of tables maintained concurrently.
	Workers int `mapstructure:"workers"`
}

// ScheduleConfig controls daemon mode. An empty cron spec means run one
// cycle and exit.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
