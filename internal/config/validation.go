package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// Schedule-table names are interpolated into SQL, so only bare identifiers
// are accepted.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the configuration for errors and inconsistencies
func (c *Config) Validate() error {
	if err := c.validateTrino(); err != nil {
		return fmt.Errorf("trino config: %w", err)
	}
	if err := c.validateMaintenance(); err != nil {
		return fmt.Errorf("maintenance config: %w", err)
	}
	if err := c.validateSchedule(); err != nil {
		return fmt.Errorf("schedule config: %w", err)
	}
	if err := c.validateLog(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func (c *Config) validateTrino() error {
	if c.Trino.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Trino.Port < 1 || c.Trino.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Trino.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Trino.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if c.Trino.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if !identifierPattern.MatchString(c.Maintenance.ScheduleTable) {
		return fmt.Errorf("schedule_table %q is not a valid identifier", c.Maintenance.ScheduleTable)
	}
	if c.Maintenance.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Cron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("cron spec %q: %w", c.Schedule.Cron, err)
	}
	return nil
}

func (c *Config) validateLog() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(c.Log.Level)
	valid := false
	for _, l := range validLogLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("level must be one of: %s", strings.Join(validLogLevels, ", "))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("format must be json or text")
	}
	return nil
}
