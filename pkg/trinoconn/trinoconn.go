// Package trinoconn opens database/sql connections to a Trino coordinator.
package trinoconn

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/trinodb/trino-go-client/trino" // registers the "trino" driver
)

// Config holds everything needed to reach a Trino coordinator.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string // empty means plain http; set switches to https with basic auth
	Catalog  string
	Schema   string

	// PingTimeout bounds the connectivity check in Open.
	PingTimeout time.Duration
}

// DefaultConfig returns the defaults for a local unauthenticated coordinator.
func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        8080,
		User:        "admin",
		Catalog:     "iceberg",
		Schema:      "default",
		PingTimeout: 5 * time.Second,
	}
}

// DSN renders the driver connection string, e.g.
// http://admin@localhost:8080?catalog=iceberg&schema=default
func (c Config) DSN() string {
	userinfo := url.User(c.User)
	scheme := "http"
	if c.Password != "" {
		userinfo = url.UserPassword(c.User, c.Password)
		scheme = "https"
	}

	u := url.URL{
		Scheme: scheme,
		User:   userinfo,
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		RawQuery: url.Values{
			"catalog": {c.Catalog},
			"schema":  {c.Schema},
		}.Encode(),
	}
	return u.String()
}

// Open opens a connection pool and verifies it with a bounded ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("trino", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open trino connection: %w", err)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trino ping failed: %w", err)
	}
	return db, nil
}

// Factory returns a function opening a fresh pool per call, so every
// maintenance task gets a connection of its own.
func Factory(cfg Config) func(ctx context.Context) (*sql.DB, error) {
	return func(ctx context.Context) (*sql.DB, error) {
		return Open(ctx, cfg)
	}
}
