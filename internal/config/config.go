// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package config defines the service configuration and loads it from
// layered sources with a clear precedence: environment variables override
// an optional YAML file, which overrides built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the Auditlog service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"` // Read/write timeout for HTTP requests

	// CORSOrigins lists allowed CORS origins ("*" allows any).
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the number of requests allowed per IP per RateLimitWindow.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// LoginRateLimitReqs throttles POST /login separately and tighter,
	// since each attempt costs a bcrypt comparison.
	LoginRateLimitReqs int `koanf:"login_rate_limit_reqs"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenLifetime is how long an issued token stays valid.
	TokenLifetime time.Duration `koanf:"token_lifetime"`

	// Users maps usernames to passwords, either plaintext or bcrypt
	// hashes. Intended for the config file; the USERS environment
	// variable accepts "user1:pass1,user2:pass2".
	Users map[string]string `koanf:"users"`
}

// NATSConfig holds message queue settings for the event pipeline.
type NATSConfig struct {
	// URL of the NATS server. Ignored when EmbeddedServer is true.
	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server with JetStream,
	// which keeps single-node deployments to one binary.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// StreamName and Subject identify the JetStream stream carrying events.
	StreamName string `koanf:"stream_name"`
	Subject    string `koanf:"subject"`

	// DurableName is the durable consumer name for the store worker.
	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent store workers.
	SubscribersCount int `koanf:"subscribers_count"`

	// DedupWindow is the JetStream duplicate detection window applied to
	// the Nats-Msg-Id header on publish.
	DedupWindow time.Duration `koanf:"dedup_window"`

	// MaxAge bounds stream retention; 0 keeps messages until acked limits apply.
	MaxAge time.Duration `koanf:"max_age"`

	// PoisonDir is the Badger directory where undecodable messages are kept.
	PoisonDir string `koanf:"poison_dir"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path to the DuckDB database file.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads for DuckDB query execution. 0 uses all CPUs.
	Threads int `koanf:"threads"`

	// QueryLimit is the default result cap for event queries.
	QueryLimit int `koanf:"query_limit"`

	// MaxQueryLimit is the hard cap a client may request.
	MaxQueryLimit int `koanf:"max_query_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for errors that would prevent startup.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("server.rate_limit_reqs must be at least 1, got %d", c.Server.RateLimitReqs)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.Security.TokenLifetime <= 0 {
		return fmt.Errorf("security.token_lifetime must be positive, got %v", c.Security.TokenLifetime)
	}
	if len(c.Security.Users) == 0 {
		return fmt.Errorf("security.users must define at least one user")
	}
	for username := range c.Security.Users {
		if strings.Contains(username, ":") || strings.Contains(username, ",") {
			return fmt.Errorf("security.users: username %q must not contain ':' or ','", username)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.embedded_server is false")
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("nats.stream_name must not be empty")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject must not be empty")
	}
	if c.NATS.SubscribersCount < 1 {
		return fmt.Errorf("nats.subscribers_count must be at least 1, got %d", c.NATS.SubscribersCount)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.QueryLimit < 1 {
		return fmt.Errorf("database.query_limit must be at least 1, got %d", c.Database.QueryLimit)
	}
	if c.Database.MaxQueryLimit < c.Database.QueryLimit {
		return fmt.Errorf("database.max_query_limit must be >= database.query_limit")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
