package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Moderation ModerationConfig `mapstructure:"moderation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0,lte=1440"`
}

// ModerationConfig tunes the moderator task queue.
type ModerationConfig struct {
	// LeaseWindow is how long an assignment protects a task from other moderators.
	LeaseWindow time.Duration `mapstructure:"lease_window" validate:"gt=0"`
	// RetentionWindow is how long resolved tasks are kept.
	RetentionWindow time.Duration `mapstructure:"retention_window" validate:"gt=0"`
	DefaultPageSize int           `mapstructure:"default_page_size" validate:"gt=0,ltefield=MaxPageSize"`
	MaxPageSize     int           `mapstructure:"max_page_size" validate:"gt=0,lte=1000"`
}
