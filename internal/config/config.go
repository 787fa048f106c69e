package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	App      AppConfig      `mapstructure:"app"      validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
}

// AppConfig contains process-wide settings.
type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
	Environment string `mapstructure:"environment" validate:"required,oneof=development test production"`
}

// DatabaseConfig contains all database-related configuration settings.
// It is passed explicitly to the connection layer; nothing reads the
// environment behind the caller's back.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// ConnectTimeout bounds the initial ping when the pool is opened.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	// StatementTimeout is sent to the server as statement_timeout. Zero
	// disables it.
	StatementTimeout time.Duration `mapstructure:"statement_timeout" validate:"gte=0"`
}

// AuthConfig contains account credential settings.
type AuthConfig struct {
	BcryptCost      int    `mapstructure:"bcrypt_cost"      validate:"gte=4,lte=31"`
	DefaultLocation string `mapstructure:"default_location" validate:"required"`
}
