// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kyosocan/demo-C-platform/internal/db"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ   RabbitMQConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Moderation ModerationConfig
	Auth       AuthConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Mode is the gin mode: debug, release or test.
	Mode            string
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Driver         string
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// Pool converts the section into pool settings for db.NewPool.
func (d *DatabaseConfig) Pool() *db.Config {
	return &db.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxConns:        int32(d.MaxConnections),
		MinConns:        int32(d.MinConnections),
		MaxConnLifetime: d.MaxLifetime,
		MaxConnIdleTime: d.MaxIdleTime,
	}
}

// RedisConfig contains the Redis connection used by the list cache and the task queue.
// An empty URL disables both.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// ModerationConfig tunes the assignment engine.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ModerationConfig struct {
	// AutoFill refills a reviewer's queue right after it frees a slot.
	AutoFill bool
	// FillInterval is how often every online reviewer is topped up. Zero disables the sweep.
	FillInterval time.Duration
	// FillViaQueue hands sweeps to the asynq worker instead of the in-process
	// ticker. The worker shares state only through Postgres.
	FillViaQueue bool
	// WorkerConcurrency is the number of fill tasks the worker runs at once.
	WorkerConcurrency int
	DefaultCapacity   int
	MaxCapacity       int
	SeedDemoData      bool
}

// AuthConfig maps API keys to roles.
type AuthConfig struct {
	AdminKeys    []string
	ReviewerKeys []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	if c.Moderation.MaxCapacity < 1 {
		return fmt.Errorf("moderation.maxcapacity must be positive, got %d", c.Moderation.MaxCapacity)
	}
	if c.Moderation.DefaultCapacity < 1 || c.Moderation.DefaultCapacity > c.Moderation.MaxCapacity {
		return fmt.Errorf("moderation.defaultcapacity must be within 1..%d, got %d",
			c.Moderation.MaxCapacity, c.Moderation.DefaultCapacity)
	}
	if c.Moderation.FillViaQueue && c.Redis.URL == "" {
		return fmt.Errorf("moderation.fillviaqueue requires redis.url")
	}
	if c.Moderation.FillViaQueue && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("moderation.fillviaqueue requires database.driver %q, got %q",
			DriverPostgres, c.Database.Driver)
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.driver", DriverMemory)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "moderation")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.cachettl", 5*time.Minute)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "moderation.events")
	viper.SetDefault("rabbitmq.queue", "moderation.events.audit")
	viper.SetDefault("rabbitmq.routingkey", "moderation.#")

	// Moderation
	viper.SetDefault("moderation.autofill", true)
	viper.SetDefault("moderation.fillinterval", 30*time.Second)
	viper.SetDefault("moderation.fillviaqueue", false)
	viper.SetDefault("moderation.workerconcurrency", 4)
	viper.SetDefault("moderation.defaultcapacity", 10)
	viper.SetDefault("moderation.maxcapacity", 50)
	viper.SetDefault("moderation.seeddemodata", false)

	// Auth
	viper.SetDefault("auth.adminkeys", []string{})
	viper.SetDefault("auth.reviewerkeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
