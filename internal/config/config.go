// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// EngineConfig holds the round engine and ledger tuning knobs.
type EngineConfig struct {
	// NumberUniverse is the highest number a match draws from (1..NumberUniverse).
	NumberUniverse int `mapstructure:"number_universe"`
	// DrawRetries bounds how often a lost draw race is retried.
	DrawRetries int `mapstructure:"draw_retries"`
	// AwardRetries bounds how often a conflicting award is retried.
	AwardRetries       int           `mapstructure:"award_retries"`
	InviteCodeAttempts int           `mapstructure:"invite_code_attempts"`
	LockTimeout        time.Duration `mapstructure:"lock_timeout"`
	// StrictMarking requires a number to be drawn before it can be marked.
	StrictMarking bool `mapstructure:"strict_marking"`
	// RandomSeed seeds card generation and draws. Zero means time based.
	RandomSeed int64 `mapstructure:"random_seed"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// e.g. DATABASE_HOST, ENGINE_NUMBER_UNIVERSE, LOG_LEVEL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file; a missing file leaves defaults and env vars
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Reject engine values that cannot work
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bingo")
	v.SetDefault("database.name", "bingo")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Engine defaults
	v.SetDefault("engine.number_universe", 75)
	v.SetDefault("engine.draw_retries", 5)
	v.SetDefault("engine.award_retries", 3)
	v.SetDefault("engine.invite_code_attempts", 5)
	v.SetDefault("engine.lock_timeout", "5s")
	v.SetDefault("engine.strict_marking", false)
	v.SetDefault("engine.random_seed", 0)

	v.SetDefault("log.level", "info")
}

// DefaultEngine returns the engine configuration used when nothing is loaded.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		NumberUniverse:     75,
		DrawRetries:        5,
		AwardRetries:       3,
		InviteCodeAttempts: 5,
		LockTimeout:        5 * time.Second,
	}
}

// Validate checks the engine configuration for impossible values.
func (e EngineConfig) Validate() error {
	if e.NumberUniverse < 1 {
		return fmt.Errorf("engine.number_universe must be positive, got %d", e.NumberUniverse)
	}
	if e.DrawRetries < 1 || e.AwardRetries < 1 || e.InviteCodeAttempts < 1 {
		return fmt.Errorf("engine retry counts must be at least 1")
	}
	return nil
}

// ZerologLevel parses the configured log level, falling back to info.
func (l LogConfig) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil || l.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}
