// Package config provides Viper-based configuration loading for the skirmish
// tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SimulationConfig holds battle and batch settings.
type SimulationConfig struct {
	// ScenarioDir is the directory scanned for scenario YAML files.
	ScenarioDir string `mapstructure:"scenario_dir"`
	// Scenario names the scenario to run.
	Scenario string `mapstructure:"scenario"`
	// MaxTurns overrides the scenario's turn limit when > 0.
	MaxTurns int `mapstructure:"max_turns"`
	// Count is the number of battles per batch.
	Count int `mapstructure:"count"`
	// Workers bounds batch parallelism; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers"`
	// BaseSeed seeds battle i with BaseSeed+i; 0 draws a random base seed.
	BaseSeed int64 `mapstructure:"base_seed"`
	// SpillExcessDamage carries damage beyond a slain model into the next one.
	SpillExcessDamage bool `mapstructure:"spill_excess_damage"`
	// ControlRadius is the default objective control radius in inches.
	ControlRadius float64 `mapstructure:"control_radius"`
	// EngagementRange is the melee engagement distance in inches.
	EngagementRange float64 `mapstructure:"engagement_range"`
}

// StorageConfig selects where batch results are kept.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite" or "postgres".
	Backend string `mapstructure:"backend"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// ApplicationName is reported to the server by every session.
	ApplicationName string `mapstructure:"application_name"`
	// StatementTimeout bounds each statement; 0 leaves the server default.
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// FeedConfig holds the result feed HTTP listener settings.
type FeedConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBatch caps the count accepted by the batch endpoint.
	MaxBatch int `mapstructure:"max_batch"`
	// MaxTurns caps the turn limit a request may ask for.
	MaxTurns int `mapstructure:"max_turns"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (f FeedConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector URL.
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// ScriptingConfig holds Lua rule extension settings.
type ScriptingConfig struct {
	// ThreatScript is a Lua file defining threat(unit, default); empty uses
	// the built-in threat scoring.
	ThreatScript string `mapstructure:"threat_script"`
	// InstructionLimit caps opcodes per script call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Backend == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateFeed(c.Feed); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, "tracing.endpoint must not be empty when tracing is enabled")
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.ScenarioDir == "" {
		errs = append(errs, "simulation.scenario_dir must not be empty")
	}
	if s.MaxTurns < 0 {
		errs = append(errs, fmt.Sprintf("simulation.max_turns must be >= 0, got %d", s.MaxTurns))
	}
	if s.Count < 1 || s.Count > 40000 {
		errs = append(errs, fmt.Sprintf("simulation.count must be 1-40000, got %d", s.Count))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 0, got %d", s.Workers))
	}
	if s.ControlRadius < 0 {
		errs = append(errs, "simulation.control_radius must not be negative")
	}
	if s.EngagementRange < 0 {
		errs = append(errs, "simulation.engagement_range must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Backend {
	case "memory", "postgres":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return errors.New("storage.sqlite_path must not be empty for the sqlite backend")
		}
		return nil
	}
	return fmt.Errorf("storage.backend must be one of [memory, sqlite, postgres], got %q", s.Backend)
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if d.StatementTimeout < 0 {
		errs = append(errs, "database.statement_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateFeed(f FeedConfig) error {
	var errs []string
	if f.Port < 1 || f.Port > 65535 {
		errs = append(errs, fmt.Sprintf("feed.port must be 1-65535, got %d", f.Port))
	}
	if f.ReadTimeout < 0 {
		errs = append(errs, "feed.read_timeout must not be negative")
	}
	if f.WriteTimeout < 0 {
		errs = append(errs, "feed.write_timeout must not be negative")
	}
	if f.MaxBatch < 1 || f.MaxBatch > 40000 {
		errs = append(errs, fmt.Sprintf("feed.max_batch must be 1-40000, got %d", f.MaxBatch))
	}
	if f.MaxTurns < 1 || f.MaxTurns > 100 {
		errs = append(errs, fmt.Sprintf("feed.max_turns must be 1-100, got %d", f.MaxTurns))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default settings.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("simulation.scenario_dir", "content/scenarios")
	v.SetDefault("simulation.scenario", "hammer_and_anvil")
	v.SetDefault("simulation.max_turns", 0)
	v.SetDefault("simulation.count", 1000)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.base_seed", 0)
	v.SetDefault("simulation.spill_excess_damage", false)
	v.SetDefault("simulation.control_radius", 3.0)
	v.SetDefault("simulation.engagement_range", 1.0)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.sqlite_path", "skirmish.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.application_name", "skirmish")
	v.SetDefault("database.statement_timeout", "30s")

	v.SetDefault("feed.host", "0.0.0.0")
	v.SetDefault("feed.port", 8080)
	v.SetDefault("feed.read_timeout", "10s")
	v.SetDefault("feed.write_timeout", "2m")
	v.SetDefault("feed.shutdown_timeout", "10s")
	v.SetDefault("feed.max_batch", 5000)
	v.SetDefault("feed.max_turns", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "skirmish")

	v.SetDefault("scripting.threat_script", "")
	v.SetDefault("scripting.instruction_limit", 0)
}
