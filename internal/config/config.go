// Package config loads the rowfsm-demo configuration from the environment
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/anggasct/rowfsm/internal/logger"
)

// Prefix is prepended to every variable name
const Prefix = "ROWFSM_"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	// ErrInvalidConfig is returned when a parsed value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the demo driver configuration
type Config struct {
	// Scenario names a built-in scenario, ignored when Table is set
	Scenario string `env:"SCENARIO" envDefault:"full"`
	// Table is the path of a YAML table document
	Table string `env:"TABLE"`
	// Events overrides the event script of the scenario or table
	Events    []string `env:"EVENTS" envSeparator:","`
	LogLevel  string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string   `env:"LOG_FORMAT" envDefault:"text"`
	// DOT is a path the table is written to in Graphviz format
	DOT string `env:"DOT"`
	// Metrics prints the collected metrics after the run
	Metrics bool `env:"METRICS" envDefault:"false"`
}

// Load reads a .env file from the working directory when present, then
// parses the process environment
func Load() (Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()
	return parse(env.Options{Prefix: Prefix})
}

// Parse reads the configuration from the given variables instead of the
// process environment
func Parse(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that env tags cannot express
func (c Config) Validate() error {
	if c.Scenario == "" && c.Table == "" {
		return fmt.Errorf("%w: one of %sSCENARIO or %sTABLE is required", ErrInvalidConfig, Prefix, Prefix)
	}
	switch logger.Format(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// Logger builds the logger described by the configuration
func (c Config) Logger(opts ...logger.Option) (*slog.Logger, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts = append([]logger.Option{
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(c.LogFormat)),
	}, opts...)
	return logger.New(opts...), nil
}
