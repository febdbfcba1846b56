// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with the precedence
// defaults < YAML file < RUNDOWND_* environment variables.
package config

import (
	"time"

	"github.com/stagecast/rundownd/internal/automation"
	"github.com/stagecast/rundownd/internal/telemetry"
)

// Env keys. Every operator-facing knob has exactly one.
const (
	EnvListen       = "RUNDOWND_LISTEN"
	EnvDataDir      = "RUNDOWND_DATA_DIR"
	EnvLogLevel     = "RUNDOWND_LOG_LEVEL"
	EnvTickInterval = "RUNDOWND_TICK_INTERVAL"
	EnvRateRPS      = "RUNDOWND_RATE_RPS"
	EnvRateBurst    = "RUNDOWND_RATE_BURST"
	EnvStorePath    = "RUNDOWND_STORE_PATH"
	EnvOTELEnabled  = "RUNDOWND_OTEL_ENABLED"
	EnvOTELExporter = "RUNDOWND_OTEL_EXPORTER"
	EnvOTELEndpoint = "RUNDOWND_OTEL_ENDPOINT"
	EnvOTELSampling = "RUNDOWND_OTEL_SAMPLING"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	RateRPS   int    `yaml:"rateRps"`
	RateBurst int    `yaml:"rateBurst"`
}

// TelemetryConfig holds tracing settings. Disabled by default.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Config is the effective daemon configuration.
type Config struct {
	Server       ServerConfig             `yaml:"server"`
	DataDir      string                   `yaml:"dataDir"`
	StorePath    string                   `yaml:"storePath"`
	LogLevel     string                   `yaml:"logLevel"`
	TickInterval Duration                 `yaml:"tickInterval"`
	Automation   automation.Subscriptions `yaml:"automation"`
	Telemetry    TelemetryConfig          `yaml:"telemetry"`

	// Version is stamped from the binary, never from file or env.
	Version string `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen:    ":4001",
			RateRPS:   20,
			RateBurst: 40,
		},
		DataDir:      "./data",
		LogLevel:     "info",
		TickInterval: Duration(100 * time.Millisecond),
		Automation:   automation.Subscriptions{},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// TracerConfig maps the telemetry section onto the provider config.
func (c Config) TracerConfig(environment string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "rundownd",
		ServiceVersion: c.Version,
		Environment:    environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
