// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with the precedence ENV > file > defaults.
// It enforces the order parse file (strict) -> apply env -> validate.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. configPath may be empty for env-only setups.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Load produces the effective configuration. A validation failure returns
// the invalid config alongside the error so callers can log offending values.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(&cfg, l.configPath); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	// DataDir must be absolute before anything derives paths from it.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataDir, "rundown.db")
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile applies a YAML file over cfg with STRICT parsing: unknown fields
// are fatal so typos never silently fall back to defaults.
func (l *Loader) loadFile(cfg *Config, path string) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Reject multiple documents or trailing content.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return nil
}

// mergeEnv applies RUNDOWND_* environment overrides, the highest priority.
func (l *Loader) mergeEnv(cfg *Config) {
	cfg.Server.Listen = ParseString(EnvListen, cfg.Server.Listen)
	cfg.Server.RateRPS = ParseInt(EnvRateRPS, cfg.Server.RateRPS)
	cfg.Server.RateBurst = ParseInt(EnvRateBurst, cfg.Server.RateBurst)
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.StorePath = ParseString(EnvStorePath, cfg.StorePath)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.TickInterval = Duration(ParseDuration(EnvTickInterval, cfg.TickInterval.Std()))
	cfg.Telemetry.Enabled = ParseBool(EnvOTELEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTELExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTELEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvOTELSampling, cfg.Telemetry.SamplingRate)
}
