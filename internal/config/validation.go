// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidListen       = errors.New("invalid listen address")
	ErrInvalidTickInterval = errors.New("invalid tick interval")
	ErrInvalidRateLimit    = errors.New("invalid rate limit")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidTelemetry    = errors.New("invalid telemetry config")
)

// Tick interval bounds. The lower bound keeps the loop from busy-spinning,
// the upper bound keeps displays within the 1Hz update contract.
const (
	MinTickInterval = 10 * time.Millisecond
	MaxTickInterval = time.Second
)

// Validate checks the full configuration. It is called on initial load and
// on every hot reload; a failing config is never applied.
func Validate(cfg Config) error {
	host, port, err := net.SplitHostPort(cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidListen, cfg.Server.Listen, err)
	}
	_ = host
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: port %q out of range", ErrInvalidListen, port)
	}

	if cfg.TickInterval.Std() < MinTickInterval || cfg.TickInterval.Std() > MaxTickInterval {
		return fmt.Errorf("%w: %s (must be between %s and %s)",
			ErrInvalidTickInterval, cfg.TickInterval, MinTickInterval, MaxTickInterval)
	}

	if cfg.Server.RateRPS < 1 || cfg.Server.RateBurst < cfg.Server.RateRPS {
		return fmt.Errorf("%w: rps=%d burst=%d (burst must be >= rps >= 1)",
			ErrInvalidRateLimit, cfg.Server.RateRPS, cfg.Server.RateBurst)
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("%w: exporter %q (supported: grpc, http)",
				ErrInvalidTelemetry, cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			return fmt.Errorf("%w: endpoint required when enabled", ErrInvalidTelemetry)
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("%w: sampling rate %f out of [0,1]",
			ErrInvalidTelemetry, cfg.Telemetry.SamplingRate)
	}

	if err := cfg.Automation.Validate(); err != nil {
		return fmt.Errorf("automation subscriptions: %w", err)
	}

	return nil
}
