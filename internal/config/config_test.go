// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/rundownd/internal/automation"
	"github.com/stagecast/rundownd/internal/playback"
)

func TestLoad_Defaults(t *testing.T) {
	loader := NewLoader("", "v1.0.0")

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":4001", cfg.Server.Listen)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval.Std())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "v1.0.0", cfg.Version)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.True(t, filepath.IsAbs(cfg.DataDir), "DataDir must be resolved to an absolute path")
	assert.Equal(t, filepath.Join(cfg.DataDir, "rundown.db"), cfg.StorePath)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen: ":9090"
logLevel: debug
tickInterval: 250ms
automation:
  onStart:
    - kind: osc
      enabled: true
      host: 127.0.0.1
      port: 8700
      address: /stage/start
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	loader := NewLoader(path, "v1.0.0")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval.Std())

	// Defaults survive where the file is silent.
	assert.Equal(t, 20, cfg.Server.RateRPS)

	require.Len(t, cfg.Automation[playback.CycleOnStart], 1)
	target := cfg.Automation[playback.CycleOnStart][0]
	assert.Equal(t, automation.KindOSC, target.Kind)
	assert.Equal(t, "/stage/start", target.Address)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0600))

	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvTickInterval, "50ms")

	loader := NewLoader(path, "v1.0.0")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.TickInterval.Std())
}

func TestLoad_StrictRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lissten: \":9090\"\n"), 0600))

	loader := NewLoader(path, "v1.0.0")
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoad_RejectsNonYAMLExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	loader := NewLoader(path, "v1.0.0")
	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Server.Listen = "no-port" },
			wantErr: ErrInvalidListen,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Listen = ":99999" },
			wantErr: ErrInvalidListen,
		},
		{
			name:    "tick interval too small",
			mutate:  func(c *Config) { c.TickInterval = Duration(time.Millisecond) },
			wantErr: ErrInvalidTickInterval,
		},
		{
			name:    "tick interval too large",
			mutate:  func(c *Config) { c.TickInterval = Duration(2 * time.Second) },
			wantErr: ErrInvalidTickInterval,
		},
		{
			name:    "burst below rps",
			mutate:  func(c *Config) { c.Server.RateBurst = 1 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "shout" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "telemetry enabled with bad exporter",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Exporter = "carrier-pigeon"
			},
			wantErr: ErrInvalidTelemetry,
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SamplingRate = 1.5 },
			wantErr: ErrInvalidTelemetry,
		},
		{
			name: "invalid automation subscription",
			mutate: func(c *Config) {
				c.Automation = automation.Subscriptions{
					playback.CycleOnStart: {{Kind: automation.KindOSC}},
				}
			},
			wantErr: automation.ErrInvalidTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Defaults()
	cfg.Server.Listen = ":8080"
	cfg.TickInterval = Duration(200 * time.Millisecond)
	cfg.Automation = automation.Subscriptions{
		playback.CycleOnFinish: {{
			Kind:    automation.KindHTTP,
			Enabled: true,
			URL:     "http://127.0.0.1:9000/done",
		}},
	}
	require.NoError(t, Save(path, cfg))

	loader := NewLoader(path, "v1.0.0")
	loaded, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", loaded.Server.Listen)
	assert.Equal(t, 200*time.Millisecond, loaded.TickInterval.Std())
	require.Len(t, loaded.Automation[playback.CycleOnFinish], 1)
	assert.Equal(t, "http://127.0.0.1:9000/done", loaded.Automation[playback.CycleOnFinish][0].URL)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Defaults()
	cfg.LogLevel = "shout"

	err := Save(path, cfg)
	require.Error(t, err)
	assert.NoFileExists(t, path)
}
