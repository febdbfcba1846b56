// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/stagecast/rundownd/internal/log"
)

// Save writes the configuration to path atomically. The config is validated
// first so an invalid state can never land on disk.
func Save(path string, cfg Config) error {
	logger := log.WithComponent("config")

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}

	logger.Info().
		Str(log.FieldEvent, "config.saved").
		Str("path", path).
		Msg("configuration written")

	return nil
}
