// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	code := runConfigInit([]string{"--file", path})
	require.Equal(t, 0, code)
	require.FileExists(t, path)

	// The written file must load back cleanly.
	code = runConfigValidate([]string{"--file", path})
	assert.Equal(t, 0, code)
}

func TestRunConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":4001\"\n"), 0o600))

	code := runConfigInit([]string{"--file", path})
	assert.Equal(t, 1, code)
}

func TestRunConfigValidateRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lissten: \":4001\"\n"), 0o600))

	code := runConfigValidate([]string{"--file", path})
	assert.Equal(t, 1, code)
}

func TestRunConfigCLIUnknownSubcommand(t *testing.T) {
	assert.Equal(t, 2, runConfigCLI([]string{"frobnicate"}))
	assert.Equal(t, 0, runConfigCLI(nil))
}
