// Boardprov
// Copyright (c) 2026 The Boardprov Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Boardprov.
//
// Boardprov is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Boardprov is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Boardprov.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, CfgFile), cfg.Path())
	assert.FileExists(t, cfg.Path())

	assert.Equal(t, "/dev/ttyCH343USB0", cfg.Serial().Device)
	assert.Equal(t, 115200, cfg.Serial().BaudRate)
	assert.True(t, cfg.Serial().ContinueAfterResetFailure)
	assert.Equal(t, "NVIDIA Corp", cfg.USB().SocRecoveryVendor)
	assert.Equal(t, "/dev/nvme0n1", cfg.Storage().BlockDevice)
	assert.Equal(t, 3, cfg.Retry().MaxAttempts)
	assert.Len(t, cfg.Mcu().InitCommands, 3)
}

func TestNewConfig_LoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CfgFile)
	t.Setenv(CfgEnv, "")

	content := `
config_schema = 1

[serial]
device = "/dev/ttyUSB7"
baud_rate = 921600
response_window_ms = 500

[storage]
block_device = "/dev/sda"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB7", cfg.Serial().Device)
	assert.Equal(t, 921600, cfg.Serial().BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial().ResponseWindow())
	assert.Equal(t, "/dev/sda", cfg.Storage().BlockDevice)
	// Unset sections keep their defaults.
	assert.Equal(t, "Espressif", cfg.USB().McuBootVendor)
	assert.Equal(t, "/mnt/tfcard", cfg.Storage().TFMount)
}

func TestNewConfig_EnvOverridesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(CfgEnv, path)

	cfg, err := NewConfig("/nonexistent/config/dir", BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.FileExists(t, path)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CfgFile)
	t.Setenv(CfgEnv, "")

	content := `
[serial]
device = ""
baud_rate = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CfgFile)
	t.Setenv(CfgEnv, "")

	require.NoError(t, os.WriteFile(path, []byte("[serial\ndevice="), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(CfgEnv, "")

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())

	assert.True(t, cfg.DebugLogging())
}

func TestDurationAccessors(t *testing.T) {
	t.Parallel()

	s := Serial{SettleDelayMs: 200, ResponseWindowMs: 1500}
	assert.Equal(t, 200*time.Millisecond, s.SettleDelay())
	assert.Equal(t, 1500*time.Millisecond, s.ResponseWindow())

	assert.Equal(t, time.Second, USB{PollIntervalMs: 1000}.PollInterval())
	assert.Equal(t, 2*time.Second, Retry{BackoffMs: 2000}.Backoff())
	assert.Equal(t, 5*time.Second, Recovery{SettleDelayMs: 5000}.SettleDelay())
}
