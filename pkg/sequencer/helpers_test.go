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

package sequencer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/boardprov/boardprov/pkg/config"
	"github.com/boardprov/boardprov/pkg/probe"
	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/testing/mocks"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// testConfig builds a config instance with timings shrunk so stages run in
// milliseconds. Tests using it cannot be parallel: the config path is
// injected through the environment.
func testConfig(t *testing.T, mutate func(*config.Values)) *config.Instance {
	t.Helper()

	vals := config.BaseDefaults
	vals.Serial.Device = "/dev/ttyFAKE0"
	vals.Serial.SettleDelayMs = 0
	vals.Serial.ResponseWindowMs = 40
	vals.USB.MaxAttempts = 3
	vals.USB.PollIntervalMs = 1
	vals.Firmware.Dir = "/firmware"
	vals.Storage.BlockDevice = "/dev/vdisk"
	vals.Storage.TFMount = "/mnt/tf"
	vals.Retry.MaxAttempts = 2
	vals.Retry.BackoffMs = 1
	vals.Recovery.MaxAttempts = 2
	vals.Recovery.SettleDelayMs = 0
	if mutate != nil {
		mutate(&vals)
	}

	data, err := toml.Marshal(vals)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), config.CfgFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv(config.CfgEnv, path)

	cfg, err := config.NewConfig("", config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

// fakePortFactory returns the same scripted port for every open.
func fakePortFactory(port *mocks.FakePort) serialcmd.PortFactory {
	return func(_ string, _ *serial.Mode) (serialcmd.Port, error) {
		return port, nil
	}
}

func freePortProbe(string) probe.PortStatus {
	return probe.PortStatus{Present: true, Readable: true, Writable: true}
}

func confirmAlways(string) bool { return true }

func confirmNever(string) bool { return false }
