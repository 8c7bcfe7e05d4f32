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

//go:build linux

package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeSerialPort_Absent(t *testing.T) {
	t.Parallel()

	status := ProbeSerialPort("/dev/ttyDOESNOTEXIST99")
	assert.False(t, status.Present)
	assert.False(t, status.Free())
}

func TestProbeSerialPort_AccessibleNode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ttyFAKE0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	status := ProbeSerialPort(path)
	assert.True(t, status.Present)
	assert.True(t, status.Readable)
	assert.True(t, status.Writable)
}

func TestPortStatusFree(t *testing.T) {
	t.Parallel()

	assert.True(t, PortStatus{Present: true, Readable: true, Writable: true}.Free())
	assert.False(t, PortStatus{Present: true, Readable: true, Writable: true, HolderPID: 42}.Free())
	assert.False(t, PortStatus{Present: true, Readable: true}.Free())
	assert.False(t, PortStatus{}.Free())
}
