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
	"bytes"
	"context"
	"testing"

	"github.com/boardprov/boardprov/pkg/partition"
	"github.com/boardprov/boardprov/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// storageFs builds a fake filesystem exposing a block device of the given
// capacity in GiB through the sysfs size file.
func storageFs(t *testing.T, sizeSectors string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dev/vdisk", nil, 0o600))
	require.NoError(t, afero.WriteFile(fs, "/sys/block/vdisk/size", []byte(sizeSectors), 0o644))
	return fs
}

func TestStorageStage_PartitionFormatVerify(t *testing.T) {
	cfg := testConfig(t, nil)

	// 256 GiB in 512-byte sectors selects the three-partition scheme.
	fs := storageFs(t, "536870912")

	runner := mocks.NewMockRunner()
	runner.SetupToolSuccess("parted")
	runner.SetupToolSuccess("mkfs.ext4")
	runner.On("Run", mock.Anything, "partprobe", []string{"/dev/vdisk"}).Return(nil).Once()
	for i, label := range []string{"rootfs", "models", "app"} {
		node := partition.PartitionPath("/dev/vdisk", i+1)
		runner.On("Output", mock.Anything, "blkid",
			[]string{"-s", "LABEL", "-o", "value", node}).
			Return([]byte(label+"\n"), nil).Once()
	}

	seq := New(cfg, Deps{Runner: runner, Fs: fs, Confirm: confirmAlways, Out: &bytes.Buffer{}})
	res := seq.RunStage(context.Background(), storageStage())

	require.Equal(t, StatusSuccess, res.Status, res.Reason)
	// mklabel + three mkpart, then one mkfs per partition.
	runner.AssertNumberOfCalls(t, "RunCapture", 7)
	runner.AssertExpectations(t)
}

func TestStorageStage_LabelMismatchListsAll(t *testing.T) {
	cfg := testConfig(t, nil)
	fs := storageFs(t, "536870912")

	runner := mocks.NewMockRunner()
	runner.SetupToolSuccess("parted")
	runner.SetupToolSuccess("mkfs.ext4")
	runner.On("Run", mock.Anything, "partprobe", []string{"/dev/vdisk"}).Return(nil)
	// Two of three labels come back wrong.
	for i, label := range []string{"rootfs", "data", ""} {
		node := partition.PartitionPath("/dev/vdisk", i+1)
		runner.On("Output", mock.Anything, "blkid",
			[]string{"-s", "LABEL", "-o", "value", node}).
			Return([]byte(label+"\n"), nil).Once()
	}

	seq := New(cfg, Deps{Runner: runner, Fs: fs, Confirm: confirmAlways, Out: &bytes.Buffer{}})
	res := seq.RunStage(context.Background(), storageStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, `want "models", got "data"`)
	assert.Contains(t, res.Reason, `want "app", got ""`)
	assert.NotContains(t, res.Reason, `want "rootfs"`)
	// Verification must check every partition even after the first mismatch.
	runner.AssertNumberOfCalls(t, "Output", 3)
}

func TestStorageStage_DeviceAbsent(t *testing.T) {
	cfg := testConfig(t, nil)

	seq := New(cfg, Deps{
		Runner:  mocks.NewMockRunner(),
		Fs:      afero.NewMemMapFs(),
		Confirm: confirmAlways,
		Out:     &bytes.Buffer{},
	})
	res := seq.RunStage(context.Background(), storageStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "block device /dev/vdisk not present")
}

func TestStorageStage_CapacityBelowFloor(t *testing.T) {
	cfg := testConfig(t, nil)

	// 64 GiB is below the smallest provisioning band.
	fs := storageFs(t, "134217728")

	seq := New(cfg, Deps{
		Runner:  mocks.NewMockRunner(),
		Fs:      fs,
		Confirm: confirmAlways,
		Out:     &bytes.Buffer{},
	})
	res := seq.RunStage(context.Background(), storageStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "insufficient")
}

func TestStorageStage_PartitionToolFailureAborts(t *testing.T) {
	cfg := testConfig(t, nil)
	fs := storageFs(t, "536870912")

	runner := mocks.NewMockRunner()
	runner.SetupToolFailure("parted", 1, "Error: /dev/vdisk: unrecognised disk label")

	seq := New(cfg, Deps{Runner: runner, Fs: fs, Confirm: confirmAlways, Out: &bytes.Buffer{}})
	res := seq.RunStage(context.Background(), storageStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "parted exited with status 1")
	// The first failed operation stops the run before any mkfs.
	runner.AssertNumberOfCalls(t, "RunCapture", 1)
}
