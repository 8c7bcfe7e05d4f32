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

package partition

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// sysfs reports block device sizes in 512-byte sectors regardless of the
// device's logical block size.
const sectorSize = 512

// DeviceCapacity reads a whole-disk block device's byte capacity from
// sysfs. The filesystem is injected so tests can fake /sys.
func DeviceCapacity(fs afero.Fs, devicePath string) (int64, error) {
	name := filepath.Base(devicePath)
	sizePath := filepath.Join("/sys/block", name, "size")

	data, err := afero.ReadFile(fs, sizePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", sizePath, err)
	}

	sectors, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sector count for %s: %w", name, err)
	}

	return sectors * sectorSize, nil
}
