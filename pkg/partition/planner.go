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

// Package partition selects a capacity-banded partition scheme for a
// storage card and emits the exact partitioning operations to realize it.
package partition

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const GiB = int64(1) << 30

// ErrInsufficientCapacity means the card is below the vendor floor and
// cannot usefully host the target workload. Fatal, no retry.
var ErrInsufficientCapacity = errors.New("insufficient storage capacity")

// Part is one planned partition. SizeGiB zero means the partition absorbs
// all remaining space; only the last part of a scheme may do so.
type Part struct {
	Label      string
	Filesystem string
	SizeGiB    int64
}

// Scheme is a named partition plan for one capacity band. Sizes are
// assigned monotonically from the start of the device and the declared
// total never exceeds the band floor.
type Scheme struct {
	Tag   string
	Parts []Part
}

// band floors are inclusive lower bounds, evaluated highest-first.
var bands = []struct {
	scheme   Scheme
	floorGiB int64
}{
	{
		floorGiB: 900,
		scheme: Scheme{
			Tag: "1T",
			Parts: []Part{
				{Label: "rootfs", Filesystem: "ext4"},
			},
		},
	},
	{
		floorGiB: 450,
		scheme: Scheme{
			Tag: "512G",
			Parts: []Part{
				{Label: "rootfs", Filesystem: "ext4", SizeGiB: 128},
				{Label: "models", Filesystem: "ext4", SizeGiB: 256},
				{Label: "app", Filesystem: "ext4"},
			},
		},
	},
	{
		floorGiB: 220,
		scheme: Scheme{
			Tag: "256G",
			Parts: []Part{
				{Label: "rootfs", Filesystem: "ext4", SizeGiB: 64},
				{Label: "models", Filesystem: "ext4", SizeGiB: 128},
				{Label: "app", Filesystem: "ext4"},
			},
		},
	},
	{
		floorGiB: 100,
		scheme: Scheme{
			Tag: "128G",
			Parts: []Part{
				{Label: "rootfs", Filesystem: "ext4", SizeGiB: 64},
				{Label: "models", Filesystem: "ext4"},
			},
		},
	},
}

// SelectScheme maps a device's byte capacity to its partition scheme.
// Larger media must not be under-partitioned relative to smaller ones, so
// bands scale monotonically down to the floor.
func SelectScheme(capacityBytes int64) (Scheme, error) {
	for _, b := range bands {
		if capacityBytes >= b.floorGiB*GiB {
			return b.scheme, nil
		}
	}
	return Scheme{}, fmt.Errorf("%w: %d bytes (floor %d GiB)",
		ErrInsufficientCapacity, capacityBytes, bands[len(bands)-1].floorGiB)
}

// DeclaredGiB sums the fixed partition sizes of the scheme, excluding the
// remainder partition.
func (s Scheme) DeclaredGiB() int64 {
	var total int64
	for _, p := range s.Parts {
		total += p.SizeGiB
	}
	return total
}

// ExpectedLabels returns partition labels in on-disk order, used to verify
// post-format state.
func (s Scheme) ExpectedLabels() []string {
	labels := make([]string, 0, len(s.Parts))
	for _, p := range s.Parts {
		labels = append(labels, p.Label)
	}
	return labels
}

// Operation is one argument vector for an external partitioning tool,
// emitted in strict on-disk order.
type Operation struct {
	Tool string
	Args []string
}

// Operations emits the parted invocations that realize the scheme on the
// given block device: a fresh GPT label, then one mkpart per partition.
// The final partition is always declared as "use remaining space" rather
// than a fixed size to absorb rounding.
func (s Scheme) Operations(device string) []Operation {
	ops := []Operation{
		{Tool: "parted", Args: []string{"-s", device, "mklabel", "gpt"}},
	}

	// First partition starts at 1MiB for alignment.
	start := "1MiB"
	var offset int64
	for i, p := range s.Parts {
		end := "100%"
		if i < len(s.Parts)-1 {
			offset += p.SizeGiB
			end = fmt.Sprintf("%dGiB", offset)
		}
		ops = append(ops, Operation{
			Tool: "parted",
			Args: []string{"-s", device, "mkpart", p.Label, p.Filesystem, start, end},
		})
		start = end
	}

	return ops
}

// PartitionPath returns the device node of the nth partition (1-based).
// Devices whose name ends in a digit take a "p" separator
// (/dev/nvme0n1p1, /dev/mmcblk1p2); others append directly (/dev/sda1).
func PartitionPath(device string, n int) string {
	if device == "" {
		return ""
	}
	last := rune(device[len(device)-1])
	if unicode.IsDigit(last) {
		return fmt.Sprintf("%sp%d", device, n)
	}
	return fmt.Sprintf("%s%d", device, n)
}

func (s Scheme) String() string {
	specs := make([]string, 0, len(s.Parts))
	for _, p := range s.Parts {
		size := "remainder"
		if p.SizeGiB > 0 {
			size = fmt.Sprintf("%dGiB", p.SizeGiB)
		}
		specs = append(specs, p.Label+":"+size)
	}
	return s.Tag + " [" + strings.Join(specs, " ") + "]"
}
