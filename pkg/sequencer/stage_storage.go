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
	"context"
	"fmt"
	"strings"

	"github.com/boardprov/boardprov/pkg/partition"
	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
)

// storageStage partitions, formats and verifies the removable data card.
// Destructive: erases the entire device. An interrupt mid-partition can
// leave the card in a non-recoverable intermediate state; there is no
// rollback.
func storageStage() Stage {
	return Stage{
		ID:            "storage",
		Name:          "data card partition + format",
		ConfirmPrompt: "ALL DATA on the data card will be DESTROYED. Continue?",
		Run:           runStorage,
	}
}

func runStorage(ctx context.Context, s *Sequencer) error {
	device := s.cfg.Storage().BlockDevice

	if _, err := s.fs.Stat(device); err != nil {
		return &PreconditionError{
			What: fmt.Sprintf("block device %s not present, insert the data card", device),
		}
	}

	capacity, err := partition.DeviceCapacity(s.fs, device)
	if err != nil {
		return fmt.Errorf("failed to read capacity of %s: %w", device, err)
	}

	scheme, err := partition.SelectScheme(capacity)
	if err != nil {
		return err
	}
	log.Info().
		Str("device", device).
		Int64("capacity", capacity).
		Str("scheme", scheme.String()).
		Msg("partition scheme selected")

	s.unmountAll(ctx, device)

	for _, op := range scheme.Operations(device) {
		res, err := s.runner.RunCapture(ctx, toolrun.Options{}, op.Tool, op.Args...)
		if err != nil {
			return fmt.Errorf("partition tool did not start: %w", err)
		}
		if !res.Succeeded() {
			return &ToolError{Tool: op.Tool, Result: res}
		}
	}

	for i, part := range scheme.Parts {
		node := partition.PartitionPath(device, i+1)
		res, err := s.runner.RunCapture(ctx, toolrun.Options{Stream: s.out},
			"mkfs."+part.Filesystem, "-F", "-L", part.Label, node)
		if err != nil {
			return fmt.Errorf("mkfs did not start: %w", err)
		}
		if !res.Succeeded() {
			return &ToolError{Tool: "mkfs." + part.Filesystem, Result: res}
		}
	}

	// Re-read the partition table so the new nodes are visible.
	if err := s.runner.Run(ctx, "partprobe", device); err != nil {
		log.Warn().Err(err).Str("device", device).Msg("partprobe failed, labels may read stale")
	}

	return s.verifyLabels(ctx, device, scheme)
}

// unmountAll unmounts every mounted partition of the target device.
// Best-effort: nothing mounted is the common case, not a failure.
func (s *Sequencer) unmountAll(ctx context.Context, device string) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("cannot list mounted partitions, skipping unmount")
		return
	}

	for _, p := range parts {
		if !strings.HasPrefix(p.Device, device) {
			continue
		}
		log.Info().Str("device", p.Device).Str("mount", p.Mountpoint).Msg("unmounting")
		if err := s.runner.Run(ctx, "umount", p.Mountpoint); err != nil {
			log.Warn().Err(err).Str("mount", p.Mountpoint).Msg("unmount failed")
		}
	}
}

// verifyLabels checks every partition's actual filesystem label against
// the plan. All partitions are checked even after a mismatch; the
// operator needs the full picture, not just the first failure.
func (s *Sequencer) verifyLabels(ctx context.Context, device string, scheme partition.Scheme) error {
	var mismatches []LabelMismatch

	for i, want := range scheme.ExpectedLabels() {
		node := partition.PartitionPath(device, i+1)

		out, err := s.runner.Output(ctx, "blkid", "-s", "LABEL", "-o", "value", node)
		got := strings.TrimSpace(string(out))
		if err != nil {
			got = ""
		}

		if got != want {
			log.Error().Str("device", node).Str("want", want).Str("got", got).
				Msg("partition label mismatch")
			mismatches = append(mismatches, LabelMismatch{Device: node, Want: want, Got: got})
			continue
		}
		log.Info().Str("device", node).Str("label", got).Msg("partition label verified")
	}

	if len(mismatches) > 0 {
		return &VerifyError{Mismatches: mismatches}
	}
	return nil
}
