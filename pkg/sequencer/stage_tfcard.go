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
	"path/filepath"
	"sort"
	"strings"

	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// tfCardStage unpacks the firmware release archive from the TF card into
// the firmware directory. Retrieval of the archive itself is external;
// this stage only consumes what is already on the card.
func tfCardStage() Stage {
	return Stage{
		ID:         "tfcard",
		Name:       "TF card preparation",
		Idempotent: true,
		Satisfied:  firmwareDirPopulated,
		Run:        runTFCard,
	}
}

// firmwareDirPopulated is the stage's idempotency marker: a non-empty
// firmware directory means the archive was already unpacked.
func firmwareDirPopulated(_ context.Context, s *Sequencer) (bool, string) {
	fw := s.cfg.Firmware()

	entries, err := afero.ReadDir(s.fs, fw.Dir)
	if err != nil || len(entries) == 0 {
		return false, ""
	}
	return true, fmt.Sprintf("firmware already unpacked in %s", fw.Dir)
}

func runTFCard(ctx context.Context, s *Sequencer) error {
	storage := s.cfg.Storage()
	fw := s.cfg.Firmware()

	mounted, err := afero.DirExists(s.fs, storage.TFMount)
	if err != nil || !mounted {
		return &PreconditionError{
			What: fmt.Sprintf("TF card not mounted at %s, insert the card and mount it", storage.TFMount),
		}
	}

	archive, err := findReleaseArchive(s.fs, storage.TFMount)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(fw.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create firmware directory: %w", err)
	}

	log.Info().Str("archive", archive).Str("dir", fw.Dir).Msg("unpacking firmware release")

	res, err := s.runner.RunCapture(ctx, toolrun.Options{Stream: s.out},
		"tar", "-xzf", archive, "-C", fw.Dir)
	if err != nil {
		return fmt.Errorf("failed to unpack firmware archive: %w", err)
	}
	if !res.Succeeded() {
		return &ToolError{Tool: "tar", Result: res}
	}

	return nil
}

// findReleaseArchive picks the newest release tarball on the TF card.
func findReleaseArchive(fs afero.Fs, mount string) (string, error) {
	entries, err := afero.ReadDir(fs, mount)
	if err != nil {
		return "", fmt.Errorf("failed to read TF card: %w", err)
	}

	var archives []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz") {
			archives = append(archives, name)
		}
	}

	if len(archives) == 0 {
		return "", &PreconditionError{
			What: fmt.Sprintf("no firmware release archive (*.tar.gz) on TF card at %s", mount),
		}
	}

	sort.Strings(archives)
	return filepath.Join(mount, archives[len(archives)-1]), nil
}
