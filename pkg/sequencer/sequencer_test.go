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

	"github.com/boardprov/boardprov/pkg/testing/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStages_Order(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0)
	for _, st := range Stages() {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"tfcard", "mcu", "soc-recovery", "soc-flash", "storage"}, ids)
}

func TestRunStage_RequiresGate(t *testing.T) {
	cfg := testConfig(t, nil)
	runner := mocks.NewMockRunner()
	seq := New(cfg, Deps{Runner: runner, Fs: afero.NewMemMapFs(), Out: &bytes.Buffer{}})

	res := seq.RunStage(context.Background(), socFlashStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, `requires stage "soc-recovery"`)
	assert.Empty(t, runner.Calls, "gated stage must not touch any tool")
}

func TestRunStage_RequiresGate_PriorFailureBlocks(t *testing.T) {
	cfg := testConfig(t, nil)
	seq := New(cfg, Deps{Runner: mocks.NewMockRunner(), Fs: afero.NewMemMapFs(), Out: &bytes.Buffer{}})

	seq.results["soc-recovery"] = Result{StageID: "soc-recovery", Status: StatusFailed}
	res := seq.RunStage(context.Background(), socFlashStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Reason, "soc-recovery")
}

func TestRunStage_ConfirmDecline(t *testing.T) {
	cfg := testConfig(t, nil)
	runner := mocks.NewMockRunner()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dev/vdisk", nil, 0o600))

	seq := New(cfg, Deps{Runner: runner, Fs: fs, Confirm: confirmNever, Out: &bytes.Buffer{}})
	res := seq.RunStage(context.Background(), storageStage())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "declined by operator", res.Reason)
	assert.Empty(t, runner.Calls, "declined destructive stage must not run any tool")
}

func TestRunStage_RecordsResult(t *testing.T) {
	cfg := testConfig(t, nil)
	var out bytes.Buffer
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/firmware/app.bin", []byte("fw"), 0o644))

	seq := New(cfg, Deps{Runner: mocks.NewMockRunner(), Fs: fs, Out: &out})
	res := seq.RunStage(context.Background(), tfCardStage())

	recorded, ok := seq.Result("tfcard")
	require.True(t, ok)
	assert.Equal(t, res, recorded)
	assert.Contains(t, out.String(), "[skipped] TF card preparation")
}

func TestRunAll_InterruptedBeforeStart(t *testing.T) {
	cfg := testConfig(t, nil)
	seq := New(cfg, Deps{Runner: mocks.NewMockRunner(), Fs: afero.NewMemMapFs(), Out: &bytes.Buffer{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, tally := seq.RunAll(ctx)
	assert.Empty(t, results, "interrupted run must abandon all remaining stages")
	assert.Equal(t, Tally{}, tally)
}
