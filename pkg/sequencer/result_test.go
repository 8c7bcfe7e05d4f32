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
	"testing"

	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	tally := Summarize([]Result{
		{StageID: "tfcard", Status: StatusSkipped},
		{StageID: "mcu", Status: StatusSuccess},
		{StageID: "soc-recovery", Status: StatusFailed},
		{StageID: "soc-flash", Status: StatusFailed},
		{StageID: "storage", Status: StatusSuccess},
	})

	assert.Equal(t, Tally{Completed: 2, Skipped: 1, Failed: 2, Total: 5}, tally)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Tally{}, Summarize(nil))
}

func TestToolError_Message(t *testing.T) {
	t.Parallel()

	err := &ToolError{Tool: "parted", Result: &toolrun.Result{ExitCode: 1, Stderr: "unrecognised disk label\n"}}
	assert.Equal(t, "parted exited with status 1: unrecognised disk label", err.Error())

	// Stderr empty falls back to stdout.
	err = &ToolError{Tool: "esptool.py", Result: &toolrun.Result{ExitCode: 2, Stdout: "A fatal error occurred"}}
	assert.Contains(t, err.Error(), "A fatal error occurred")

	// No output at all still names tool and status.
	err = &ToolError{Tool: "flash.sh", Result: &toolrun.Result{ExitCode: 127}}
	assert.Equal(t, "flash.sh exited with status 127", err.Error())
}

func TestAmbiguousError_Message(t *testing.T) {
	t.Parallel()

	err := &AmbiguousError{Command: "status", Verdict: serialcmd.VerdictSilentSuspect}
	assert.Equal(t, `ambiguous response to "status": silent (expected a reply)`, err.Error())
}

func TestVerifyError_ListsEveryMismatch(t *testing.T) {
	t.Parallel()

	err := &VerifyError{Mismatches: []LabelMismatch{
		{Device: "/dev/vdisk1", Want: "rootfs", Got: ""},
		{Device: "/dev/vdisk2", Want: "models", Got: "data"},
	}}

	msg := err.Error()
	assert.Contains(t, msg, `/dev/vdisk1: want "rootfs", got ""`)
	assert.Contains(t, msg, `/dev/vdisk2: want "models", got "data"`)
}
