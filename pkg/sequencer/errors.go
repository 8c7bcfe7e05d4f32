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
	"fmt"
	"strings"

	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/toolrun"
)

// PreconditionError means physical or filesystem state did not match
// expectation before a stage body ran. Usually recoverable by operator
// action and a re-run.
type PreconditionError struct {
	What string
}

func (e *PreconditionError) Error() string {
	return "precondition unmet: " + e.What
}

// ToolError wraps a non-zero exit from a vendor or system tool, carrying
// its captured output for diagnosis without a re-run.
type ToolError struct {
	Result *toolrun.Result
	Tool   string
}

func (e *ToolError) Error() string {
	detail := strings.TrimSpace(e.Result.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(e.Result.Stdout)
	}
	if len(detail) > 200 {
		detail = detail[len(detail)-200:]
	}
	if detail == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.Result.ExitCode, detail)
}

// AmbiguousError means a serial transcript could not be classified as
// success or failure. Escalated to operator judgment, never auto-resolved.
type AmbiguousError struct {
	Command string
	Verdict serialcmd.Verdict
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous response to %q: %s", e.Command, e.Verdict)
}

// LabelMismatch is one partition whose post-format label did not match
// the plan.
type LabelMismatch struct {
	Device string
	Want   string
	Got    string
}

// VerifyError aggregates every partition label mismatch so the operator
// sees the full picture, not just the first failure.
type VerifyError struct {
	Mismatches []LabelMismatch
}

func (e *VerifyError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("%s: want %q, got %q", m.Device, m.Want, m.Got))
	}
	return "partition label verification failed: " + strings.Join(parts, "; ")
}
