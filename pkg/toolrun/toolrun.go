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

// Package toolrun provides an abstraction over exec.Command for testability.
// Vendor flashing tools and system partitioning utilities are all invoked
// through this boundary so stages can be tested without touching hardware.
package toolrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// Result holds the outcome of a completed external tool invocation.
// Callers interpret exit codes and output; this package does not.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports whether the tool exited with status zero.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Options configures a captured tool invocation.
type Options struct {
	// Stream receives tool output line-by-line while the tool runs, in
	// addition to capture. Used for long-running flash tools so a stalled
	// flash is visible to the operator, not just a delayed result.
	Stream io.Writer

	// WorkingDir sets the tool's working directory. Empty means inherit.
	WorkingDir string
}

// Runner executes external programs. Mocked in tests so stage logic can be
// verified without executing real system commands.
type Runner interface {
	// Run executes a command and waits for it to complete.
	// Returns an error if the command fails to start or exits non-zero.
	Run(ctx context.Context, name string, args ...string) error

	// Output runs a command and returns its standard output.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunCapture runs a command and captures both output streams. A non-zero
	// exit status is reported in the Result, not as an error; an error is
	// only returned when the process could not be started or was killed.
	RunCapture(ctx context.Context, opts Options, name string, args ...string) (*Result, error)
}

// ExecRunner uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by the real exec package.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a system command using exec.CommandContext.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Output runs a command and returns its standard output.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// RunCapture runs a command and returns its exit status and captured output.
func (*ExecRunner) RunCapture(
	ctx context.Context, opts Options, name string, args ...string,
) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	if opts.Stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, opts.Stream)
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stream)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	log.Debug().Str("tool", name).Strs("args", args).Msg("running external tool")

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			log.Debug().
				Str("tool", name).
				Int("exit_code", res.ExitCode).
				Msg("external tool exited non-zero")
			return res, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return res, nil
}
