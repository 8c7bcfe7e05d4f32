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

// Package mocks provides test doubles for the hardware and process
// boundaries so stage logic can be exercised without a board attached.
package mocks

import (
	"context"

	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock for toolrun.Runner. Use On() to set
// expectations and the usual assertions to verify invocation counts.
type MockRunner struct {
	mock.Mock
}

func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) error {
	callArgs := m.Called(ctx, name, args)
	return callArgs.Error(0)
}

func (m *MockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	callArgs := m.Called(ctx, name, args)
	out, _ := callArgs.Get(0).([]byte)
	return out, callArgs.Error(1)
}

func (m *MockRunner) RunCapture(
	ctx context.Context, opts toolrun.Options, name string, args ...string,
) (*toolrun.Result, error) {
	callArgs := m.Called(ctx, opts, name, args)
	res, _ := callArgs.Get(0).(*toolrun.Result)
	return res, callArgs.Error(1)
}

// SetupToolSuccess configures any RunCapture of the named tool to
// succeed with empty output.
func (m *MockRunner) SetupToolSuccess(name string) {
	m.On("RunCapture", mock.Anything, mock.Anything, name, mock.Anything).
		Return(&toolrun.Result{}, nil)
}

// SetupToolFailure configures any RunCapture of the named tool to exit
// non-zero with the given stderr.
func (m *MockRunner) SetupToolFailure(name string, exitCode int, stderr string) {
	m.On("RunCapture", mock.Anything, mock.Anything, name, mock.Anything).
		Return(&toolrun.Result{ExitCode: exitCode, Stderr: stderr}, nil)
}
