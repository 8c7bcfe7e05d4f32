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

// Package sequencer drives the provisioning stages in order: TF card
// preparation, MCU firmware flash and parameter init, host SoC recovery
// and flash, data card partition and format. Each stage checks its
// preconditions, short-circuits when already satisfied, and reports a
// tri-state result that is always surfaced to the caller.
package sequencer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/boardprov/boardprov/pkg/config"
	"github.com/boardprov/boardprov/pkg/probe"
	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Confirmer asks the operator a yes/no question. Blocking with no
// timeout: physical setup time is unbounded and operator-driven.
// Tests inject an always-yes or always-no callback.
type Confirmer func(prompt string) bool

// Stage is one provisioning step. Definitions are static, constructed
// once at startup.
type Stage struct {
	// Satisfied checks the stage's idempotency marker. Only consulted
	// when Idempotent is set.
	Satisfied func(ctx context.Context, s *Sequencer) (bool, string)
	Run       func(ctx context.Context, s *Sequencer) error
	ID        string
	Name      string
	// ConfirmPrompt gates destructive stages behind operator confirmation.
	ConfirmPrompt string
	// Requires lists stage IDs that must have succeeded earlier in the
	// same run. A hard precondition, not advisory.
	Requires   []string
	Idempotent bool
}

// Deps carries the sequencer's collaborators. Zero-value fields fall back
// to production implementations.
type Deps struct {
	Runner    toolrun.Runner
	Prober    *probe.Prober
	Ports     serialcmd.PortFactory
	PortProbe func(path string) probe.PortStatus
	Clock     clockwork.Clock
	Fs        afero.Fs
	Confirm   Confirmer
	Out       io.Writer
}

// Sequencer owns one provisioning run. Stages execute strictly
// sequentially; no stage result is useful until the previous completes.
type Sequencer struct {
	cfg       *config.Instance
	runner    toolrun.Runner
	prober    *probe.Prober
	ports     serialcmd.PortFactory
	portProbe func(path string) probe.PortStatus
	clock     clockwork.Clock
	fs        afero.Fs
	confirm   Confirmer
	out       io.Writer
	results   map[string]Result
}

func New(cfg *config.Instance, deps Deps) *Sequencer {
	if deps.Runner == nil {
		deps.Runner = toolrun.NewExecRunner()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Prober == nil {
		deps.Prober = probe.NewProber(probe.NewLsusbEnumerator(deps.Runner), deps.Clock)
	}
	if deps.Ports == nil {
		deps.Ports = serialcmd.DefaultPortFactory
	}
	if deps.PortProbe == nil {
		deps.PortProbe = probe.ProbeSerialPort
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Confirm == nil {
		// Headless default declines every destructive gate.
		deps.Confirm = func(string) bool { return false }
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	return &Sequencer{
		cfg:       cfg,
		runner:    deps.Runner,
		prober:    deps.Prober,
		ports:     deps.Ports,
		portProbe: deps.PortProbe,
		clock:     deps.Clock,
		fs:        deps.Fs,
		confirm:   deps.Confirm,
		out:       deps.Out,
		results:   make(map[string]Result),
	}
}

// Stages returns the full provisioning sequence in execution order.
func Stages() []Stage {
	return []Stage{
		tfCardStage(),
		mcuStage(),
		socRecoveryStage(),
		socFlashStage(),
		storageStage(),
	}
}

// RunStage evaluates one stage's preconditions, short-circuits satisfied
// idempotent stages, executes the body, and records the result.
func (s *Sequencer) RunStage(ctx context.Context, st Stage) Result {
	res := Result{StageID: st.ID, Name: st.Name}

	for _, dep := range st.Requires {
		prior, ran := s.results[dep]
		if !ran || prior.Status != StatusSuccess {
			res.Status = StatusFailed
			res.Reason = fmt.Sprintf("requires stage %q to have succeeded", dep)
			s.record(res)
			return res
		}
	}

	if st.Idempotent && st.Satisfied != nil {
		if ok, why := st.Satisfied(ctx, s); ok {
			res.Status = StatusSkipped
			res.Reason = "skipped: " + why
			s.record(res)
			return res
		}
	}

	if st.ConfirmPrompt != "" && !s.confirm(st.ConfirmPrompt) {
		res.Status = StatusFailed
		res.Reason = "declined by operator"
		s.record(res)
		return res
	}

	log.Info().Str("stage", st.ID).Msg("running stage")
	if err := st.Run(ctx, s); err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		s.record(res)
		return res
	}

	res.Status = StatusSuccess
	res.Reason = "completed"
	s.record(res)
	return res
}

// RunAll runs every stage in order. One stage's failure does not stop the
// attempt of the next unless a later stage declares a hard dependency on
// it. Returns all results plus the aggregate tally.
func (s *Sequencer) RunAll(ctx context.Context) ([]Result, Tally) {
	stages := Stages()
	results := make([]Result, 0, len(stages))

	for _, st := range stages {
		if ctx.Err() != nil {
			// Interrupted: remaining stages are abandoned. A destructive
			// stage interrupted mid-flight is not rolled back.
			log.Warn().Str("stage", st.ID).Msg("run interrupted, abandoning remaining stages")
			break
		}
		results = append(results, s.RunStage(ctx, st))
	}

	tally := Summarize(results)
	log.Info().
		Int("completed", tally.Completed).
		Int("skipped", tally.Skipped).
		Int("failed", tally.Failed).
		Int("total", tally.Total).
		Msg("provisioning run finished")

	return results, tally
}

// Result returns the recorded result of a stage in this run.
func (s *Sequencer) Result(stageID string) (Result, bool) {
	r, ok := s.results[stageID]
	return r, ok
}

func (s *Sequencer) record(res Result) {
	s.results[res.StageID] = res
	log.Info().
		Str("stage", res.StageID).
		Str("status", res.Status.String()).
		Str("reason", res.Reason).
		Msg("stage result")
	_, _ = fmt.Fprintf(s.out, "[%s] %s: %s\n", res.Status, res.Name, res.Reason)
}

func (s *Sequencer) retryBudget() RetryBudget {
	retry := s.cfg.Retry()
	return RetryBudget{
		MaxAttempts: retry.MaxAttempts,
		Backoff:     retry.Backoff(),
	}
}

// hardwareReset reboots the MCU, preferring the external helper when one
// is configured and falling back to the built-in DTR/RTS sequence.
func (s *Sequencer) hardwareReset(ctx context.Context, bootloader bool) error {
	serialCfg := s.cfg.Serial()

	if serialCfg.ResetHelper != "" {
		args := []string{serialCfg.Device}
		if bootloader {
			args = append(args, "bootloader")
		}
		res, err := s.runner.RunCapture(ctx, toolrun.Options{}, serialCfg.ResetHelper, args...)
		if err != nil {
			return fmt.Errorf("reset helper did not start: %w", err)
		}
		if !res.Succeeded() {
			return &ToolError{Tool: serialCfg.ResetHelper, Result: res}
		}
		return nil
	}

	return serialcmd.HardwareReset(serialCfg.Device, bootloader, s.ports, s.clock)
}
