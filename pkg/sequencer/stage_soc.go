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

	"github.com/boardprov/boardprov/pkg/probe"
	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// socRecoveryStage drives the host SoC into USB recovery mode through the
// companion MCU: route the USB mux to the SoC, reboot, issue the recovery
// command, then wait for the vendor's recovery signature to enumerate.
//
// Classification of this particular transcript is not machine-reliable,
// so each attempt asks the operator to visually confirm it before USB
// detection. Exhausting attempts without confirmation is terminal for
// the whole flashing flow.
func socRecoveryStage() Stage {
	return Stage{
		ID:   "soc-recovery",
		Name: "host SoC recovery mode entry",
		Run:  runSocRecovery,
	}
}

func runSocRecovery(ctx context.Context, s *Sequencer) error {
	usb := s.cfg.USB()
	rec := s.cfg.Recovery()
	recoverySig := probe.Signature{Vendor: usb.SocRecoveryVendor, Product: usb.SocRecoveryProduct}

	for attempt := 1; attempt <= rec.MaxAttempts; attempt++ {
		log.Info().
			Int("attempt", attempt).
			Int("max_attempts", rec.MaxAttempts).
			Msg("attempting SoC recovery entry")

		if err := s.sendRecoverySequence(ctx); err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("recovery sequence failed")
			continue
		}

		s.clock.Sleep(rec.SettleDelay())

		if !s.confirm("Did the recovery command transcript above look correct?") {
			continue
		}

		if _, err := s.prober.WaitForUSB(ctx, recoverySig, usb.MaxAttempts, usb.PollInterval()); err == nil {
			return nil
		}
		log.Warn().
			Str("signature", recoverySig.String()).
			Int("attempt", attempt).
			Msg("recovery device never enumerated")
	}

	return fmt.Errorf("SoC did not enter recovery mode after %d attempts", rec.MaxAttempts)
}

// sendRecoverySequence issues the mux/reboot/recovery commands on a fresh
// channel, echoing every transcript for the operator to judge.
func (s *Sequencer) sendRecoverySequence(ctx context.Context) error {
	serialCfg := s.cfg.Serial()

	ch, err := serialcmd.Open(serialCfg.Device, serialCfg.BaudRate, s.ports, s.clock)
	if err != nil {
		return fmt.Errorf("failed to open serial channel: %w", err)
	}
	defer func() {
		if closeErr := ch.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close serial channel")
		}
	}()

	for _, cmd := range []string{serialcmd.CmdUsbMuxSoc, serialcmd.CmdReboot, serialcmd.CmdSocRecovery} {
		transcript, err := ch.Send(ctx, cmd, serialCfg.ResponseWindow())
		if err != nil {
			return fmt.Errorf("failed to send %q: %w", cmd, err)
		}

		_, _ = fmt.Fprintf(s.out, "> %s\n", cmd)
		for _, line := range transcript.Lines {
			_, _ = fmt.Fprintf(s.out, "  %s\n", line)
		}

		if verdict, keyword := serialcmd.Classify(transcript); verdict == serialcmd.VerdictError {
			return fmt.Errorf("device rejected %q (matched %q)", cmd, keyword)
		}

		s.clock.Sleep(serialCfg.SettleDelay())
	}

	return nil
}

// socFlashStage runs the vendor flashing toolchain against the SoC.
// Hard dependency: flashing is only possible from recovery mode.
func socFlashStage() Stage {
	return Stage{
		ID:       "soc-flash",
		Name:     "host SoC firmware flash",
		Requires: []string{"soc-recovery"},
		Run:      runSocFlash,
	}
}

func runSocFlash(ctx context.Context, s *Sequencer) error {
	fw := s.cfg.Firmware()

	populated, err := afero.DirExists(s.fs, fw.Dir)
	if err != nil || !populated {
		return &PreconditionError{
			What: fmt.Sprintf("firmware directory %s missing, run the TF card stage first", fw.Dir),
		}
	}

	args := append([]string{}, fw.SocFlashArgs...)
	res, err := s.runner.RunCapture(ctx,
		toolrun.Options{Stream: s.out, WorkingDir: fw.Dir},
		fw.SocFlashTool, args...)
	if err != nil {
		return fmt.Errorf("SoC flash tool did not start: %w", err)
	}
	if !res.Succeeded() {
		return &ToolError{Tool: fw.SocFlashTool, Result: res}
	}

	return nil
}
