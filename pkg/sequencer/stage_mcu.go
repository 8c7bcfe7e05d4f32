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
	"strconv"

	"github.com/boardprov/boardprov/pkg/probe"
	"github.com/boardprov/boardprov/pkg/serialcmd"
	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/rs/zerolog/log"
)

// mcuStage flashes the companion MCU and initializes its parameters over
// the serial channel.
func mcuStage() Stage {
	return Stage{
		ID:   "mcu",
		Name: "MCU firmware flash + parameter init",
		Run:  runMcu,
	}
}

func runMcu(ctx context.Context, s *Sequencer) error {
	serialCfg := s.cfg.Serial()

	if err := s.claimSerialPort(ctx, serialCfg.Device); err != nil {
		return err
	}

	// Reset into the ROM bootloader for flashing. Helper failure is a
	// warning; the configured policy decides whether to push on, since
	// some boards enter the bootloader on their own after power-up.
	if err := s.hardwareReset(ctx, true); err != nil {
		log.Warn().Err(err).Msg("bootloader reset failed")
		if !serialCfg.ContinueAfterResetFailure {
			return fmt.Errorf("bootloader reset failed: %w", err)
		}
	}

	usb := s.cfg.USB()
	bootSig := probe.Signature{Vendor: usb.McuBootVendor, Product: usb.McuBootProduct}
	if _, err := s.prober.WaitForUSB(ctx, bootSig, usb.MaxAttempts, usb.PollInterval()); err != nil {
		return &PreconditionError{
			What: fmt.Sprintf("MCU bootloader never enumerated (%s), check the USB cable", bootSig),
		}
	}

	fw := s.cfg.Firmware()
	args := append([]string{}, fw.McuFlashArgs...)
	res, err := s.runner.RunCapture(ctx,
		toolrun.Options{Stream: s.out, WorkingDir: fw.Dir},
		fw.McuFlashTool, args...)
	if err != nil {
		return fmt.Errorf("MCU flash tool did not start: %w", err)
	}
	if !res.Succeeded() {
		return &ToolError{Tool: fw.McuFlashTool, Result: res}
	}

	// Back to normal boot, then give the firmware time to come up before
	// talking to it. No completion signal exists for this.
	if err := s.hardwareReset(ctx, false); err != nil {
		log.Warn().Err(err).Msg("normal-mode reset failed")
		if !serialCfg.ContinueAfterResetFailure {
			return fmt.Errorf("normal-mode reset failed: %w", err)
		}
	}
	s.clock.Sleep(serialCfg.SettleDelay())

	return s.initParameters(ctx)
}

// claimSerialPort verifies the serial node is present and accessible,
// offering to terminate any process holding it.
func (s *Sequencer) claimSerialPort(ctx context.Context, device string) error {
	status := s.portProbe(device)
	if !status.Present {
		return &PreconditionError{
			What: fmt.Sprintf("serial device %s not present, connect the board", device),
		}
	}
	if !status.Readable || !status.Writable {
		return &PreconditionError{
			What: fmt.Sprintf("insufficient permissions on %s, run with elevated privileges", device),
		}
	}

	if status.HolderPID != 0 {
		prompt := fmt.Sprintf("%s is held by process %d. Terminate it?", device, status.HolderPID)
		if !s.confirm(prompt) {
			return &PreconditionError{
				What: fmt.Sprintf("%s is held by process %d", device, status.HolderPID),
			}
		}
		if err := s.runner.Run(ctx, "kill", strconv.Itoa(int(status.HolderPID))); err != nil {
			return fmt.Errorf("failed to terminate process %d: %w", status.HolderPID, err)
		}
	}

	return nil
}

// initParameters sends the configured parameter commands followed by a
// save and a reboot. Individual commands retry within the budget when the
// MCU reports an error; silence on a query is flagged but not fatal.
func (s *Sequencer) initParameters(ctx context.Context) error {
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

	commands := append([]string{}, s.cfg.Mcu().InitCommands...)
	commands = append(commands, serialcmd.CmdSave)

	for _, cmd := range commands {
		if err := s.sendChecked(ctx, ch, cmd); err != nil {
			return err
		}
		s.clock.Sleep(serialCfg.SettleDelay())
	}

	// Reboot gets no reply by definition; fire and forget.
	if _, err := ch.Send(ctx, serialcmd.CmdReboot, serialCfg.ResponseWindow()); err != nil {
		return fmt.Errorf("failed to send reboot: %w", err)
	}

	return nil
}

// sendChecked sends one command and classifies the response, retrying
// within the budget when the MCU reports an error.
func (s *Sequencer) sendChecked(ctx context.Context, ch *serialcmd.Channel, cmd string) error {
	window := s.cfg.Serial().ResponseWindow()

	return Retry(ctx, s.clock, s.retryBudget(), func(ctx context.Context) error {
		transcript, err := ch.Send(ctx, cmd, window)
		if err != nil {
			return fmt.Errorf("failed to send %q: %w", cmd, err)
		}

		verdict, keyword := serialcmd.Classify(transcript)
		switch verdict {
		case serialcmd.VerdictError:
			return fmt.Errorf("device rejected %q (matched %q): %s", cmd, keyword, transcript.Text())
		case serialcmd.VerdictSilentSuspect:
			// Suspicious but not machine-decidable; surface it and move on.
			ambig := &AmbiguousError{Command: cmd, Verdict: verdict}
			log.Warn().Str("command", cmd).Msg("query got no reply within window")
			_, _ = fmt.Fprintf(s.out, "warning: %s\n", ambig)
		case serialcmd.VerdictAcknowledged:
		}
		return nil
	})
}
