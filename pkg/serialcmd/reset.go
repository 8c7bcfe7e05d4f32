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

package serialcmd

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// CH343 reset timings. DTR drives the MCU's EN pin, RTS drives GPIO0:
// DTR asserted pulls EN low, RTS asserted pulls GPIO0 low. Holding GPIO0
// low through the EN release boots the ROM bootloader.
const (
	resetSetupDelay   = 50 * time.Millisecond
	resetHoldDelay    = 100 * time.Millisecond
	resetReleaseDelay = 200 * time.Millisecond
)

// HardwareReset reboots the companion MCU through the CH343 modem control
// lines. With bootloader true the MCU comes up in its ROM bootloader,
// ready for flashing; otherwise it boots normally.
func HardwareReset(path string, bootloader bool, factory PortFactory, clock clockwork.Clock) error {
	if factory == nil {
		factory = DefaultPortFactory
	}

	port, err := factory(path, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s for hardware reset: %w", path, err)
	}
	defer func() {
		if closeErr := port.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("device", path).Msg("failed to close port after reset")
		}
	}()

	log.Info().
		Str("device", path).
		Bool("bootloader", bootloader).
		Msg("resetting companion MCU via DTR/RTS")

	// Release EN and preset GPIO0 for the target boot mode.
	if err := port.SetDTR(false); err != nil {
		return fmt.Errorf("failed to release EN: %w", err)
	}
	if err := port.SetRTS(bootloader); err != nil {
		return fmt.Errorf("failed to preset GPIO0: %w", err)
	}
	clock.Sleep(resetSetupDelay)

	// Pull EN low to reset.
	if err := port.SetDTR(true); err != nil {
		return fmt.Errorf("failed to assert EN: %w", err)
	}
	clock.Sleep(resetHoldDelay)

	// Release EN; the MCU starts in the mode GPIO0 selects.
	if err := port.SetDTR(false); err != nil {
		return fmt.Errorf("failed to release EN after reset: %w", err)
	}
	clock.Sleep(resetReleaseDelay)

	return nil
}
