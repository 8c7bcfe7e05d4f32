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

package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boardprov/boardprov/pkg/toolrun"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrUSBNotFound is returned when a signature never appeared within the
// attempt budget. Terminal for the probe; the caller decides whether to
// escalate to the operator.
var ErrUSBNotFound = errors.New("usb device signature not found")

// Signature identifies a USB device by case-insensitive substring match
// against the enumerated vendor and product description.
type Signature struct {
	Vendor  string
	Product string
}

func (s Signature) String() string {
	if s.Product == "" {
		return s.Vendor
	}
	return s.Vendor + " " + s.Product
}

// Device is one enumerated USB device.
type Device struct {
	ID          string
	Description string
}

// Matches reports whether the device description contains both signature
// fields, ignoring case.
func (d Device) Matches(sig Signature) bool {
	desc := strings.ToLower(d.Description)
	if !strings.Contains(desc, strings.ToLower(sig.Vendor)) {
		return false
	}
	return sig.Product == "" || strings.Contains(desc, strings.ToLower(sig.Product))
}

// Enumerator lists currently attached USB devices.
type Enumerator interface {
	List(ctx context.Context) ([]Device, error)
}

// LsusbEnumerator enumerates USB devices by parsing lsusb output.
type LsusbEnumerator struct {
	runner toolrun.Runner
}

func NewLsusbEnumerator(runner toolrun.Runner) *LsusbEnumerator {
	return &LsusbEnumerator{runner: runner}
}

// List parses lsusb lines of the form:
//
//	Bus 001 Device 004: ID 0955:7023 NVIDIA Corp. APX
func (e *LsusbEnumerator) List(ctx context.Context) ([]Device, error) {
	out, err := e.runner.Output(ctx, "lsusb")
	if err != nil {
		return nil, fmt.Errorf("failed to run lsusb: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idx := strings.Index(line, " ID ")
		if idx < 0 {
			continue
		}

		rest := strings.TrimSpace(line[idx+4:])
		id, desc, found := strings.Cut(rest, " ")
		if !found {
			devices = append(devices, Device{ID: rest})
			continue
		}

		devices = append(devices, Device{ID: id, Description: strings.TrimSpace(desc)})
	}

	return devices, nil
}

// Prober polls for device signatures. USB re-enumeration after a mode
// switch is not instantaneous and the OS offers no completion event, so
// bounded polling is the only correct strategy.
type Prober struct {
	enum  Enumerator
	clock clockwork.Clock
}

func NewProber(enum Enumerator, clock clockwork.Clock) *Prober {
	return &Prober{enum: enum, clock: clock}
}

// WaitForUSB polls the enumerator up to maxAttempts times, sleeping
// pollInterval between tries, until a device matching sig appears.
// Returns the number of polls used, or ErrUSBNotFound after exhausting
// the budget.
func (p *Prober) WaitForUSB(
	ctx context.Context, sig Signature, maxAttempts int, pollInterval time.Duration,
) (int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		devices, err := p.enum.List(ctx)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("usb enumeration failed")
		} else {
			for _, d := range devices {
				if d.Matches(sig) {
					log.Info().
						Str("signature", sig.String()).
						Str("device", d.Description).
						Int("attempt", attempt).
						Msg("usb device found")
					return attempt, nil
				}
			}
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("usb wait cancelled: %w", ctx.Err())
		case <-p.clock.After(pollInterval):
		}
	}

	log.Warn().
		Str("signature", sig.String()).
		Int("attempts", maxAttempts).
		Msg("usb device never enumerated")

	return maxAttempts, fmt.Errorf("%w: %s after %d attempts", ErrUSBNotFound, sig, maxAttempts)
}
