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

//go:build linux

// Package probe detects physical device state through the side channels
// the OS exposes: device node presence and permissions, process handles,
// and USB enumeration. Pure detection, no mutation.
package probe

import (
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// PortStatus describes the observable state of a serial device node.
type PortStatus struct {
	// HolderPID is the process currently holding the port open, or zero
	// when the port is free. The caller decides whether to terminate it.
	HolderPID int32
	Present   bool
	Readable  bool
	Writable  bool
}

// Free reports whether the port is present, accessible and unheld.
func (s PortStatus) Free() bool {
	return s.Present && s.Readable && s.Writable && s.HolderPID == 0
}

// ProbeSerialPort stats a serial device node and reports presence,
// effective read/write permission and any process holding it open.
func ProbeSerialPort(path string) PortStatus {
	var status PortStatus

	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		log.Debug().Str("path", path).Err(err).Msg("serial port absent")
		return status
	}
	status.Present = true

	status.Readable = unix.Access(path, unix.R_OK) == nil
	status.Writable = unix.Access(path, unix.W_OK) == nil
	if !status.Readable || !status.Writable {
		log.Warn().
			Str("path", path).
			Bool("readable", status.Readable).
			Bool("writable", status.Writable).
			Msg("serial port permissions deny access, escalation may be needed")
	}

	status.HolderPID = findHolder(path)
	return status
}

// findHolder scans running processes for one with the device node open.
// Returns zero when no holder is found or the scan is not permitted.
func findHolder(path string) int32 {
	procs, err := process.Processes()
	if err != nil {
		log.Debug().Err(err).Msg("cannot enumerate processes for port holder check")
		return 0
	}

	for _, p := range procs {
		files, err := p.OpenFiles()
		if err != nil {
			// Other users' processes are not readable without privilege.
			continue
		}
		for i := range files {
			if files[i].Path == path {
				log.Debug().
					Str("path", path).
					Int32("pid", p.Pid).
					Msg("serial port held by another process")
				return p.Pid
			}
		}
	}

	return 0
}
