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

import "strings"

// Companion MCU command surface. Line-terminated text, no framing,
// no checksums. The MCU gives no delivery guarantee; robustness lives
// entirely in transcript classification.
const (
	CmdUsbMuxSoc   = "usbmux agx"   // route the USB mux to the host SoC
	CmdSocRecovery = "agx recovery" // ask the SoC to enter recovery mode
	CmdReboot      = "reboot"
	CmdSave        = "save"

	CommandTerminator = "\n"
)

// Shape describes what kind of reply a command's protocol defines.
type Shape int

const (
	// ShapeAction commands (reboot, usbmux) produce no defined reply.
	ShapeAction Shape = iota
	// ShapeSet commands (config writes, save) produce no defined reply.
	ShapeSet
	// ShapeQuery commands are expected to answer; silence is suspicious.
	ShapeQuery
)

// queryPrefixes marks commands whose protocol defines a reply. Everything
// else is treated as fire-and-forget, where silence is expected behavior.
var queryPrefixes = []string{
	"status",
	"version",
	"net config get",
	"fan config get",
}

var setPrefixes = []string{
	"net config set",
	"fan config",
	"save",
}

// CommandShape classifies a command by its text so the transcript
// classifier knows whether silence is acceptable.
func CommandShape(command string) Shape {
	cmd := strings.ToLower(strings.TrimSpace(command))

	for _, p := range queryPrefixes {
		if strings.HasPrefix(cmd, p) {
			return ShapeQuery
		}
	}

	for _, p := range setPrefixes {
		if strings.HasPrefix(cmd, p) {
			return ShapeSet
		}
	}

	return ShapeAction
}
