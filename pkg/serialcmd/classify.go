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

// Verdict is the classification of one command's transcript.
type Verdict int

const (
	// VerdictAcknowledged means the device replied without any failure
	// keyword, or stayed acceptably silent for a fire-and-forget command.
	VerdictAcknowledged Verdict = iota
	// VerdictError means the response contained a failure keyword.
	VerdictError
	// VerdictSilentSuspect means a query-type command got no reply.
	// Suspicious but not a hard failure; escalated to operator judgment.
	VerdictSilentSuspect
)

func (v Verdict) String() string {
	switch v {
	case VerdictAcknowledged:
		return "acknowledged"
	case VerdictError:
		return "error"
	case VerdictSilentSuspect:
		return "silent (expected a reply)"
	default:
		return "unclassified"
	}
}

// failureKeywords trigger VerdictError when present anywhere in a
// transcript, case-insensitively.
var failureKeywords = []string{
	"error",
	"fail",
	"invalid",
	"unknown",
}

// Classify scans a transcript for failure keywords and resolves silence
// against the command's shape. Returns the verdict and, for errors, the
// keyword that matched.
func Classify(t *Transcript) (Verdict, string) {
	if t.Empty() {
		if CommandShape(t.Command) == ShapeQuery {
			return VerdictSilentSuspect, ""
		}
		return VerdictAcknowledged, ""
	}

	text := strings.ToLower(t.Text())
	for _, keyword := range failureKeywords {
		if strings.Contains(text, keyword) {
			return VerdictError, keyword
		}
	}

	return VerdictAcknowledged, ""
}
