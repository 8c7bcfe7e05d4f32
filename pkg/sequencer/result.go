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

// Status is the tri-state outcome of one stage.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result records one stage's outcome. Reason is never empty, even on
// success; results are always surfaced, never dropped.
type Result struct {
	StageID string
	Name    string
	Reason  string
	Status  Status
}

// Tally summarizes a full provisioning run.
type Tally struct {
	Completed int
	Skipped   int
	Failed    int
	Total     int
}

func Summarize(results []Result) Tally {
	t := Tally{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			t.Completed++
		case StatusSkipped:
			t.Skipped++
		case StatusFailed:
			t.Failed++
		}
	}
	return t
}
