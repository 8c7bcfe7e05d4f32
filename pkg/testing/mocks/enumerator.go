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

package mocks

import (
	"context"
	"sync"

	"github.com/boardprov/boardprov/pkg/probe"
)

// FakeEnumerator reports an empty USB bus until FoundOnPoll is reached,
// then includes the configured device. Counts every poll.
type FakeEnumerator struct {
	mu          sync.Mutex
	polls       int
	Device      probe.Device
	FoundOnPoll int
}

func (e *FakeEnumerator) List(_ context.Context) ([]probe.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.polls++
	if e.FoundOnPoll > 0 && e.polls >= e.FoundOnPoll {
		return []probe.Device{e.Device}, nil
	}
	return nil, nil
}

// Polls returns how many times the bus was enumerated.
func (e *FakeEnumerator) Polls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.polls
}
