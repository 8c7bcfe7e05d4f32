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
	"sync"
	"time"
)

// FakePort is a scripted serial port. Queued responses are returned one
// chunk per Read; once the queue drains, Read simulates the port's read
// timeout by pausing briefly and returning zero bytes.
type FakePort struct {
	mu        sync.Mutex
	responses [][]byte
	writes    [][]byte
	dtr       []bool
	rts       []bool
	closed    bool

	// IdleDelay is how long a drained Read pauses before returning
	// zero bytes, mimicking SetReadTimeout behavior.
	IdleDelay time.Duration
}

func NewFakePort(responses ...string) *FakePort {
	p := &FakePort{IdleDelay: 5 * time.Millisecond}
	for _, r := range responses {
		p.responses = append(p.responses, []byte(r))
	}
	return p
}

func (p *FakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.responses) == 0 {
		p.mu.Unlock()
		time.Sleep(p.IdleDelay)
		return 0, nil
	}
	chunk := p.responses[0]
	p.responses = p.responses[1:]
	p.mu.Unlock()

	n := copy(buf, chunk)
	return n, nil
}

func (p *FakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.writes = append(p.writes, cp)
	return len(data), nil
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (*FakePort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *FakePort) SetDTR(dtr bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dtr = append(p.dtr, dtr)
	return nil
}

func (p *FakePort) SetRTS(rts bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rts = append(p.rts, rts)
	return nil
}

// Writes returns everything written to the port, as strings.
func (p *FakePort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.writes))
	for _, w := range p.writes {
		out = append(out, string(w))
	}
	return out
}

// DTRSequence returns the recorded DTR transitions.
func (p *FakePort) DTRSequence() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.dtr...)
}

// RTSSequence returns the recorded RTS transitions.
func (p *FakePort) RTSSequence() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.rts...)
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
