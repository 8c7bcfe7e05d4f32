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

// Package serialcmd drives the companion MCU over its serial command
// protocol: line-terminated text commands with a bounded response capture
// window and keyword-based transcript classification.
package serialcmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boardprov/boardprov/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
)

// readPollTimeout bounds each individual port read so the capture loop can
// re-check its window deadline. Devices that stay silent must not block
// the caller past the window.
const readPollTimeout = 50 * time.Millisecond

// Port defines the serial port operations used by the channel
// (for mocking in tests).
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// PortFactory creates a serial port connection.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory is the default factory that opens real serial ports.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Transcript is the bounded capture of everything the device emitted in
// response to one command. Created per command, discarded after
// classification.
type Transcript struct {
	Command string
	Lines   []string
	Window  time.Duration
}

// Text returns the captured response as a single string.
func (t *Transcript) Text() string {
	return strings.Join(t.Lines, "\n")
}

// Empty reports whether the device emitted nothing during the window.
func (t *Transcript) Empty() bool {
	return len(t.Lines) == 0
}

// Channel owns exclusive access to one serial endpoint. Only one command
// is ever in flight per channel; concurrent commands on one physical port
// corrupt both transcripts.
type Channel struct {
	port  Port
	clock clockwork.Clock
	path  string
	mu    syncutil.Mutex
}

// Open opens a serial channel on the given device path.
func Open(path string, baudRate int, factory PortFactory, clock clockwork.Clock) (*Channel, error) {
	if factory == nil {
		factory = DefaultPortFactory
	}

	port, err := factory(path, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial channel %s: %w", path, err)
	}

	return &Channel{
		port:  port,
		path:  path,
		clock: clock,
	}, nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial channel %s: %w", c.path, err)
	}
	return nil
}

func (c *Channel) Path() string {
	return c.path
}

// Send writes a line-terminated command and captures everything the device
// emits for the duration of window. The capture starts before the write
// completes: devices may begin echoing before the write call returns, and
// starting capture afterwards loses the first bytes. The capture does not
// wait for a quiet period; some commands legitimately produce no output.
func (c *Channel) Send(ctx context.Context, command string, window time.Duration) (*Transcript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil, fmt.Errorf("serial channel %s is closed", c.path)
	}

	if err := c.port.SetReadTimeout(readPollTimeout); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	transcript := &Transcript{
		Command: command,
		Window:  window,
	}

	readerStarted := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		close(readerStarted)

		var raw []byte
		buf := make([]byte, 256)
		deadline := c.clock.Now().Add(window)

		for c.clock.Now().Before(deadline) {
			select {
			case <-gctx.Done():
				transcript.Lines = splitResponse(raw)
				return nil
			default:
			}

			n, err := c.port.Read(buf)
			if err != nil {
				// Capture whatever arrived before the port failed.
				transcript.Lines = splitResponse(raw)
				return fmt.Errorf("failed to read from %s: %w", c.path, err)
			}
			if n > 0 {
				raw = append(raw, buf[:n]...)
			}
		}

		transcript.Lines = splitResponse(raw)
		return nil
	})

	g.Go(func() error {
		<-readerStarted
		_, err := c.port.Write([]byte(command + CommandTerminator))
		if err != nil {
			return fmt.Errorf("failed to write to %s: %w", c.path, err)
		}
		log.Debug().Str("device", c.path).Str("command", command).Msg("sent serial command")
		return nil
	})

	if err := g.Wait(); err != nil {
		return transcript, err
	}

	log.Debug().
		Str("device", c.path).
		Str("command", command).
		Int("lines", len(transcript.Lines)).
		Msg("serial capture window closed")

	return transcript, nil
}

// splitResponse breaks raw captured bytes into trimmed, non-empty lines.
func splitResponse(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// SetBaud reconfigures a device's baud rate. Best-effort: some devices
// self-configure, so failure is a warning rather than an error.
func SetBaud(path string, baudRate int, factory PortFactory) {
	if factory == nil {
		factory = DefaultPortFactory
	}

	port, err := factory(path, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Warn().Err(err).Str("device", path).Int("baud", baudRate).
			Msg("failed to set baud rate, device may self-configure")
		return
	}

	if err := port.Close(); err != nil {
		log.Warn().Err(err).Str("device", path).Msg("failed to close port after baud set")
	}
}
