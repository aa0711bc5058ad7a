// go-uhf
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uhf.
//
// go-uhf is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uhf is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uhf; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package uart provides a serial transport for UHF readers using go.bug.st/serial
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	uhf "github.com/ZaparooProject/go-uhf"
)

const (
	// DefaultBaudRate is the reader's factory line speed
	DefaultBaudRate = 115200
	// DefaultTimeout bounds the wait for the first byte of a response
	DefaultTimeout = time.Second
	// DefaultInterByteTimeout ends a read once the line goes quiet mid-response
	DefaultInterByteTimeout = 100 * time.Millisecond
)

// port is the subset of serial.Port the transport needs
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements uhf.Transport over a serial line
type Transport struct {
	port             port
	portName         string
	mode             serial.Mode
	timeout          time.Duration
	interByteTimeout time.Duration
	mu               sync.Mutex
}

// Option configures a Transport before the port is opened
type Option func(*Transport) error

// WithBaudRate overrides the line speed
func WithBaudRate(baud int) Option {
	return func(t *Transport) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate must be positive, got %d", uhf.ErrInvalidParameter, baud)
		}
		t.mode.BaudRate = baud
		return nil
	}
}

// WithTimeout sets the wait for the first response byte
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", uhf.ErrInvalidParameter, timeout)
		}
		t.timeout = timeout
		return nil
	}
}

// WithInterByteTimeout sets how long a partial response may stall before
// ReadUpTo returns it. Zero waits the full timeout for every chunk.
func WithInterByteTimeout(timeout time.Duration) Option {
	return func(t *Transport) error {
		if timeout < 0 {
			return fmt.Errorf("%w: inter-byte timeout must not be negative, got %v", uhf.ErrInvalidParameter, timeout)
		}
		t.interByteTimeout = timeout
		return nil
	}
}

// New opens portName at 115200 8N1 unless overridden by opts
func New(portName string, opts ...Option) (*Transport, error) {
	t, err := newTransport(portName, opts...)
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(portName, &t.mode)
	if err != nil {
		return nil, uhf.NewTransportError("open", portName, err, uhf.ErrorTypePermanent)
	}

	if err := t.attach(p); err != nil {
		return nil, err
	}
	return t, nil
}

func newTransport(portName string, opts ...Option) (*Transport, error) {
	if portName == "" {
		return nil, fmt.Errorf("%w: port name is empty", uhf.ErrInvalidParameter)
	}

	t := &Transport{
		portName: portName,
		mode: serial.Mode{
			BaudRate: DefaultBaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		timeout:          DefaultTimeout,
		interByteTimeout: DefaultInterByteTimeout,
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Transport) attach(p port) error {
	if err := p.SetReadTimeout(t.timeout); err != nil {
		_ = p.Close()
		return uhf.NewTransportError("set timeout", t.portName, err, uhf.ErrorTypePermanent)
	}
	t.port = p
	return nil
}

// Write discards unread input from an earlier exchange and sends data
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return uhf.NewTransportError("write", t.portName, uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return uhf.NewTransportError("write", t.portName,
			fmt.Errorf("%w: reset input: %w", uhf.ErrTransportWrite, err), uhf.ErrorTypeTransient)
	}

	n, err := t.port.Write(data)
	if err != nil {
		return uhf.NewTransportError("write", t.portName,
			fmt.Errorf("%w: %w", uhf.ErrTransportWrite, err), uhf.ErrorTypeTransient)
	}
	if n != len(data) {
		return uhf.NewTransportError("write", t.portName,
			fmt.Errorf("%w: wrote %d of %d bytes", uhf.ErrTransportWrite, n, len(data)), uhf.ErrorTypeTransient)
	}
	return nil
}

// ReadUpTo collects at most maxBytes. It returns early, possibly with no
// data, when the line stays quiet for the configured timeout.
func (t *Transport) ReadUpTo(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: maxBytes must be positive, got %d", uhf.ErrInvalidParameter, maxBytes)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, uhf.NewTransportError("read", t.portName, uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}

	buf := make([]byte, maxBytes)
	got := 0
	shortened := false
	defer func() {
		if shortened {
			_ = t.port.SetReadTimeout(t.timeout)
		}
	}()

	for got < maxBytes {
		n, err := t.port.Read(buf[got:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, uhf.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", uhf.ErrTransportRead, err), uhf.ErrorTypeTransient)
		}
		if n == 0 {
			break
		}
		got += n

		if !shortened && t.interByteTimeout > 0 && t.interByteTimeout < t.timeout {
			if err := t.port.SetReadTimeout(t.interByteTimeout); err == nil {
				shortened = true
			}
		}
	}

	return buf[:got], nil
}

// SetTimeout sets the wait for the first response byte
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timeout = timeout
	if t.port == nil {
		return nil
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return uhf.NewTransportError("set timeout", t.portName, err, uhf.ErrorTypePermanent)
	}
	return nil
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return uhf.NewTransportError("close", t.portName, err, uhf.ErrorTypePermanent)
	}
	return nil
}

// IsConnected returns true while the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() uhf.TransportType {
	return uhf.TransportUART
}

// PortName returns the serial device name
func (t *Transport) PortName() string {
	return t.portName
}

// BaudRate returns the configured line speed
func (t *Transport) BaudRate() int {
	return t.mode.BaudRate
}
