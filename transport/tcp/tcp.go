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

// Package tcp provides a transport for readers behind a serial-to-network bridge
package tcp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

const (
	// DefaultTimeout bounds the wait for the first byte of a response
	DefaultTimeout = time.Second
	// DefaultDialTimeout bounds connection setup
	DefaultDialTimeout = 5 * time.Second
	// DefaultKeepAlive is the TCP keep-alive period
	DefaultKeepAlive = 30 * time.Second
	// DefaultInterByteTimeout ends a read once the bridge goes quiet mid-response
	DefaultInterByteTimeout = 100 * time.Millisecond
)

// Transport implements uhf.Transport over a TCP connection
type Transport struct {
	conn             net.Conn
	address          string
	timeout          time.Duration
	dialTimeout      time.Duration
	keepAlive        time.Duration
	interByteTimeout time.Duration
	mu               sync.Mutex
}

// Option configures a Transport before it connects
type Option func(*Transport) error

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

// WithDialTimeout sets the connect timeout
func WithDialTimeout(timeout time.Duration) Option {
	return func(t *Transport) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: dial timeout must be positive, got %v", uhf.ErrInvalidParameter, timeout)
		}
		t.dialTimeout = timeout
		return nil
	}
}

// WithKeepAlive sets the keep-alive period. Negative disables keep-alive.
func WithKeepAlive(period time.Duration) Option {
	return func(t *Transport) error {
		t.keepAlive = period
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

// New dials address ("host:port")
func New(address string, opts ...Option) (*Transport, error) {
	t, err := newTransport(address, opts...)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: t.dialTimeout, KeepAlive: t.keepAlive}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, uhf.NewTransportError("dial", address, err, uhf.ErrorTypeTransient)
	}
	t.conn = conn
	return t, nil
}

func newTransport(address string, opts ...Option) (*Transport, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address is empty", uhf.ErrInvalidParameter)
	}

	t := &Transport{
		address:          address,
		timeout:          DefaultTimeout,
		dialTimeout:      DefaultDialTimeout,
		keepAlive:        DefaultKeepAlive,
		interByteTimeout: DefaultInterByteTimeout,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Write sends data within the configured timeout
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return uhf.NewTransportError("write", t.address, uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return uhf.NewTransportError("write", t.address,
			fmt.Errorf("%w: %w", uhf.ErrTransportWrite, err), uhf.ErrorTypeTransient)
	}
	if _, err := t.conn.Write(data); err != nil {
		if isTimeout(err) {
			return uhf.NewTimeoutError("write", t.address)
		}
		return uhf.NewTransportError("write", t.address,
			fmt.Errorf("%w: %w", uhf.ErrTransportWrite, err), uhf.ErrorTypeTransient)
	}
	return nil
}

// ReadUpTo collects at most maxBytes. A deadline expiry ends the read and
// returns whatever arrived, possibly nothing.
func (t *Transport) ReadUpTo(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: maxBytes must be positive, got %d", uhf.ErrInvalidParameter, maxBytes)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, uhf.NewTransportError("read", t.address, uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}

	buf := make([]byte, maxBytes)
	got := 0
	wait := t.timeout
	for got < maxBytes {
		if err := t.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return nil, uhf.NewTransportError("read", t.address,
				fmt.Errorf("%w: %w", uhf.ErrTransportRead, err), uhf.ErrorTypeTransient)
		}

		n, err := t.conn.Read(buf[got:])
		got += n
		if err != nil {
			if isTimeout(err) {
				break
			}
			return nil, uhf.NewTransportError("read", t.address,
				fmt.Errorf("%w: %w", uhf.ErrTransportRead, err), uhf.ErrorTypeTransient)
		}
		if t.interByteTimeout > 0 && t.interByteTimeout < t.timeout {
			wait = t.interByteTimeout
		}
	}

	return buf[:got], nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// SetTimeout sets the wait for the first response byte
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", uhf.ErrInvalidParameter, timeout)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	if err != nil {
		return uhf.NewTransportError("close", t.address, err, uhf.ErrorTypePermanent)
	}
	return nil
}

// IsConnected returns true while the connection is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Type returns the transport type
func (*Transport) Type() uhf.TransportType {
	return uhf.TransportTCP
}

// Address returns the remote address
func (t *Transport) Address() string {
	return t.address
}
