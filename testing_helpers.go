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

package uhf

import (
	"bytes"
	"sync"
	"time"
)

// MockResponse is one scripted answer to a ReadUpTo call
type MockResponse struct {
	Err  error
	Data []byte
}

// MockTransport is a scripted Transport for tests. Each ReadUpTo pops the next
// queued response; an exhausted queue behaves like a read timeout and returns
// no bytes. When ResponseFunc is set it answers the most recent write instead.
type MockTransport struct {
	writeErrs    map[int]error
	ResponseFunc func(request []byte) ([]byte, error)
	responses    []MockResponse
	writes       [][]byte
	timeout      time.Duration
	closeCount   int
	mu           sync.Mutex
	closed       bool
}

// NewMockTransport creates a mock that answers reads with responses in order
func NewMockTransport(responses ...[]byte) *MockTransport {
	m := &MockTransport{
		writeErrs: make(map[int]error),
		timeout:   DefaultTimeout,
	}
	for _, r := range responses {
		m.QueueResponse(r)
	}
	return m
}

// QueueResponse appends a response for a future read
func (m *MockTransport) QueueResponse(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Data: bytes.Clone(data)})
}

// QueueError makes a future read fail with err
func (m *MockTransport) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Err: err})
}

// SetWriteError makes the write with the given zero-based index fail
func (m *MockTransport) SetWriteError(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[index] = err
}

// SetResponseFunc answers every read from the most recent write
func (m *MockTransport) SetResponseFunc(fn func(request []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResponseFunc = fn
}

// Write records data
func (m *MockTransport) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewTransportError("write", "mock", ErrTransportClosed, ErrorTypePermanent)
	}
	index := len(m.writes)
	m.writes = append(m.writes, bytes.Clone(data))
	if err, ok := m.writeErrs[index]; ok {
		return err
	}
	return nil
}

// ReadUpTo returns the next scripted response truncated to maxBytes
func (m *MockTransport) ReadUpTo(maxBytes int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, NewTransportError("read", "mock", ErrTransportClosed, ErrorTypePermanent)
	}

	var data []byte
	if m.ResponseFunc != nil {
		var last []byte
		if len(m.writes) > 0 {
			last = m.writes[len(m.writes)-1]
		}
		resp, err := m.ResponseFunc(last)
		if err != nil {
			return nil, err
		}
		data = resp
	} else {
		if len(m.responses) == 0 {
			return nil, nil
		}
		next := m.responses[0]
		m.responses = m.responses[1:]
		if next.Err != nil {
			return nil, next.Err
		}
		data = next.Data
	}

	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return bytes.Clone(data), nil
}

// SetTimeout records the timeout
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Timeout returns the last timeout set
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Close marks the transport closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCount++
	return nil
}

// IsConnected reports whether Close has not been called
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Writes returns copies of every frame written so far
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = bytes.Clone(w)
	}
	return out
}

// WriteCount returns the number of writes
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// CloseCount returns the number of Close calls
func (m *MockTransport) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// BlockingMockTransport is a mock transport whose reads block on demand.
// It is used for testing context cancellation.
type BlockingMockTransport struct {
	blockChan chan struct{}
	Response  []byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		blockChan: make(chan struct{}),
		timeout:   5 * time.Second,
	}
}

// Write never blocks
func (m *BlockingMockTransport) Write([]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportWrite
	}
	return nil
}

// ReadUpTo blocks until Unblock() is called, timeout expires, or the transport is closed
func (m *BlockingMockTransport) ReadUpTo(maxBytes int) ([]byte, error) {
	m.mu.Lock()
	blockChan := m.blockChan
	closed := m.closed
	timeout := m.timeout
	m.mu.Unlock()

	if closed {
		return nil, ErrTransportRead
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return nil, NewTimeoutError("read", "mock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrTransportRead
	}
	data := m.Response
	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return bytes.Clone(data), nil
}

// Unblock allows one blocked ReadUpTo to proceed
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// SetResponse configures the bytes returned by unblocked reads
func (m *BlockingMockTransport) SetResponse(response []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Response = response
}

// SetTimeout configures the timeout for blocking operations
func (m *BlockingMockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected reports whether the transport is open
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
