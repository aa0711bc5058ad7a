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

package uart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
)

// fakePort replays read chunks; an exhausted script reads as a timeout
type fakePort struct {
	readErr  error
	writeErr error
	closeErr error
	block    chan struct{}
	chunks   [][]byte
	written  [][]byte
	timeouts []time.Duration
	resets   int
	shortBy  int
	mu       sync.Mutex
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	if n < len(p.chunks[0]) {
		p.chunks[0] = p.chunks[0][n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), b...))
	return len(b) - p.shortBy, nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	return nil
}

func newTestTransport(t *testing.T, p *fakePort, opts ...Option) *Transport {
	t.Helper()
	tr, err := newTransport("/dev/ttyUSB0", opts...)
	require.NoError(t, err)
	require.NoError(t, tr.attach(p))
	return tr
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	transport := &Transport{portName: "/dev/ttyUSB0"}

	assert.Equal(t, "/dev/ttyUSB0", transport.PortName())
	assert.Equal(t, uhf.TransportUART, transport.Type())
	assert.False(t, transport.IsConnected(), "uninitialized transport must not report connected")
}

func TestNewTransport_Defaults(t *testing.T) {
	t.Parallel()

	tr, err := newTransport("COM10")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, tr.BaudRate())
	assert.Equal(t, 8, tr.mode.DataBits)
	assert.Equal(t, DefaultTimeout, tr.timeout)
}

func TestNewTransport_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		opts    []Option
	}{
		{name: "Valid", opts: []Option{WithBaudRate(57600), WithTimeout(2 * time.Second), WithInterByteTimeout(0)}},
		{name: "Zero_Baud", opts: []Option{WithBaudRate(0)}, wantErr: uhf.ErrInvalidParameter},
		{name: "Negative_Timeout", opts: []Option{WithTimeout(-time.Second)}, wantErr: uhf.ErrInvalidParameter},
		{name: "Negative_InterByte", opts: []Option{WithInterByteTimeout(-1)}, wantErr: uhf.ErrInvalidParameter},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTransport("COM10", tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	_, err := newTransport("")
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)
}

func TestTransport_Write(t *testing.T) {
	t.Parallel()

	p := &fakePort{}
	tr := newTestTransport(t, p)

	frame := uhf.CmdReadTagID.Frame()
	require.NoError(t, tr.Write(frame))
	assert.Equal(t, [][]byte{frame}, p.written)
	assert.Equal(t, 1, p.resets, "stale input is discarded before each request")
}

func TestTransport_WriteErrors(t *testing.T) {
	t.Parallel()

	t.Run("Port_Error", func(t *testing.T) {
		t.Parallel()
		tr := newTestTransport(t, &fakePort{writeErr: errors.New("i/o error")})
		err := tr.Write([]byte{0x01})
		require.ErrorIs(t, err, uhf.ErrTransportWrite)
		var te *uhf.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "/dev/ttyUSB0", te.Port)
		assert.True(t, te.Retryable)
	})

	t.Run("Short_Write", func(t *testing.T) {
		t.Parallel()
		tr := newTestTransport(t, &fakePort{shortBy: 1})
		err := tr.Write([]byte{0x01, 0x02})
		require.ErrorIs(t, err, uhf.ErrTransportWrite)
		assert.Contains(t, err.Error(), "wrote 1 of 2 bytes")
	})

	t.Run("Closed", func(t *testing.T) {
		t.Parallel()
		tr := newTestTransport(t, &fakePort{})
		require.NoError(t, tr.Close())
		require.ErrorIs(t, tr.Write([]byte{0x01}), uhf.ErrTransportClosed)
	})
}

func TestTransport_ReadUpTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		chunks   [][]byte
		expected []byte
		max      int
	}{
		{
			name:     "Single_Chunk",
			chunks:   [][]byte{{0x43, 0x54, 0x00, 0x04, 0xFF, 0x24, 0x00, 0x42}},
			max:      26,
			expected: []byte{0x43, 0x54, 0x00, 0x04, 0xFF, 0x24, 0x00, 0x42},
		},
		{
			name:     "Split_Chunks",
			chunks:   [][]byte{{0x43, 0x54}, {0x00, 0x04}, {0xFF}},
			max:      26,
			expected: []byte{0x43, 0x54, 0x00, 0x04, 0xFF},
		},
		{
			name:     "Truncated_At_Max",
			chunks:   [][]byte{{1, 2, 3, 4, 5, 6}},
			max:      4,
			expected: []byte{1, 2, 3, 4},
		},
		{
			name:     "Timeout_No_Data",
			chunks:   nil,
			max:      26,
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := newTestTransport(t, &fakePort{chunks: tt.chunks})
			got, err := tr.ReadUpTo(tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTransport_ReadUpTo_InterByteTimeout(t *testing.T) {
	t.Parallel()

	p := &fakePort{chunks: [][]byte{{0x43}, {0x54}}}
	tr := newTestTransport(t, p, WithTimeout(time.Second), WithInterByteTimeout(50*time.Millisecond))

	_, err := tr.ReadUpTo(26)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 50 * time.Millisecond, time.Second}, p.timeouts,
		"timeout shortens after the first byte and is restored afterwards")
}

func TestTransport_ReadUpTo_Errors(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, &fakePort{readErr: errors.New("device reports readiness to read but returned no data")})
	_, err := tr.ReadUpTo(26)
	require.ErrorIs(t, err, uhf.ErrTransportRead)

	_, err = tr.ReadUpTo(0)
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)

	require.NoError(t, tr.Close())
	_, err = tr.ReadUpTo(26)
	require.ErrorIs(t, err, uhf.ErrTransportClosed)
}

func TestTransport_Close(t *testing.T) {
	t.Parallel()

	p := &fakePort{}
	tr := newTestTransport(t, p)
	assert.True(t, tr.IsConnected())

	require.NoError(t, tr.Close())
	assert.True(t, p.closed)
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close(), "closing twice is a no-op")
}

func TestTransport_SetTimeout(t *testing.T) {
	t.Parallel()

	p := &fakePort{}
	tr := newTestTransport(t, p)
	require.NoError(t, tr.SetTimeout(300*time.Millisecond))
	assert.Equal(t, 300*time.Millisecond, p.timeouts[len(p.timeouts)-1])
}

func TestTransport_ContextCancelDuringRead(t *testing.T) {
	t.Parallel()

	p := &fakePort{block: make(chan struct{})}
	tr := newTestTransport(t, p)
	defer close(p.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := uhf.AsTransportContext(tr).ReadUpToContext(ctx, 26)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestTransport_FullSequence(t *testing.T) {
	t.Parallel()

	ack := []byte{0x43, 0x54, 0x00, 0x04, 0xFF, 0x24, 0x00, 0x42}
	tag := make([]byte, 25)
	copy(tag, []byte{0x43, 0x54, 0x00, 0x16, 0xFF, 0x01, 0x00})
	copy(tag[12:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	var sum byte
	for _, b := range tag {
		sum += b
	}
	tag = append(tag, ^sum+1)

	// nil chunks are the quiet gaps between responses
	p := &fakePort{chunks: [][]byte{ack, nil, ack, nil, ack, nil, tag}}
	tr := newTestTransport(t, p)
	reader, err := uhf.New(tr)
	require.NoError(t, err)

	id, err := reader.ReadTagID()
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708090a0b0c", id.String())
	assert.Len(t, p.written, 4)
}
