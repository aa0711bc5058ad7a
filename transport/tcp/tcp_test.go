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

package tcp

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// bridge is a fake serial-to-network bridge that answers every request with reply
func bridge(t *testing.T, reply func(req []byte) []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if resp := reply(buf[:n]); resp != nil {
				if _, err := conn.Write(resp); err != nil {
					return
				}
			}
		}
	}()

	return ln.Addr().String()
}

func readerReply(req []byte) []byte {
	if len(req) > 5 && req[5] == frame.CmdReadTag {
		body := make([]byte, 25)
		copy(body, []byte{frame.MagicC, frame.MagicT, 0x00, 0x16, 0xFF, frame.CmdReadTag, 0x00})
		copy(body[frame.TagIDOffset:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
		return frame.AppendChecksum(body)
	}
	return frame.AppendChecksum([]byte{frame.MagicC, frame.MagicT, 0x00, 0x04, 0xFF, frame.CmdConfig, 0x00})
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	_, err := newTransport("")
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)

	_, err = newTransport("127.0.0.1:4001", WithTimeout(0))
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)

	_, err = newTransport("127.0.0.1:4001", WithDialTimeout(-1))
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)

	tr, err := newTransport("127.0.0.1:4001", WithKeepAlive(-1), WithInterByteTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4001", tr.Address())
	assert.Equal(t, uhf.TransportTCP, tr.Type())
	assert.False(t, tr.IsConnected())
}

func TestNew_DialFailure(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = New(addr, WithDialTimeout(200*time.Millisecond))
	var te *uhf.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dial", te.Op)
	assert.Equal(t, addr, te.Port)
}

func TestTransport_ReadTimeoutIsShortRead(t *testing.T) {
	t.Parallel()

	addr := bridge(t, func([]byte) []byte { return nil })
	tr, err := New(addr, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	require.NoError(t, tr.Write(uhf.CmdSetWorkMode.Frame()))

	start := time.Now()
	got, err := tr.ReadUpTo(26)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTransport_ReadUpTo_Truncates(t *testing.T) {
	t.Parallel()

	addr := bridge(t, func([]byte) []byte { return []byte{1, 2, 3, 4, 5, 6} })
	tr, err := New(addr, WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	require.NoError(t, tr.Write([]byte{0x00}))
	got, err := tr.ReadUpTo(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestTransport_FullSequence(t *testing.T) {
	t.Parallel()

	addr := bridge(t, readerReply)
	tr, err := New(addr)
	require.NoError(t, err)

	reader, err := uhf.New(tr, uhf.WithTimeout(500*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	id, err := reader.ReadTagID()
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708090a0b0c", id.String())
}

func TestTransport_Closed(t *testing.T) {
	t.Parallel()

	addr := bridge(t, readerReply)
	tr, err := New(addr)
	require.NoError(t, err)
	assert.True(t, tr.IsConnected())

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())

	require.ErrorIs(t, tr.Write([]byte{0x00}), uhf.ErrTransportClosed)
	_, err = tr.ReadUpTo(26)
	require.ErrorIs(t, err, uhf.ErrTransportClosed)
}

func TestTransport_PeerClosed(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			_ = conn.Close()
		}
	}()

	tr, err := New(ln.Addr().String())
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	_, err = tr.ReadUpTo(26)
	require.ErrorIs(t, err, uhf.ErrTransportRead)
	require.ErrorIs(t, err, io.EOF)
}
