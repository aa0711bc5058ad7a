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

package testing

import "github.com/ZaparooProject/go-uhf/internal/frame"

// TestTID is the sample TID used across tests
var TestTID = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C}

// TestTIDString is TestTID as the reader package prints it
const TestTIDString = "0102030405060708090a0b0c"

// BuildAck creates a successful response to a configuration command
func BuildAck(cmd byte) []byte {
	return frame.AppendChecksum([]byte{
		frame.MagicC, frame.MagicT, 0x00, 0x04, frame.BroadcastAddress, cmd, frame.StatusOK,
	})
}

// BuildTagResponse creates a full-length inquiry response carrying tid at offset 12
func BuildTagResponse(tid []byte) []byte {
	return BuildTagResponseLen(tid, frame.MaxResponseLength)
}

// BuildTagResponseLen creates a checksum-valid inquiry response of exactly total bytes.
// Lengths below 24 produce frames too short to carry a TID.
func BuildTagResponseLen(tid []byte, total int) []byte {
	if total < 8 {
		total = 8
	}
	body := make([]byte, total-1)
	copy(body, []byte{
		frame.MagicC, frame.MagicT, 0x00, byte(total - frame.HeaderLength),
		frame.BroadcastAddress, frame.CmdReadTag, frame.StatusOK,
	})
	if len(body) > frame.TagIDOffset {
		copy(body[frame.TagIDOffset:], tid)
	}
	return frame.AppendChecksum(body)
}

// BuildNoTagResponse returns the reader's answer when the field is empty
func BuildNoTagResponse() []byte {
	return append([]byte(nil), frame.NoTagResponse...)
}

// BuildCorruptResponse returns resp with its checksum broken
func BuildCorruptResponse(resp []byte) []byte {
	out := append([]byte(nil), resp...)
	if len(out) > 0 {
		out[len(out)-1]++
	}
	return out
}
