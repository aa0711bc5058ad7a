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

package frame

// Checksum returns the two's complement of the 8-bit sum of data.
// A frame followed by its checksum always sums to zero modulo 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// Verify reports whether the last byte of f is the checksum of the bytes before it.
// Frames shorter than MinFrameLength never verify.
func Verify(f []byte) bool {
	if len(f) < MinFrameLength {
		return false
	}
	body := f[:len(f)-1]
	return Checksum(body) == f[len(f)-1]
}

// AppendChecksum returns a new slice holding data followed by its checksum.
func AppendChecksum(data []byte) []byte {
	out := make([]byte, len(data), len(data)+1)
	copy(out, data)
	return append(out, Checksum(data))
}
