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

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadMagic is returned by ParseHeader when a response does not start with 'C' 'T'.
var ErrBadMagic = errors.New("bad response magic")

// FormatError reports a frame too short to hold the requested field.
type FormatError struct {
	Op    string
	Frame []byte
	Need  int
	Got   int
}

func (e *FormatError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("frame too short: need %d bytes, got %d", e.Need, e.Got)
	}
	return fmt.Sprintf("%s: frame too short: need %d bytes, got %d", e.Op, e.Need, e.Got)
}

// Build assembles a request frame:
//
//	'S' 'W' LEN_H LEN_L ADDR CMD PARAMS... CHECKSUM
//
// LEN counts the bytes following the length field, checksum included.
func Build(address, command byte, params ...byte) []byte {
	length := len(params) + 3
	f := make([]byte, 0, HeaderLength+length)
	f = append(f, MagicS, MagicW, 0, 0)
	binary.BigEndian.PutUint16(f[lengthFieldOffset:HeaderLength], uint16(length))
	f = append(f, address, command)
	f = append(f, params...)
	return append(f, Checksum(f))
}

// ExtractField returns a copy of length bytes of f starting at offset.
func ExtractField(f []byte, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid field bounds: offset %d, length %d", offset, length)
	}
	need := offset + length
	if len(f) < need {
		return nil, &FormatError{Op: "extract field", Frame: bytes.Clone(f), Need: need, Got: len(f)}
	}
	out := make([]byte, length)
	copy(out, f[offset:need])
	return out, nil
}

// ExtractTagID returns the 12 raw TID bytes at [12, 24) of a tag inquiry response.
func ExtractTagID(f []byte) ([]byte, error) {
	id, err := ExtractField(f, TagIDOffset, TagIDLength)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Op = "extract tag id"
		}
		return nil, err
	}
	return id, nil
}

// Header is the decoded fixed part of a reader response.
type Header struct {
	Length  uint16
	Address byte
	Command byte
	Status  byte
}

func (h Header) String() string {
	return fmt.Sprintf("len=%d addr=%02X cmd=%02X status=%02X", h.Length, h.Address, h.Command, h.Status)
}

// ParseHeader decodes the header of a response. It does not verify the checksum.
func ParseHeader(resp []byte) (Header, error) {
	if len(resp) < HeaderLength+3 {
		return Header{}, &FormatError{Op: "parse header", Frame: bytes.Clone(resp), Need: HeaderLength + 3, Got: len(resp)}
	}
	if resp[0] != MagicC || resp[1] != MagicT {
		return Header{}, fmt.Errorf("%w: % X", ErrBadMagic, resp[:2])
	}
	return Header{
		Length:  binary.BigEndian.Uint16(resp[lengthFieldOffset:HeaderLength]),
		Address: resp[4],
		Command: resp[5],
		Status:  resp[6],
	}, nil
}

// IsNoTag reports whether resp is the reader's "no tag in field" answer to a tag inquiry.
func IsNoTag(resp []byte) bool {
	return bytes.Equal(resp, NoTagResponse)
}
