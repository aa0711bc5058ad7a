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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// TagID is the 12-byte TID read from a tag
type TagID [frame.TagIDLength]byte

// String returns the lowercase hex encoding of the TID
func (id TagID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns a copy of the raw TID bytes
func (id TagID) Bytes() []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// IsZero reports whether id is the zero TID
func (id TagID) IsZero() bool {
	return id == TagID{}
}

// MarshalText implements encoding.TextMarshaler
func (id TagID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *TagID) UnmarshalText(text []byte) error {
	parsed, err := ParseTagID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseTagID parses a 24 character hex TID. Case and surrounding spaces are ignored.
func ParseTagID(s string) (TagID, error) {
	var id TagID
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("%w: tag id must be %d hex characters, got %d",
			ErrInvalidParameter, hex.EncodedLen(len(id)), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return TagID{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return id, nil
}

// tagIDFromResponse extracts the TID from a tag inquiry response
func tagIDFromResponse(resp []byte) (TagID, error) {
	var id TagID
	raw, err := frame.ExtractTagID(resp)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}
