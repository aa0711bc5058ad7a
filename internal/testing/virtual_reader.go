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

import (
	"bytes"
	"sync"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// VirtualReader simulates a UHF reader behind a uhf.Transport. It tracks the
// configuration commands it has received and answers tag inquiries with the
// TID of the tag currently in its field.
//
// Request trailers are not checked: the vendor's inquiry-area frame does not
// carry an additive checksum and the hardware accepts it anyway.
type VirtualReader struct {
	tid          []byte
	pending      []byte
	timeout      time.Duration
	writes       int
	drop         int
	inquiryArea  byte
	workModeSet  bool
	interfaceSet bool
	closed       bool
	mu           sync.Mutex
}

// NewVirtualReader creates a reader with an empty field
func NewVirtualReader() *VirtualReader {
	return &VirtualReader{timeout: time.Second}
}

// PlaceTag puts a tag with tid into the field
func (v *VirtualReader) PlaceTag(tid []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tid = append([]byte(nil), tid...)
}

// RemoveTag empties the field
func (v *VirtualReader) RemoveTag() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tid = nil
}

// DropResponses makes the next n requests go unanswered
func (v *VirtualReader) DropResponses(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drop = n
}

// Configured reports whether all three configuration commands were received
func (v *VirtualReader) Configured() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.workModeSet && v.interfaceSet && v.inquiryArea == frame.InquiryAreaTID
}

// WriteCount returns the number of requests received
func (v *VirtualReader) WriteCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writes
}

// Write accepts one request frame and prepares its response
func (v *VirtualReader) Write(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return uhf.NewTransportError("write", "virtual", uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}
	v.writes++
	v.pending = nil

	if v.drop > 0 {
		v.drop--
		return nil
	}
	if len(data) < 7 || data[0] != frame.MagicS || data[1] != frame.MagicW {
		return nil
	}

	switch data[5] {
	case frame.CmdConfig:
		if len(data) >= 9 {
			v.applyConfig(data[6], data[7:len(data)-1])
		}
		v.pending = BuildAck(frame.CmdConfig)
	case frame.CmdReadTag:
		if v.tid == nil {
			v.pending = BuildNoTagResponse()
		} else {
			v.pending = BuildTagResponse(v.tid)
		}
	}
	return nil
}

func (v *VirtualReader) applyConfig(param byte, value []byte) {
	if len(value) == 0 {
		return
	}
	switch param {
	case frame.ParamWorkMode:
		v.workModeSet = value[0] == frame.WorkModeAnswer
	case frame.ParamInterface:
		v.interfaceSet = value[0] == frame.InterfaceRS232
	case frame.ParamInquiryArea:
		v.inquiryArea = value[0]
	}
}

// ReadUpTo returns the pending response; nothing pending reads as a timeout
func (v *VirtualReader) ReadUpTo(maxBytes int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, uhf.NewTransportError("read", "virtual", uhf.ErrTransportClosed, uhf.ErrorTypePermanent)
	}
	resp := v.pending
	v.pending = nil
	if len(resp) > maxBytes {
		resp = resp[:maxBytes]
	}
	return bytes.Clone(resp), nil
}

// SetTimeout records the timeout
func (v *VirtualReader) SetTimeout(timeout time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timeout = timeout
	return nil
}

// Close closes the virtual line
func (v *VirtualReader) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// IsConnected reports whether Close has not been called
func (v *VirtualReader) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Type returns TransportMock
func (*VirtualReader) Type() uhf.TransportType {
	return uhf.TransportMock
}
