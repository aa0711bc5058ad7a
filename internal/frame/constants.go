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

// Package frame provides frame building, checksum and field extraction for
// the SW-series UHF reader serial protocol.
package frame

// Request frame markers
const (
	MagicS = 0x53 // 'S'
	MagicW = 0x57 // 'W'
)

// Response frame markers
const (
	MagicC = 0x43 // 'C'
	MagicT = 0x54 // 'T'
)

// BroadcastAddress addresses every reader on the bus.
const BroadcastAddress = 0xFF

// Command codes
const (
	CmdConfig  = 0x24 // Parameter configuration
	CmdReadTag = 0x01 // Tag inquiry
)

// Configuration sub-commands used with CmdConfig
const (
	ParamWorkMode     = 0x02
	ParamInterface    = 0x01
	ParamInquiryArea  = 0x0A
	WorkModeAnswer    = 0x00
	InterfaceRS232    = 0x01
	InquiryAreaTID    = 0x01
	StatusOK          = 0x00
	HeaderLength      = 4 // magic(2) + length(2)
	lengthFieldOffset = 2
)

// Frame size limits
const (
	MaxResponseLength = 26 // Largest response the reader sends for a tag inquiry
	MinFrameLength    = 2  // Smallest frame that can carry a checksum trailer
	TagIDOffset       = 12
	TagIDLength       = 12
)

// NoTagResponse is what the reader answers to a tag inquiry when the field is empty.
var NoTagResponse = []byte{MagicC, MagicT, 0x00, 0x04, 0x00, CmdReadTag, 0x00, 0x64}
