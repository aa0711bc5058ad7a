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

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// Command is one named request frame of the read sequence.
// Commands are immutable; Frame returns a copy.
type Command struct {
	name           string
	frame          []byte
	state          State
	minResponseLen int
}

// Name returns the command name used in errors and logs
func (c Command) Name() string {
	return c.name
}

// Frame returns a copy of the request frame
func (c Command) Frame() []byte {
	return bytes.Clone(c.frame)
}

// State returns the reader state while the command is in flight
func (c Command) State() State {
	return c.state
}

// MinResponseLen returns the shortest acceptable checksum-valid response
func (c Command) MinResponseLen() int {
	return c.minResponseLen
}

// The fixed read sequence. SetInquiryAreaTID is sent exactly as the reader
// vendor documents it even though its trailer is not the additive checksum
// of the preceding bytes.
var (
	CmdSetWorkMode = Command{
		name:  "SetWorkMode",
		frame: []byte{0x53, 0x57, 0x00, 0x05, 0xFF, 0x24, 0x02, 0x00, 0x2C},
		state: StateSettingMode,
	}
	CmdSetInterfaceRS232 = Command{
		name:  "SetInterfaceRS232",
		frame: []byte{0x53, 0x57, 0x00, 0x05, 0xFF, 0x24, 0x01, 0x01, 0x2C},
		state: StateSettingInterface,
	}
	CmdSetInquiryAreaTID = Command{
		name:  "SetInquiryAreaTID",
		frame: []byte{0x53, 0x57, 0x00, 0x05, 0xFF, 0x24, 0x0A, 0x01, 0x1F},
		state: StateSettingInquiryArea,
	}
	CmdReadTagID = Command{
		name:           "ReadTagId",
		frame:          []byte{0x53, 0x57, 0x00, 0x03, 0xFF, 0x01, 0x53},
		state:          StateReadingTag,
		minResponseLen: frame.TagIDOffset + frame.TagIDLength,
	}
)

// Sequence returns the commands of the read workflow in the order they are sent.
func Sequence() []Command {
	return []Command{CmdSetWorkMode, CmdSetInterfaceRS232, CmdSetInquiryAreaTID, CmdReadTagID}
}
