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

import "fmt"

// State is the position of a Reader in the read sequence.
//
//	Idle -> SettingMode -> SettingInterface -> SettingInquiryArea -> ReadingTag -> Done
//
// Any non-terminal state moves to Failed on an error.
type State int

const (
	StateIdle State = iota
	StateSettingMode
	StateSettingInterface
	StateSettingInquiryArea
	StateReadingTag
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:               "Idle",
	StateSettingMode:        "SettingMode",
	StateSettingInterface:   "SettingInterface",
	StateSettingInquiryArea: "SettingInquiryArea",
	StateReadingTag:         "ReadingTag",
	StateDone:               "Done",
	StateFailed:             "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s ends a sequence
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
