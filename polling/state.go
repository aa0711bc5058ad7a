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

package polling

import (
	"errors"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// DetectionState represents the finite state machine for tag presence
type DetectionState int

const (
	StateIdle DetectionState = iota
	StateTagPresent
)

func (s DetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagPresent:
		return "present"
	default:
		return "unknown"
	}
}

// TagState tracks the tag currently in the reader's field
type TagState struct {
	LastSeenTime   time.Time
	FirstSeenTime  time.Time
	RemovalTimer   *time.Timer
	LastTagID      uhf.TagID
	generation     uint64
	DetectionState DetectionState
	Present        bool
}

// ErrNoTagInPoll indicates no tag was detected during polling (not an error condition)
var ErrNoTagInPoll = errors.New("no tag detected in polling cycle")

// safeTimerStop safely stops a timer and drains its channel to prevent resource leaks
func safeTimerStop(timer *time.Timer) {
	if timer != nil {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

// TransitionToPresent records a sighting of id and re-arms the removal timer.
// The callback receives the generation it was armed for so that a timer which
// fires after a newer sighting can be ignored.
func (ts *TagState) TransitionToPresent(id uhf.TagID, timeout time.Duration, callback func(generation uint64)) {
	now := time.Now()
	if !ts.Present || ts.LastTagID != id {
		ts.FirstSeenTime = now
	}
	ts.DetectionState = StateTagPresent
	ts.Present = true
	ts.LastTagID = id
	ts.LastSeenTime = now
	ts.generation++

	safeTimerStop(ts.RemovalTimer)
	gen := ts.generation
	ts.RemovalTimer = time.AfterFunc(timeout, func() { callback(gen) })
}

// TransitionToIdle resets to idle state
func (ts *TagState) TransitionToIdle() {
	ts.DetectionState = StateIdle
	ts.Present = false
	ts.LastTagID = uhf.TagID{}
	ts.LastSeenTime = time.Time{}
	ts.FirstSeenTime = time.Time{}
	ts.generation++
	safeTimerStop(ts.RemovalTimer)
	ts.RemovalTimer = nil
}

// Current reports whether generation is still the latest transition
func (ts *TagState) Current(generation uint64) bool {
	return ts.generation == generation
}

// Snapshot returns a copy without the timer
func (ts *TagState) Snapshot() TagState {
	out := *ts
	out.RemovalTimer = nil
	return out
}
