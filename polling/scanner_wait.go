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
	"context"

	uhf "github.com/ZaparooProject/go-uhf"
)

// WaitForTag returns the tag currently in the field, or blocks until one is
// detected, ctx is done, or the scanner stops.
func (s *Scanner) WaitForTag(ctx context.Context) (uhf.TagID, error) {
	if !s.running.Load() {
		return uhf.TagID{}, ErrScannerNotRunning
	}

	// register before checking presence so a detection in between is not lost
	ch := s.addWaiter()
	defer s.removeWaiter(ch)

	if state := s.monitor.GetState(); state.Present {
		return state.LastTagID, nil
	}
	return s.wait(ctx, ch)
}

// WaitForNextTag ignores any tag already present and blocks until a new
// detection or a tag change.
func (s *Scanner) WaitForNextTag(ctx context.Context) (uhf.TagID, error) {
	if !s.running.Load() {
		return uhf.TagID{}, ErrScannerNotRunning
	}

	ch := s.addWaiter()
	defer s.removeWaiter(ch)
	return s.wait(ctx, ch)
}

func (s *Scanner) wait(ctx context.Context, ch chan uhf.TagID) (uhf.TagID, error) {
	s.stopMutex.Lock()
	done := s.done
	s.stopMutex.Unlock()

	select {
	case id := <-ch:
		return id, nil
	case <-ctx.Done():
		return uhf.TagID{}, ctx.Err()
	case <-done:
		return uhf.TagID{}, ErrScannerStopped
	}
}

func (s *Scanner) addWaiter() chan uhf.TagID {
	ch := make(chan uhf.TagID, 1)
	s.waitMutex.Lock()
	s.waiters[ch] = struct{}{}
	s.waitMutex.Unlock()
	return ch
}

func (s *Scanner) removeWaiter(ch chan uhf.TagID) {
	s.waitMutex.Lock()
	delete(s.waiters, ch)
	s.waitMutex.Unlock()
}

// notifyWaiters hands id to every pending waiter without blocking the poll loop
func (s *Scanner) notifyWaiters(id uhf.TagID) {
	s.waitMutex.Lock()
	defer s.waitMutex.Unlock()
	for ch := range s.waiters {
		select {
		case ch <- id:
		default:
		}
	}
}
