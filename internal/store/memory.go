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

package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps a bounded ring of records in memory
type MemoryStore struct {
	records  []ScanRecord
	capacity int
	mu       sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore keeps at most capacity records; non-positive means MaxLimit
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &MemoryStore{capacity: capacity}
}

// Save appends rec, evicting the oldest record when full
func (s *MemoryStore) Save(ctx context.Context, rec ScanRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == s.capacity {
		s.records = slices.Delete(s.records, 0, 1)
	}
	s.records = append(s.records, rec)
	return nil
}

// Recent returns up to limit records, newest first
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]ScanRecord, error) {
	return s.query(ctx, limit, func(ScanRecord) bool { return true })
}

// ByTag returns up to limit records for tagID, newest first
func (s *MemoryStore) ByTag(ctx context.Context, tagID string, limit int) ([]ScanRecord, error) {
	tagID = strings.ToLower(tagID)
	return s.query(ctx, limit, func(r ScanRecord) bool { return r.TagID == tagID })
}

func (s *MemoryStore) query(ctx context.Context, limit int, keep func(ScanRecord) bool) ([]ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScanRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op
func (*MemoryStore) Close() error { return nil }
