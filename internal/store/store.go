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

// Package store keeps the history of scanned tags.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	uhf "github.com/ZaparooProject/go-uhf"
)

// DefaultLimit caps history queries that do not ask for a limit
const DefaultLimit = 50

// MaxLimit caps every history query
const MaxLimit = 1000

// ErrInvalidRecord is returned by Save for a record without an ID or tag
var ErrInvalidRecord = errors.New("invalid scan record")

// ScanRecord is one tag seen at one location
type ScanRecord struct {
	ScannedAt time.Time `gorm:"column:scanned_at;not null;index" json:"scannedAt"`
	TagID     string    `gorm:"column:tag_id;type:char(24);not null;index" json:"tagId"`
	Location  string    `gorm:"column:location;type:text;not null;default:''" json:"location"`
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
}

// TableName maps ScanRecord to the scans table
func (ScanRecord) TableName() string { return "scans" }

// NewRecord stamps a fresh record for id
func NewRecord(id uhf.TagID, location string, at time.Time) ScanRecord {
	return ScanRecord{
		ID:        uuid.New(),
		TagID:     id.String(),
		Location:  location,
		ScannedAt: at.UTC(),
	}
}

// Validate checks the fields every backend requires
func (r *ScanRecord) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if _, err := uhf.ParseTagID(r.TagID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// Store persists scan records. Queries return newest first.
type Store interface {
	Save(ctx context.Context, rec ScanRecord) error
	Recent(ctx context.Context, limit int) ([]ScanRecord, error)
	ByTag(ctx context.Context, tagID string, limit int) ([]ScanRecord, error)
	Close() error
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
