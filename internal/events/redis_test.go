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

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-uhf/internal/config"
)

func newMiniredisPublisher(t *testing.T, lastTagKey string) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	p, err := NewRedisPublisher(context.Background(), config.RedisConfig{
		Enabled:    true,
		Addr:       srv.Addr(),
		Channel:    "uhf:scans",
		LastTagKey: lastTagKey,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestRedisPublisher_Publish(t *testing.T) {
	t.Parallel()

	p, srv := newMiniredisPublisher(t, "uhf:last_tag")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := p.client.Subscribe(ctx, "uhf:scans")
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	rec := testRecord(t)
	require.NoError(t, p.Publish(ctx, rec))

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventScan, ev.Type)
		assert.Equal(t, rec.ID, ev.Scan.ID)
		assert.Equal(t, rec.TagID, ev.Scan.TagID)
	case <-ctx.Done():
		t.Fatal("scan event was not delivered")
	}

	got, err := srv.Get("uhf:last_tag")
	require.NoError(t, err)
	assert.Equal(t, "0102030405060708090a0b0c", got)
}

func TestRedisPublisher_PublishWithoutLastTagKey(t *testing.T) {
	t.Parallel()

	p, srv := newMiniredisPublisher(t, "")
	require.NoError(t, p.Publish(context.Background(), testRecord(t)))
	assert.Empty(t, srv.Keys())
}

func TestRedisPublisher_HealthCheck(t *testing.T) {
	t.Parallel()

	p, srv := newMiniredisPublisher(t, "uhf:last_tag")
	require.NoError(t, p.HealthCheck(context.Background()))

	srv.Close()
	assert.Error(t, p.HealthCheck(context.Background()))
	assert.Error(t, p.Publish(context.Background(), testRecord(t)))
}
