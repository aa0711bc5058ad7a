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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/frame"
	testutil "github.com/ZaparooProject/go-uhf/internal/testing"
)

type readResult struct {
	err error
	id  uhf.TagID
}

// scriptedReader replays results; the last one repeats forever
type scriptedReader struct {
	results []readResult
	calls   atomic.Int32
	mu      sync.Mutex
}

func (r *scriptedReader) ReadTagIDContext(ctx context.Context) (uhf.TagID, error) {
	if err := ctx.Err(); err != nil {
		return uhf.TagID{}, err
	}
	n := int(r.calls.Add(1)) - 1
	r.mu.Lock()
	defer r.mu.Unlock()
	if n >= len(r.results) {
		n = len(r.results) - 1
	}
	return r.results[n].id, r.results[n].err
}

func (r *scriptedReader) set(results ...readResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = results
	r.calls.Store(0)
}

var (
	tagA = uhf.TagID{0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xAB, 0xAC}
	tagB = uhf.TagID{0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7, 0xB8, 0xB9, 0xBA, 0xBB, 0xBC}
)

func noTagErr() error {
	return &uhf.FormatError{Op: "ReadTagId", Frame: testutil.BuildNoTagResponse(), Need: 24, Got: 8}
}

func fastConfig() *Config {
	return &Config{
		PollInterval:      5 * time.Millisecond,
		PollTimeout:       time.Second,
		TagRemovalTimeout: 60 * time.Millisecond,
		MaxRetries:        0,
	}
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		reader := &scriptedReader{}
		monitor := NewMonitor(reader, nil)

		assert.NotNil(t, monitor)
		assert.Equal(t, reader, monitor.reader)
		assert.Equal(t, time.Second, monitor.config.PollInterval)
		assert.False(t, monitor.IsPaused())
	})

	t.Run("WithCustomConfig", func(t *testing.T) {
		t.Parallel()
		config := fastConfig()
		monitor := NewMonitor(&scriptedReader{}, config)
		assert.Equal(t, config, monitor.config)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "Default", mutate: func(*Config) {}},
		{name: "Zero_Interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "Zero_Timeout", mutate: func(c *Config) { c.PollTimeout = 0 }, wantErr: true},
		{name: "Zero_Removal", mutate: func(c *Config) { c.TagRemovalTimeout = 0 }, wantErr: true},
		{name: "Negative_Retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "Negative_Slow", mutate: func(c *Config) { c.SlowPollInterval = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, uhf.ErrInvalidParameter)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIsNoTag(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNoTag(noTagErr()))
	assert.True(t, IsNoTag(errors.Join(errors.New("wrapped"), noTagErr())))
	assert.False(t, IsNoTag(&uhf.FormatError{Frame: make([]byte, 20), Need: 24, Got: 20}))
	assert.False(t, IsNoTag(uhf.ErrEmptyResponse))
	assert.False(t, IsNoTag(nil))
}

func TestMonitor_DetectChangeRemove(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{results: []readResult{{id: tagA}}}
	monitor := NewMonitor(reader, fastConfig())

	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}
	monitor.OnTagDetected = func(id uhf.TagID) { record("detected " + id.String()) }
	monitor.OnTagChanged = func(_, current uhf.TagID) { record("changed " + current.String()) }
	monitor.OnTagRemoved = func(id uhf.TagID) { record("removed " + id.String()) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Start(ctx) }()

	require.Eventually(t, func() bool { return monitor.GetState().Present }, time.Second, 5*time.Millisecond)
	assert.Equal(t, tagA, monitor.GetState().LastTagID)

	reader.set(readResult{id: tagB})
	require.Eventually(t, func() bool { return monitor.GetState().LastTagID == tagB }, time.Second, 5*time.Millisecond)

	reader.set(readResult{err: noTagErr()})
	require.Eventually(t, func() bool { return !monitor.GetState().Present }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"detected " + tagA.String(),
		"changed " + tagB.String(),
		"removed " + tagB.String(),
	}, events)

	metrics := monitor.GetMetrics()
	assert.Equal(t, int64(2), metrics.TagsDetected)
	assert.Positive(t, metrics.PollCycles)
	assert.Zero(t, metrics.PollErrors, "no-tag answers are not errors")
}

func TestMonitor_TagStaysPresentWhileSeen(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{results: []readResult{{id: tagA}}}
	monitor := NewMonitor(reader, fastConfig())

	var detections atomic.Int32
	var removals atomic.Int32
	monitor.OnTagDetected = func(uhf.TagID) { detections.Add(1) }
	monitor.OnTagRemoved = func(uhf.TagID) { removals.Add(1) }

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_ = monitor.Start(ctx)
	require.NoError(t, monitor.Close())

	assert.Equal(t, int32(1), detections.Load())
	assert.Zero(t, removals.Load(), "a tag seen every poll must not time out")
}

func TestMonitor_ErrorsReported(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{results: []readResult{
		{err: &uhf.ProtocolError{Step: "SetWorkMode", Err: uhf.ErrEmptyResponse}},
		{id: tagA},
	}}
	monitor := NewMonitor(reader, fastConfig())

	var reported atomic.Int32
	monitor.OnError = func(err error) {
		assert.ErrorIs(t, err, uhf.ErrEmptyResponse)
		reported.Add(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Start(ctx) }()

	require.Eventually(t, func() bool { return monitor.GetState().Present }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), reported.Load())
	assert.Equal(t, int64(1), monitor.GetMetrics().PollErrors)
}

func TestMonitor_RetriesWithinPoll(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{results: []readResult{
		{err: uhf.NewTimeoutError("read", "mock")},
		{id: tagA},
	}}
	config := fastConfig()
	config.MaxRetries = 1
	config.RetryBackoff = time.Millisecond
	monitor := NewMonitor(reader, config)

	var reported atomic.Int32
	monitor.OnError = func(error) { reported.Add(1) }

	id, err := monitor.performSinglePoll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tagA, id)
	assert.Zero(t, reported.Load())
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestMonitor_StopsOnClosedTransport(t *testing.T) {
	t.Parallel()

	mock := uhf.NewMockTransport()
	require.NoError(t, mock.Close())
	reader, err := uhf.New(mock)
	require.NoError(t, err)

	monitor := NewMonitor(reader, fastConfig())
	err = monitor.Start(context.Background())
	require.ErrorIs(t, err, uhf.ErrTransportClosed)
}

func TestMonitor_PauseResume(t *testing.T) {
	t.Parallel()

	reader := &scriptedReader{results: []readResult{{err: noTagErr()}}}
	monitor := NewMonitor(reader, fastConfig())

	monitor.Pause()
	monitor.Pause()
	assert.True(t, monitor.IsPaused())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, reader.calls.Load(), "paused monitor must not poll")

	monitor.Resume()
	monitor.Resume()
	assert.False(t, monitor.IsPaused())
	require.Eventually(t, func() bool { return reader.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
}

func TestMonitor_SlowPolling(t *testing.T) {
	t.Parallel()

	config := fastConfig()
	config.SlowPollInterval = 50 * time.Millisecond
	config.SlowAfter = 20 * time.Millisecond
	monitor := NewMonitor(&scriptedReader{}, config)

	assert.Equal(t, config.PollInterval, monitor.CurrentPollInterval())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, config.SlowPollInterval, monitor.CurrentPollInterval())

	monitor.processPollingResult(tagA)
	assert.Equal(t, config.PollInterval, monitor.CurrentPollInterval())
	require.NoError(t, monitor.Close())
}

func TestMonitor_WithVirtualReader(t *testing.T) {
	t.Parallel()

	vr := testutil.NewVirtualReader()
	reader, err := uhf.New(vr)
	require.NoError(t, err)
	monitor := NewMonitor(reader, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, monitor.GetState().Present)

	vr.PlaceTag(testutil.TestTID)
	require.Eventually(t, func() bool { return monitor.GetState().Present }, time.Second, 5*time.Millisecond)
	assert.Equal(t, testutil.TestTIDString, monitor.GetState().LastTagID.String())

	vr.RemoveTag()
	require.Eventually(t, func() bool { return !monitor.GetState().Present }, time.Second, 5*time.Millisecond)
}

func TestTagState_StaleTimerIgnored(t *testing.T) {
	t.Parallel()

	var state TagState
	var fired []uint64
	var mu sync.Mutex
	cb := func(gen uint64) {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, gen)
	}

	state.TransitionToPresent(tagA, time.Hour, cb)
	first := state.generation
	state.TransitionToPresent(tagA, time.Hour, cb)

	assert.False(t, state.Current(first))
	assert.True(t, state.Current(state.generation))
	assert.Equal(t, StateTagPresent, state.DetectionState)
	assert.Equal(t, "present", state.DetectionState.String())

	snap := state.Snapshot()
	assert.Nil(t, snap.RemovalTimer)

	state.TransitionToIdle()
	assert.False(t, state.Present)
	assert.Nil(t, state.RemovalTimer)
	assert.True(t, frame.IsNoTag(testutil.BuildNoTagResponse()))
}
