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
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/frame"
	"github.com/ZaparooProject/go-uhf/internal/transport"
)

// TagReader runs one complete read sequence. *uhf.Reader implements it.
type TagReader interface {
	ReadTagIDContext(ctx context.Context) (uhf.TagID, error)
}

// Config controls polling cadence and presence tracking
type Config struct {
	// PollInterval is the pause between read sequences
	PollInterval time.Duration
	// PollTimeout bounds one read sequence including retries
	PollTimeout time.Duration
	// TagRemovalTimeout is how long a tag may go unseen before it counts as removed
	TagRemovalTimeout time.Duration
	// MaxRetries reissues a sequence that failed with a retryable error
	MaxRetries int
	// RetryBackoff is the pause before a retry
	RetryBackoff time.Duration
	// SlowPollInterval replaces PollInterval once no tag has been seen for
	// SlowAfter. Zero disables slow polling.
	SlowPollInterval time.Duration
	SlowAfter        time.Duration
}

// DefaultConfig polls once a second, as a kiosk waiting for a badge would
func DefaultConfig() *Config {
	return &Config{
		PollInterval:      time.Second,
		PollTimeout:       5 * time.Second,
		TagRemovalTimeout: 3 * time.Second,
		MaxRetries:        2,
		RetryBackoff:      100 * time.Millisecond,
	}
}

// Validate checks the configuration for values the poll loop cannot use
func (c *Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", uhf.ErrInvalidParameter)
	case c.PollTimeout <= 0:
		return fmt.Errorf("%w: poll timeout must be positive", uhf.ErrInvalidParameter)
	case c.TagRemovalTimeout <= 0:
		return fmt.Errorf("%w: tag removal timeout must be positive", uhf.ErrInvalidParameter)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative", uhf.ErrInvalidParameter)
	case c.SlowPollInterval < 0 || c.SlowAfter < 0:
		return fmt.Errorf("%w: slow polling values must not be negative", uhf.ErrInvalidParameter)
	}
	return nil
}

// Metrics are the monitor's operational counters
type Metrics struct {
	PollCycles      int64
	PollErrors      int64
	TagsDetected    int64
	LastPollLatency time.Duration
}

// Monitor polls a reader and tracks which tag, if any, is in the field
type Monitor struct {
	reader        TagReader
	config        *Config
	logger        *zap.Logger
	OnTagDetected func(id uhf.TagID)
	OnTagChanged  func(previous, current uhf.TagID)
	OnTagRemoved  func(id uhf.TagID)
	OnError       func(err error)
	pauseChan     chan struct{}
	resumeChan    chan struct{}
	state         TagState
	mu            sync.Mutex
	pollCycles    atomic.Int64
	pollErrors    atomic.Int64
	tagsDetected  atomic.Int64
	lastLatency   atomic.Int64
	lastTagSeen   atomic.Int64
	isPaused      atomic.Bool
}

// NewMonitor creates a new tag monitor
func NewMonitor(reader TagReader, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	m := &Monitor{
		reader:     reader,
		config:     config,
		logger:     zap.NewNop(),
		pauseChan:  make(chan struct{}, 1),
		resumeChan: make(chan struct{}, 1),
	}
	m.lastTagSeen.Store(time.Now().UnixNano())
	return m
}

// SetLogger sets the logger for poll diagnostics
func (m *Monitor) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.logger = logger
}

// Start polls until ctx is done or the transport is closed
func (m *Monitor) Start(ctx context.Context) error {
	if m.reader == nil {
		return uhf.ErrNilTransport
	}
	if err := m.config.Validate(); err != nil {
		return err
	}
	return m.continuousPolling(ctx)
}

// Pause suspends polling after the current sequence
func (m *Monitor) Pause() {
	if m.isPaused.CompareAndSwap(false, true) {
		select {
		case m.pauseChan <- struct{}{}:
		default:
		}
	}
}

// Resume continues polling
func (m *Monitor) Resume() {
	if m.isPaused.CompareAndSwap(true, false) {
		select {
		case m.resumeChan <- struct{}{}:
		default:
		}
	}
}

// IsPaused reports whether polling is suspended
func (m *Monitor) IsPaused() bool {
	return m.isPaused.Load()
}

// GetState returns a snapshot of the tag state
func (m *Monitor) GetState() TagState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Snapshot()
}

// GetMetrics returns current operational metrics
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		TagsDetected:    m.tagsDetected.Load(),
		LastPollLatency: time.Duration(m.lastLatency.Load()),
	}
}

// CurrentPollInterval returns the interval the next wait will use
func (m *Monitor) CurrentPollInterval() time.Duration {
	if m.config.SlowPollInterval <= 0 || m.config.SlowAfter <= 0 {
		return m.config.PollInterval
	}
	m.mu.Lock()
	present := m.state.Present
	m.mu.Unlock()
	if present {
		return m.config.PollInterval
	}
	idle := time.Since(time.Unix(0, m.lastTagSeen.Load()))
	if idle > m.config.SlowAfter {
		return m.config.SlowPollInterval
	}
	return m.config.PollInterval
}

// Close stops the removal timer
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	safeTimerStop(m.state.RemovalTimer)
	m.state.RemovalTimer = nil
	return nil
}

func (m *Monitor) continuousPolling(ctx context.Context) error {
	for {
		if err := m.waitWhilePaused(ctx); err != nil {
			return err
		}

		id, err := m.performSinglePoll(ctx)
		switch {
		case err == nil:
			m.processPollingResult(id)
		case errors.Is(err, ErrNoTagInPoll):
			// removal is left to the timer
		case ctx.Err() != nil:
			return ctx.Err()
		case isFatal(err):
			m.handleTagRemoval()
			return err
		default:
			m.handlePollingError(err)
		}

		timer := time.NewTimer(m.CurrentPollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Monitor) waitWhilePaused(ctx context.Context) error {
	for m.isPaused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.resumeChan:
		case <-m.pauseChan:
		}
	}
	return nil
}

// performSinglePoll runs one read sequence, reissuing it on retryable failures
func (m *Monitor) performSinglePoll(ctx context.Context) (uhf.TagID, error) {
	pollCtx, cancel := context.WithTimeout(ctx, m.config.PollTimeout)
	defer cancel()

	start := time.Now()
	id, err := transport.WithRetry[uhf.TagID](pollCtx, transport.RetryConfig{
		Description: "tag poll",
		MaxRetries:  m.config.MaxRetries,
		RetryDelay:  m.config.RetryBackoff,
		OnRetry: func(attempt int, err error) {
			m.logger.Debug("retrying tag poll", zap.Int("attempt", attempt), zap.Error(err))
		},
	}, m.reader.ReadTagIDContext)

	m.pollCycles.Add(1)
	m.lastLatency.Store(int64(time.Since(start)))

	if err != nil {
		if IsNoTag(err) {
			return uhf.TagID{}, ErrNoTagInPoll
		}
		return uhf.TagID{}, fmt.Errorf("tag poll failed: %w", err)
	}
	return id, nil
}

// IsNoTag reports whether err is the reader's "no tag in field" answer
func IsNoTag(err error) bool {
	var fe *uhf.FormatError
	return errors.As(err, &fe) && frame.IsNoTag(fe.Frame)
}

func isFatal(err error) bool {
	return errors.Is(err, uhf.ErrTransportClosed) || errors.Is(err, uhf.ErrNilTransport)
}

func (m *Monitor) handlePollingError(err error) {
	m.pollErrors.Add(1)
	m.logger.Warn("tag poll error", zap.Error(err))
	if m.OnError != nil {
		m.OnError(err)
	}
}

// processPollingResult updates presence and fires detection callbacks
func (m *Monitor) processPollingResult(id uhf.TagID) {
	m.lastTagSeen.Store(time.Now().UnixNano())

	m.mu.Lock()
	wasPresent := m.state.Present
	previous := m.state.LastTagID
	m.state.TransitionToPresent(id, m.config.TagRemovalTimeout, m.onRemovalTimer)
	m.mu.Unlock()

	switch {
	case !wasPresent:
		m.tagsDetected.Add(1)
		m.logger.Info("tag detected", zap.Stringer("tag_id", id))
		if m.OnTagDetected != nil {
			m.OnTagDetected(id)
		}
	case previous != id:
		m.tagsDetected.Add(1)
		m.logger.Info("tag changed", zap.Stringer("previous", previous), zap.Stringer("tag_id", id))
		if m.OnTagChanged != nil {
			m.OnTagChanged(previous, id)
		}
	}
}

func (m *Monitor) onRemovalTimer(generation uint64) {
	m.mu.Lock()
	if !m.state.Present || !m.state.Current(generation) {
		m.mu.Unlock()
		return
	}
	id := m.state.LastTagID
	m.state.TransitionToIdle()
	m.mu.Unlock()

	m.notifyRemoved(id)
}

// handleTagRemoval clears presence immediately
func (m *Monitor) handleTagRemoval() {
	m.mu.Lock()
	if !m.state.Present {
		m.mu.Unlock()
		return
	}
	id := m.state.LastTagID
	m.state.TransitionToIdle()
	m.mu.Unlock()

	m.notifyRemoved(id)
}

func (m *Monitor) notifyRemoved(id uhf.TagID) {
	m.logger.Info("tag removed", zap.Stringer("tag_id", id))
	if m.OnTagRemoved != nil {
		m.OnTagRemoved(id)
	}
}
