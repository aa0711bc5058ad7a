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

	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
)

// Scanner provides a high-level interface for continuous tag scanning. It
// wraps the lower-level Monitor, runs it in the background, and lets callers
// wait for the next tag.
type Scanner struct {
	reader        TagReader
	config        *Config
	monitor       *Monitor
	cancelFunc    context.CancelFunc
	done          chan struct{}
	waiters       map[chan uhf.TagID]struct{}
	lastErr       atomic.Pointer[error]
	OnTagDetected func(uhf.TagID)
	OnTagRemoved  func(uhf.TagID)
	OnTagChanged  func(previous, current uhf.TagID)
	OnError       func(error)
	waitMutex     sync.Mutex
	stopMutex     sync.Mutex
	running       atomic.Bool
}

// Scanner-specific errors
var (
	ErrScannerNotRunning = errors.New("scanner is not running")
	ErrScannerRunning    = errors.New("scanner is already running")
	ErrScannerStopped    = errors.New("scanner was stopped")
)

// NewScanner creates a new scanner instance with the given reader and configuration
func NewScanner(reader TagReader, config *Config) (*Scanner, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Scanner{
		reader:  reader,
		config:  config,
		monitor: NewMonitor(reader, config),
		waiters: make(map[chan uhf.TagID]struct{}),
	}
	s.setupEventHandlers()
	return s, nil
}

// SetLogger sets the logger used by the underlying monitor
func (s *Scanner) SetLogger(logger *zap.Logger) {
	s.monitor.SetLogger(logger)
}

// Start begins continuous scanning (non-blocking)
func (s *Scanner) Start(ctx context.Context) error {
	s.stopMutex.Lock()
	if s.running.Load() {
		s.stopMutex.Unlock()
		return ErrScannerRunning
	}

	// done must be visible before running so waiters always see a stop signal
	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancelFunc = cancel
	s.done = done
	s.running.Store(true)
	s.stopMutex.Unlock()

	go func() {
		defer func() {
			_ = s.monitor.Close()
			s.running.Store(false)
			close(done)
		}()

		if err := s.monitor.Start(scanCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.lastErr.Store(&err)
			s.monitor.logger.Error("scanner stopped", zap.Error(err))
			if s.OnError != nil {
				s.OnError(err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the scanner and blocks until it has fully stopped
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	done := s.done
	s.cancelFunc = nil
	s.stopMutex.Unlock()

	if cancelFunc == nil {
		return nil
	}
	cancelFunc()
	<-done
	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// Err returns the error that stopped the scanner, if any
func (s *Scanner) Err() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Pause suspends polling so another client may use the reader
func (s *Scanner) Pause() {
	s.monitor.Pause()
}

// Resume continues polling
func (s *Scanner) Resume() {
	s.monitor.Resume()
}

// IsPaused reports whether polling is suspended
func (s *Scanner) IsPaused() bool {
	return s.monitor.IsPaused()
}

// State returns a snapshot of the tag presence state
func (s *Scanner) State() TagState {
	return s.monitor.GetState()
}

// Metrics returns the monitor's counters
func (s *Scanner) Metrics() Metrics {
	return s.monitor.GetMetrics()
}

// setupEventHandlers connects monitor callbacks to waiters and user callbacks
func (s *Scanner) setupEventHandlers() {
	s.monitor.OnTagDetected = func(id uhf.TagID) {
		s.notifyWaiters(id)
		if s.OnTagDetected != nil {
			s.OnTagDetected(id)
		}
	}

	s.monitor.OnTagChanged = func(previous, current uhf.TagID) {
		s.notifyWaiters(current)
		if s.OnTagChanged != nil {
			s.OnTagChanged(previous, current)
		}
	}

	s.monitor.OnTagRemoved = func(id uhf.TagID) {
		if s.OnTagRemoved != nil {
			s.OnTagRemoved(id)
		}
	}

	s.monitor.OnError = func(err error) {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}
