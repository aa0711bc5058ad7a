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
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Reader
type Option func(*Reader) error

// WithTimeout sets the per-read deadline pushed to the transport
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		r.timeout = timeout
		return nil
	}
}

// WithLogger sets the logger used for step tracing
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		r.logger = logger
		return nil
	}
}

// WithObserver registers an observer for step and read outcomes
func WithObserver(observer Observer) Option {
	return func(r *Reader) error {
		if observer == nil {
			return fmt.Errorf("%w: observer is nil", ErrInvalidParameter)
		}
		r.observer = observer
		return nil
	}
}
