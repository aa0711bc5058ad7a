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

// Package transport provides retry helpers for callers of the read sequence.
// The sequence itself never retries; these helpers reissue it from the start.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
)

// ErrRetriesExhausted is returned when every attempt failed with a retryable error
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryOperation is one complete attempt
type RetryOperation[T any] func(ctx context.Context) (T, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func(attempt int, err error)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry runs operation until it succeeds, fails with an error that
// uhf.IsRetryable rejects, or MaxRetries extra attempts have been made.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T
	var lastErr error

	attempts := 0
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		attempts++
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !uhf.IsRetryable(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err)
		}
		if err := sleepContext(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", description(config), ErrRetriesExhausted, attempts, lastErr)
}

// PollOperation reports done=true once it has a result worth returning
type PollOperation[T any] func(ctx context.Context) (result T, done bool, err error)

// PollUntil calls operation every interval until it is done, fails, or ctx expires
func PollUntil[T any](ctx context.Context, interval time.Duration, operation PollOperation[T]) (T, error) {
	var zero T
	if interval <= 0 {
		return zero, fmt.Errorf("%w: poll interval must be positive, got %v", uhf.ErrInvalidParameter, interval)
	}

	for {
		result, done, err := operation(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return result, nil
		}
		if err := sleepContext(ctx, interval); err != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func description(config RetryConfig) string {
	if config.Description == "" {
		return "operation"
	}
	return config.Description
}
