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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uhf "github.com/ZaparooProject/go-uhf"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()

	retryable := &uhf.ProtocolError{Step: "SetWorkMode", Err: uhf.ErrEmptyResponse}
	permanent := &uhf.FormatError{Op: "ReadTagId", Need: 24, Got: 20}

	tests := []struct {
		wantErr     error
		name        string
		results     []error
		maxRetries  int
		wantCalls   int
		wantRetries int
		wantExhaust bool
	}{
		{name: "First_Try", results: []error{nil}, maxRetries: 3, wantCalls: 1},
		{name: "Succeeds_After_Retries", results: []error{retryable, retryable, nil}, maxRetries: 3, wantCalls: 3, wantRetries: 2},
		{name: "Permanent_Stops", results: []error{permanent}, maxRetries: 3, wantCalls: 1, wantErr: permanent},
		{
			name:        "Exhausted",
			results:     []error{retryable, retryable, retryable},
			maxRetries:  2,
			wantCalls:   3,
			wantRetries: 2,
			wantErr:     uhf.ErrEmptyResponse,
			wantExhaust: true,
		},
		{name: "No_Retries", results: []error{retryable}, maxRetries: 0, wantCalls: 1, wantErr: retryable, wantExhaust: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls, retries := 0, 0
			config := RetryConfig{
				Description: "read tag",
				MaxRetries:  tt.maxRetries,
				OnRetry:     func(int, error) { retries++ },
			}

			got, err := WithRetry(context.Background(), config, func(context.Context) (int, error) {
				err := tt.results[calls]
				calls++
				if err != nil {
					return 0, err
				}
				return 42, nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantRetries, retries)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, 42, got)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantExhaust, errors.Is(err, ErrRetriesExhausted))
		})
	}
}

func TestWithRetry_ContextCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, RetryConfig{MaxRetries: 5, RetryDelay: time.Second},
		func(context.Context) (struct{}, error) {
			return struct{}{}, uhf.ErrTransportTimeout
		})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := PollUntil(context.Background(), time.Millisecond,
		func(context.Context) (string, bool, error) {
			calls++
			return "tag", calls == 3, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "tag", got)
	assert.Equal(t, 3, calls)
}

func TestPollUntil_Errors(t *testing.T) {
	t.Parallel()

	_, err := PollUntil(context.Background(), 0, func(context.Context) (int, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, uhf.ErrInvalidParameter)

	boom := errors.New("boom")
	_, err = PollUntil(context.Background(), time.Millisecond, func(context.Context) (int, bool, error) {
		return 0, false, boom
	})
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = PollUntil(ctx, 5*time.Millisecond, func(context.Context) (int, bool, error) {
		return 0, false, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
