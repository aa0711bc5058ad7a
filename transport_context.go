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
	"context"
	"fmt"
	"time"
)

// TransportContext is a Transport whose blocking calls honour a context.
type TransportContext interface {
	Transport

	// WriteContext writes a frame unless ctx is done
	WriteContext(ctx context.Context, data []byte) error

	// ReadUpToContext reads at most maxBytes, giving up when ctx is done
	ReadUpToContext(ctx context.Context, maxBytes int) ([]byte, error)
}

// transportContextAdapter wraps a Transport to provide context support
type transportContextAdapter struct {
	Transport
}

// WriteContext implements TransportContext
func (t *transportContextAdapter) WriteContext(ctx context.Context, data []byte) error {
	_, err := runWithContext(ctx, "write", func() ([]byte, error) {
		return nil, t.Write(data)
	})
	return err
}

// ReadUpToContext implements TransportContext. A read abandoned on
// cancellation keeps running in the background until the transport times out.
func (t *transportContextAdapter) ReadUpToContext(ctx context.Context, maxBytes int) ([]byte, error) {
	return runWithContext(ctx, "read", func() ([]byte, error) {
		return t.ReadUpTo(maxBytes)
	})
}

func runWithContext(ctx context.Context, op string, fn func() ([]byte, error)) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled before %s: %w", op, ctx.Err())
	default:
	}

	type result struct {
		err  error
		data []byte
	}
	resultChan := make(chan result, 1)

	go func() {
		data, err := fn()
		resultChan <- result{err, data}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled during %s: %w", op, ctx.Err())
	case res := <-resultChan:
		return res.data, res.err
	}
}

// AsTransportContext converts a Transport to TransportContext
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}

// timeoutFromContext returns the time left before ctx expires, or fallback
// when ctx has no deadline or fallback is sooner.
func timeoutFromContext(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	left := time.Until(deadline)
	if left <= 0 {
		return time.Millisecond
	}
	if fallback > 0 && fallback < left {
		return fallback
	}
	return left
}
