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
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-uhf/internal/frame"
)

// DefaultTimeout is the per-read deadline applied to the transport
const DefaultTimeout = time.Second

// ErrSequenceInProgress is returned by Reset while a read is running
var ErrSequenceInProgress = errors.New("read sequence in progress")

// Observer receives timing and outcome of each step and each full read.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveStep(step string, elapsed time.Duration, err error)
	ObserveRead(id TagID, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveStep(string, time.Duration, error) {}
func (nopObserver) ObserveRead(TagID, time.Duration, error)  {}

// Reader drives the fixed configure-then-read command sequence over a Transport.
//
// Reader serializes calls: only one sequence is in flight at a time, so a
// single Reader may be shared by the scanner and the HTTP API.
type Reader struct {
	transport Transport
	logger    *zap.Logger
	observer  Observer
	mu        sync.Mutex
	timeout   time.Duration
	state     atomic.Int32
}

// New creates a Reader over transport
func New(transport Transport, opts ...Option) (*Reader, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	r := &Reader{
		transport: transport,
		logger:    zap.NewNop(),
		observer:  nopObserver{},
		timeout:   DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Transport returns the underlying transport
func (r *Reader) Transport() Transport {
	return r.transport
}

// State returns the position of the current or last sequence
func (r *Reader) State() State {
	return State(r.state.Load())
}

func (r *Reader) setState(s State) {
	r.state.Store(int32(s))
}

// Reset returns a finished reader to Idle. It fails while a sequence is running.
func (r *Reader) Reset() error {
	if !r.mu.TryLock() {
		return ErrSequenceInProgress
	}
	defer r.mu.Unlock()
	r.setState(StateIdle)
	return nil
}

// Close closes the underlying transport
func (r *Reader) Close() error {
	if err := r.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// ReadTagID runs the full sequence and returns the TID of the tag in the field
func (r *Reader) ReadTagID() (TagID, error) {
	return r.ReadTagIDContext(context.Background())
}

// ReadTagIDContext runs the full sequence, giving up when ctx is done.
// Every call starts from the first command; a failure at any step aborts
// the sequence and nothing further is written.
func (r *Reader) ReadTagIDContext(ctx context.Context) (TagID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	id, err := r.runSequence(ctx)
	elapsed := time.Since(start)
	r.observer.ObserveRead(id, elapsed, err)

	if err != nil {
		r.setState(StateFailed)
		r.logger.Warn("tag read failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return TagID{}, err
	}

	r.setState(StateDone)
	r.logger.Debug("tag read", zap.Stringer("tag_id", id), zap.Duration("elapsed", elapsed))
	return id, nil
}

func (r *Reader) runSequence(ctx context.Context) (TagID, error) {
	r.setState(StateIdle)
	tc := AsTransportContext(r.transport)

	var resp []byte
	for _, cmd := range Sequence() {
		if err := ctx.Err(); err != nil {
			return TagID{}, fmt.Errorf("%s: %w", cmd.Name(), err)
		}

		var err error
		resp, err = r.exchange(ctx, tc, cmd)
		if err != nil {
			return TagID{}, err
		}
	}

	return tagIDFromResponse(resp)
}

// exchange writes one command and reads its response
func (r *Reader) exchange(ctx context.Context, tc TransportContext, cmd Command) ([]byte, error) {
	r.setState(cmd.State())
	start := time.Now()

	resp, err := r.writeAndRead(ctx, tc, cmd)
	elapsed := time.Since(start)
	r.observer.ObserveStep(cmd.Name(), elapsed, err)
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("step", cmd.Name()),
		zap.String("response", hex.EncodeToString(resp)),
		zap.Duration("elapsed", elapsed),
	}
	if hdr, hdrErr := frame.ParseHeader(resp); hdrErr == nil {
		fields = append(fields, zap.Stringer("header", hdr))
	}
	r.logger.Debug("command acknowledged", fields...)

	return resp, nil
}

func (r *Reader) writeAndRead(ctx context.Context, tc TransportContext, cmd Command) ([]byte, error) {
	if err := r.transport.SetTimeout(timeoutFromContext(ctx, r.timeout)); err != nil {
		return nil, r.transportErr(ctx, cmd, "set timeout", err)
	}

	req := cmd.Frame()
	r.logger.Debug("sending command",
		zap.String("step", cmd.Name()),
		zap.String("frame", hex.EncodeToString(req)))

	if err := tc.WriteContext(ctx, req); err != nil {
		return nil, r.transportErr(ctx, cmd, "write", err)
	}

	resp, err := tc.ReadUpToContext(ctx, frame.MaxResponseLength)
	if err != nil {
		return nil, r.transportErr(ctx, cmd, "read", err)
	}

	if len(resp) == 0 {
		return nil, &ProtocolError{Step: cmd.Name(), Err: ErrEmptyResponse}
	}
	if !frame.Verify(resp) {
		return nil, &ProtocolError{Step: cmd.Name(), Err: ErrChecksumMismatch, Response: bytes.Clone(resp)}
	}
	if len(resp) < cmd.MinResponseLen() {
		return nil, &FormatError{
			Op:    cmd.Name(),
			Frame: bytes.Clone(resp),
			Need:  cmd.MinResponseLen(),
			Got:   len(resp),
		}
	}

	return resp, nil
}

// transportErr attaches the step name to a transport failure. Errors that
// are not already classified are treated as transient I/O errors.
func (*Reader) transportErr(ctx context.Context, cmd Command, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	var te *TransportError
	if errors.As(err, &te) {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	sentinel := ErrTransportRead
	if op == "write" {
		sentinel = ErrTransportWrite
	}
	return &TransportError{
		Op:        cmd.Name() + " " + op,
		Err:       fmt.Errorf("%w: %w", sentinel, err),
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}

// ReadTagIDFrom opens a transport for path, runs one sequence, and closes
// the transport before returning.
func ReadTagIDFrom(ctx context.Context, path string, factory TransportFactory, opts ...Option) (id TagID, err error) {
	if factory == nil {
		return TagID{}, fmt.Errorf("%w: transport factory not provided", ErrInvalidParameter)
	}

	transport, err := factory(path)
	if err != nil {
		return TagID{}, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	if transport == nil {
		return TagID{}, ErrNilTransport
	}
	defer func() {
		if closeErr := transport.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close transport: %w", closeErr)
		}
	}()

	reader, err := New(transport, opts...)
	if err != nil {
		return TagID{}, err
	}

	return reader.ReadTagIDContext(ctx)
}
