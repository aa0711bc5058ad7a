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

// Command readtag configures a UHF reader and prints the TID of the tag in
// its field.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	retry "github.com/ZaparooProject/go-uhf/internal/transport"
	"github.com/ZaparooProject/go-uhf/polling"
	"github.com/ZaparooProject/go-uhf/transport"
	"github.com/ZaparooProject/go-uhf/transport/uart"
)

// Exit codes
const (
	exitOK = iota
	exitSerial
	exitProtocol
	exitNoTag
	exitUsage
)

type config struct {
	device       string
	baud         int
	timeout      time.Duration
	wait         time.Duration
	pollInterval time.Duration
	retryDelay   time.Duration
	retries      int
	debug        bool
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("readtag", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &config{}
	fs.StringVar(&cfg.device, "device", "",
		"Reader connection: serial port (/dev/ttyUSB0, COM3) or tcp://host:port")
	fs.IntVar(&cfg.baud, "baud", uart.DefaultBaudRate, "Serial baud rate")
	fs.DurationVar(&cfg.timeout, "timeout", uhf.DefaultTimeout, "Read timeout per command")
	fs.IntVar(&cfg.retries, "retries", 2, "Times to reissue the sequence after a transient failure")
	fs.DurationVar(&cfg.retryDelay, "retry-delay", 100*time.Millisecond, "Pause before a retry")
	fs.DurationVar(&cfg.wait, "wait", 0, "Keep polling until a tag appears or this much time passes (0 reads once)")
	fs.DurationVar(&cfg.pollInterval, "poll-interval", time.Second, "Pause between polls with -wait")
	fs.BoolVar(&cfg.debug, "debug", false, "Log every command and response")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.device == "" {
		return nil, errors.New("-device is required")
	}
	return cfg, nil
}

func newLogger(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// readTag runs the sequence with retries, polling when cfg.wait is set
func readTag(ctx context.Context, reader *uhf.Reader, cfg *config, logger *zap.Logger) (uhf.TagID, error) {
	readOnce := func(ctx context.Context) (uhf.TagID, error) {
		return retry.WithRetry[uhf.TagID](ctx, retry.RetryConfig{
			Description: "read tag",
			MaxRetries:  cfg.retries,
			RetryDelay:  cfg.retryDelay,
			OnRetry: func(attempt int, err error) {
				logger.Debug("retrying read", zap.Int("attempt", attempt), zap.Error(err))
			},
		}, reader.ReadTagIDContext)
	}

	if cfg.wait <= 0 {
		return readOnce(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.wait)
	defer cancel()
	return retry.PollUntil[uhf.TagID](ctx, cfg.pollInterval, func(ctx context.Context) (uhf.TagID, bool, error) {
		id, err := readOnce(ctx)
		if polling.IsNoTag(err) {
			return uhf.TagID{}, false, nil
		}
		if err != nil {
			return uhf.TagID{}, false, err
		}
		return id, true, nil
	})
}

// describe maps a failure to the message and exit code the user sees
func describe(err error) (string, int) {
	var (
		protoErr  *uhf.ProtocolError
		formatErr *uhf.FormatError
		transErr  *uhf.TransportError
	)
	switch {
	case polling.IsNoTag(err):
		return "No tag in the reader field", exitNoTag
	case errors.Is(err, context.DeadlineExceeded):
		return "No tag detected before the wait expired", exitNoTag
	case errors.As(err, &transErr), errors.Is(err, uhf.ErrTransportRead),
		errors.Is(err, uhf.ErrTransportWrite), errors.Is(err, uhf.ErrTransportClosed):
		return fmt.Sprintf("Serial error: %v", err), exitSerial
	case errors.As(err, &protoErr):
		return fmt.Sprintf("Protocol error: %v", err), exitProtocol
	case errors.As(err, &formatErr):
		return fmt.Sprintf("Format error: %v", err), exitProtocol
	default:
		return fmt.Sprintf("Error: %v", err), exitSerial
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory uhf.TransportFactory) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
		}
		return exitUsage
	}

	logger := newLogger(cfg.debug)
	defer func() { _ = logger.Sync() }()

	if factory == nil {
		factory = transport.Factory(transport.Config{BaudRate: cfg.baud, Timeout: cfg.timeout})
	}
	t, err := factory(cfg.device)
	if err != nil {
		msg, code := describe(fmt.Errorf("open %s: %w", cfg.device, err))
		_, _ = fmt.Fprintln(stderr, msg)
		return code
	}

	reader, err := uhf.New(t, uhf.WithTimeout(cfg.timeout), uhf.WithLogger(logger))
	if err != nil {
		_ = t.Close()
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer func() { _ = reader.Close() }()

	id, err := readTag(ctx, reader, cfg, logger)
	if err != nil {
		msg, code := describe(err)
		_, _ = fmt.Fprintln(stderr, msg)
		return code
	}

	_, _ = fmt.Fprintf(stdout, "TagID: %s\n", id)
	return exitOK
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, nil))
}
