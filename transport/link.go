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

// Package transport opens a reader transport from a connection string.
//
// Supported forms:
//
//	COM10, /dev/ttyUSB0, file:///dev/ttyUSB0   serial port
//	tcp://host:port, socket://host:port        serial-to-network bridge
package transport

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/transport/tcp"
	"github.com/ZaparooProject/go-uhf/transport/uart"
)

// Config holds the line settings applied to whichever transport is opened
type Config struct {
	BaudRate int
	Timeout  time.Duration
}

// Kind reports which transport a connection string selects
func Kind(link string) (uhf.TransportType, string, error) {
	if link == "" {
		return "", "", fmt.Errorf("%w: connection string is empty", uhf.ErrInvalidParameter)
	}

	// bare Windows port names and device paths are not URLs
	if !strings.Contains(link, "://") {
		return uhf.TransportUART, link, nil
	}

	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", uhf.ErrInvalidParameter, err)
	}

	switch u.Scheme {
	case "socket", "tcp":
		if u.Host == "" {
			return "", "", fmt.Errorf("%w: missing host in %q", uhf.ErrInvalidParameter, link)
		}
		return uhf.TransportTCP, u.Host, nil
	case "file", "serial":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", "", fmt.Errorf("%w: missing device path in %q", uhf.ErrInvalidParameter, link)
		}
		return uhf.TransportUART, path, nil
	default:
		return "", "", fmt.Errorf("%w: can not find a valid connection string in %q", uhf.ErrInvalidParameter, link)
	}
}

// Open connects to the reader named by link
func Open(link string, cfg Config) (uhf.Transport, error) {
	kind, target, err := Kind(link)
	if err != nil {
		return nil, err
	}

	switch kind {
	case uhf.TransportTCP:
		var opts []tcp.Option
		if cfg.Timeout > 0 {
			opts = append(opts, tcp.WithTimeout(cfg.Timeout))
		}
		t, err := tcp.New(target, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		var opts []uart.Option
		if cfg.BaudRate > 0 {
			opts = append(opts, uart.WithBaudRate(cfg.BaudRate))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, uart.WithTimeout(cfg.Timeout))
		}
		t, err := uart.New(target, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Factory returns a uhf.TransportFactory that opens connection strings with cfg
func Factory(cfg Config) uhf.TransportFactory {
	return func(link string) (uhf.Transport, error) {
		return Open(link, cfg)
	}
}
