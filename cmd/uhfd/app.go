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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/config"
	"github.com/ZaparooProject/go-uhf/internal/events"
	"github.com/ZaparooProject/go-uhf/internal/httpapi"
	"github.com/ZaparooProject/go-uhf/internal/metrics"
	"github.com/ZaparooProject/go-uhf/internal/store"
	"github.com/ZaparooProject/go-uhf/polling"
	"github.com/ZaparooProject/go-uhf/transport"
)

const shutdownTimeout = 10 * time.Second

// app owns every long-lived component of the daemon
type app struct {
	logger    *zap.Logger
	reader    *uhf.Reader
	scanner   *polling.Scanner
	store     store.Store
	publisher events.Publisher
	api       *httpapi.Server
	server    *http.Server
}

// newApp wires the components; factory nil opens cfg.Reader.Link directly
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, factory uhf.TransportFactory) (*app, error) {
	if cfg.Reader.Link == "" {
		return nil, errors.New("reader.link is required")
	}
	if factory == nil {
		factory = transport.Factory(transport.Config{BaudRate: cfg.Reader.BaudRate, Timeout: cfg.Reader.Timeout})
	}

	a := &app{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	reg := metrics.NewRegistry()
	readerMetrics := metrics.NewReaderMetrics(reg)
	scanMetrics := metrics.NewScanMetrics(reg)

	t, err := factory(cfg.Reader.Link)
	if err != nil {
		return nil, fmt.Errorf("open reader %s: %w", cfg.Reader.Link, err)
	}
	a.reader, err = uhf.New(t,
		uhf.WithTimeout(cfg.Reader.Timeout),
		uhf.WithLogger(logger.Named("reader")),
		uhf.WithObserver(readerMetrics),
	)
	if err != nil {
		_ = t.Close()
		return nil, err
	}

	a.scanner, err = polling.NewScanner(a.reader, cfg.PollingConfig())
	if err != nil {
		return nil, err
	}
	a.scanner.SetLogger(logger.Named("scanner"))
	// the monitor logs transitions itself
	a.scanner.OnTagDetected = func(uhf.TagID) { scanMetrics.TagDetected() }
	a.scanner.OnTagChanged = func(_, _ uhf.TagID) { scanMetrics.TagChanged() }
	a.scanner.OnTagRemoved = func(uhf.TagID) { scanMetrics.TagRemoved() }

	if a.store, err = openStore(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if a.publisher, err = openPublisher(ctx, cfg.Redis); err != nil {
		return nil, err
	}

	a.api, err = httpapi.New(httpapi.Options{
		Scanner:            a.scanner,
		Store:              a.store,
		Publisher:          a.publisher,
		Metrics:            scanMetrics,
		Registry:           metricsRegistry(cfg.Metrics, reg),
		Logger:             logger.Named("http"),
		Location:           cfg.Reader.Location,
		MetricsPath:        cfg.Metrics.Path,
		Version:            buildVersion,
		BuildDate:          buildDate,
		DefaultScanTimeout: cfg.HTTP.DefaultScanTimeout,
		MaxScanTimeout:     cfg.HTTP.MaxScanTimeout,
		ScanRateLimit:      cfg.HTTP.ScanRateLimit,
		ScanBurst:          cfg.HTTP.ScanBurst,
	})
	if err != nil {
		return nil, err
	}

	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           a.api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	ok = true
	return a, nil
}

func metricsRegistry(cfg config.MetricsConfig, reg *prometheus.Registry) *prometheus.Registry {
	if !cfg.Enable {
		return nil
	}
	return reg
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.DSN == "" {
		return store.NewMemoryStore(0), nil
	}
	s, err := store.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPublisher(ctx context.Context, cfg config.RedisConfig) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewRedisPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// run starts the scanner and serves HTTP until ctx is done
func (a *app) run(ctx context.Context) error {
	if err := a.scanner.Start(ctx); err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

// close releases components in reverse order of creation
func (a *app) close() {
	if a.scanner != nil {
		_ = a.scanner.Stop()
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.reader != nil {
		_ = a.reader.Close()
	}
}
