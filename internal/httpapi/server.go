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

// Package httpapi serves the scan endpoint and scan history over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/events"
	"github.com/ZaparooProject/go-uhf/internal/metrics"
	"github.com/ZaparooProject/go-uhf/internal/store"
)

// Scanner is the part of polling.Scanner the API drives
type Scanner interface {
	WaitForTag(ctx context.Context) (uhf.TagID, error)
	Pause()
	Resume()
	IsPaused() bool
	IsRunning() bool
}

// Options wires the server's collaborators. Scanner and Store are required.
type Options struct {
	Scanner   Scanner
	Store     store.Store
	Publisher events.Publisher
	Metrics   *metrics.ScanMetrics
	Registry  *prometheus.Registry
	Logger    *zap.Logger
	Now       func() time.Time

	Location    string
	MetricsPath string
	Version     string
	BuildDate   string

	DefaultScanTimeout time.Duration
	MaxScanTimeout     time.Duration
	// ScanRateLimit is the sustained GET /scan rate per second; zero disables limiting
	ScanRateLimit float64
	ScanBurst     int
}

// Server holds the handlers' shared state
type Server struct {
	opts    Options
	limiter *rate.Limiter
	router  *mux.Router
}

// New validates opts and builds the router
func New(opts Options) (*Server, error) {
	if opts.Scanner == nil {
		return nil, fmt.Errorf("%w: scanner is required", uhf.ErrInvalidParameter)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", uhf.ErrInvalidParameter)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultScanTimeout <= 0 {
		opts.DefaultScanTimeout = 10 * time.Second
	}
	if opts.MaxScanTimeout < opts.DefaultScanTimeout {
		opts.MaxScanTimeout = opts.DefaultScanTimeout
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	limit := rate.Inf
	if opts.ScanRateLimit > 0 {
		limit = rate.Limit(opts.ScanRateLimit)
	}
	burst := opts.ScanBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/scan", s.scan).Methods(http.MethodGet)
	router.HandleFunc("/scans", s.recentScans).Methods(http.MethodGet)
	router.HandleFunc("/scans/{tagId}", s.scansByTag).Methods(http.MethodGet)
	router.HandleFunc("/scanner/pause", s.pause).Methods(http.MethodPost)
	router.HandleFunc("/scanner/resume", s.resume).Methods(http.MethodPost)
	router.HandleFunc("/version", s.version).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.opts.Registry != nil {
		router.Handle(s.opts.MetricsPath, metrics.Handler(s.opts.Registry)).Methods(http.MethodGet)
	}
	return router
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// RecordScan stores a scan of id and publishes it. A publish failure is
// logged but does not fail the scan.
func (s *Server) RecordScan(ctx context.Context, id uhf.TagID) (store.ScanRecord, error) {
	rec := store.NewRecord(id, s.opts.Location, s.opts.Now())
	if err := s.opts.Store.Save(ctx, rec); err != nil {
		s.historyError()
		return store.ScanRecord{}, err
	}
	if err := s.opts.Publisher.Publish(ctx, rec); err != nil {
		s.historyError()
		s.opts.Logger.Warn("scan event not published",
			zap.String("scan_id", rec.ID.String()), zap.Error(err))
	}
	return rec, nil
}

func (s *Server) historyError() {
	if s.opts.Metrics != nil {
		s.opts.Metrics.HistoryErrs.Inc()
	}
}

func (s *Server) countScan(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ScanTotal.WithLabelValues(result).Inc()
	}
}

// scanTimeout reads ?timeout= as a Go duration or whole seconds
func (s *Server) scanTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return s.opts.DefaultScanTimeout, nil
	}
	d, err := parseTimeout(raw)
	if err != nil {
		return 0, err
	}
	if d > s.opts.MaxScanTimeout {
		d = s.opts.MaxScanTimeout
	}
	return d, nil
}

var (
	errBadTimeout    = errors.New("timeout must be a positive duration")
	errScannerPaused = errors.New("scanner is paused")
)
