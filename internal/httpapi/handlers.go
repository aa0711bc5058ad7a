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

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/internal/metrics"
	"github.com/ZaparooProject/go-uhf/polling"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, errBadTimeout
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errBadTimeout
	}
	return d, nil
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		if s.opts.Metrics != nil {
			s.opts.Metrics.RateLimited.Inc()
		}
		writeError(w, http.StatusTooManyRequests, "too many scan requests")
		return
	}

	timeout, err := s.scanTimeout(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// a paused scanner never detects anything
	if s.opts.Scanner.IsPaused() {
		s.countScan(metrics.ResultError)
		writeError(w, http.StatusServiceUnavailable, errScannerPaused.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	id, err := s.opts.Scanner.WaitForTag(ctx)
	if err != nil {
		s.scanFailed(w, r, err)
		return
	}

	rec, err := s.RecordScan(r.Context(), id)
	if err != nil {
		s.countScan(metrics.ResultError)
		s.opts.Logger.Error("scan not stored", zap.Stringer("tag_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan could not be stored")
		return
	}

	s.countScan(metrics.ResultOK)
	s.opts.Logger.Info("tag scanned", zap.Stringer("tag_id", id), zap.String("scan_id", rec.ID.String()))
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) scanFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.countScan(metrics.ResultNoTag)
		writeError(w, http.StatusGatewayTimeout, "no tag detected")
	case errors.Is(err, polling.ErrScannerNotRunning), errors.Is(err, polling.ErrScannerStopped):
		s.countScan(metrics.ResultError)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case r.Context().Err() != nil:
		// client went away; nobody reads the response
		s.countScan(metrics.ResultError)
	default:
		s.countScan(metrics.ResultError)
		s.opts.Logger.Warn("scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) recentScans(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	recs, err := s.opts.Store.Recent(r.Context(), limit)
	if err != nil {
		s.opts.Logger.Error("recent scans", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) scansByTag(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["tagId"]
	id, err := uhf.ParseTagID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "tag id must be 24 hex characters")
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	recs, err := s.opts.Store.ByTag(r.Context(), id.String(), limit)
	if err != nil {
		s.opts.Logger.Error("scans by tag", zap.Stringer("tag_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan history unavailable")
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "no scans for tag "+id.String())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

type scannerStatus struct {
	Running bool `json:"running"`
	Paused  bool `json:"paused"`
}

func (s *Server) status() scannerStatus {
	return scannerStatus{Running: s.opts.Scanner.IsRunning(), Paused: s.opts.Scanner.IsPaused()}
}

func (s *Server) pause(w http.ResponseWriter, _ *http.Request) {
	s.opts.Scanner.Pause()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) resume(w http.ResponseWriter, _ *http.Request) {
	s.opts.Scanner.Resume()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version   string `json:"version"`
		BuildDate string `json:"build_date"`
	}{Version: s.opts.Version, BuildDate: s.opts.BuildDate})
}

type health struct {
	Status  string        `json:"status"`
	Events  string        `json:"events,omitempty"`
	Scanner scannerStatus `json:"scanner"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	h := health{Status: "ok", Scanner: s.status()}
	code := http.StatusOK

	if !h.Scanner.Running {
		h.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.opts.Publisher.HealthCheck(ctx); err != nil {
		h.Events = err.Error()
		if code == http.StatusOK {
			h.Status = "degraded"
		}
	}

	writeJSON(w, code, h)
}
