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

// Package metrics exposes reader and scan activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	uhf "github.com/ZaparooProject/go-uhf"
	"github.com/ZaparooProject/go-uhf/polling"
)

// Outcome labels shared by the read and scan counters
const (
	ResultOK    = "ok"
	ResultNoTag = "no_tag"
	ResultError = "error"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Result classifies an error into one of the outcome labels
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case polling.IsNoTag(err):
		return ResultNoTag
	default:
		return ResultError
	}
}

// ReaderMetrics implements uhf.Observer
type ReaderMetrics struct {
	StepTotal    *prometheus.CounterVec   // labels: step, result
	StepDuration *prometheus.HistogramVec // labels: step
	ReadTotal    *prometheus.CounterVec   // labels: result
	ReadDuration prometheus.Histogram
	ErrorsByType *prometheus.CounterVec // labels: type
}

var _ uhf.Observer = (*ReaderMetrics)(nil)

// NewReaderMetrics registers and returns the sequencer metrics
func NewReaderMetrics(reg prometheus.Registerer) *ReaderMetrics {
	m := &ReaderMetrics{
		StepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uhf_step_total",
			Help: "Command exchanges by step and outcome.",
		}, []string{"step", "result"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uhf_step_duration_seconds",
			Help:    "Time from write to verified response per step.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"step"}),
		ReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uhf_read_total",
			Help: "Full read sequences by outcome.",
		}, []string{"result"}),
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uhf_read_duration_seconds",
			Help:    "Duration of full read sequences.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		ErrorsByType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uhf_read_errors_total",
			Help: "Failed read sequences by error class.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.StepTotal, m.StepDuration, m.ReadTotal, m.ReadDuration, m.ErrorsByType)
	return m
}

// ObserveStep records one command exchange
func (m *ReaderMetrics) ObserveStep(step string, elapsed time.Duration, err error) {
	m.StepTotal.WithLabelValues(step, Result(err)).Inc()
	m.StepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

// ObserveRead records one full sequence
func (m *ReaderMetrics) ObserveRead(_ uhf.TagID, elapsed time.Duration, err error) {
	result := Result(err)
	m.ReadTotal.WithLabelValues(result).Inc()
	m.ReadDuration.Observe(elapsed.Seconds())
	if result == ResultError {
		m.ErrorsByType.WithLabelValues(uhf.GetErrorType(err).String()).Inc()
	}
}

// ScanMetrics covers the scanner and the HTTP scan endpoint
type ScanMetrics struct {
	TagEvents   *prometheus.CounterVec // labels: event=detected|changed|removed
	TagPresent  prometheus.Gauge
	ScanTotal   *prometheus.CounterVec // labels: result
	RateLimited prometheus.Counter
	HistoryErrs prometheus.Counter
}

// NewScanMetrics registers and returns the scan metrics
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	m := &ScanMetrics{
		TagEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uhf_tag_events_total",
			Help: "Tag presence transitions seen by the scanner.",
		}, []string{"event"}),
		TagPresent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uhf_tag_present",
			Help: "1 while a tag is in the reader field.",
		}),
		ScanTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uhf_http_scan_total",
			Help: "GET /scan requests by outcome.",
		}, []string{"result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uhf_http_scan_rate_limited_total",
			Help: "GET /scan requests rejected by the rate limiter.",
		}),
		HistoryErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uhf_scan_history_errors_total",
			Help: "Scan records that could not be stored or published.",
		}),
	}
	reg.MustRegister(m.TagEvents, m.TagPresent, m.ScanTotal, m.RateLimited, m.HistoryErrs)
	return m
}

// TagDetected records a tag entering the field
func (m *ScanMetrics) TagDetected() {
	m.TagEvents.WithLabelValues("detected").Inc()
	m.TagPresent.Set(1)
}

// TagChanged records one tag replacing another without a gap
func (m *ScanMetrics) TagChanged() {
	m.TagEvents.WithLabelValues("changed").Inc()
}

// TagRemoved records the field emptying
func (m *ScanMetrics) TagRemoved() {
	m.TagEvents.WithLabelValues("removed").Inc()
	m.TagPresent.Set(0)
}
