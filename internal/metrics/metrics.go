// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus counters recorded during a run.
// A batch run has no scrape endpoint, so the registry is written to a
// node-exporter textfile at the end of the run when configured.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paper_digest"

// Fetch contains the counters for the fetch pipeline. All methods are safe
// on a nil receiver so components can run without metrics.
type Fetch struct {
	registry *prometheus.Registry

	// PapersFetched counts papers returned by each adapter, labeled by source.
	PapersFetched *prometheus.CounterVec

	// FetchFailures counts aborted requests and skipped keywords, labeled by source.
	FetchFailures *prometheus.CounterVec

	// RateLimited counts 429 responses, labeled by source.
	RateLimited *prometheus.CounterVec

	// Deduplicated counts records dropped by the merge stage.
	Deduplicated prometheus.Counter
}

// NewFetch registers the fetch counters on a fresh registry.
func NewFetch() *Fetch {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Fetch{
		registry: reg,
		PapersFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Papers returned by a source adapter.",
		}, []string{"source"}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed provider requests.",
		}, []string{"source"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "HTTP 429 responses from a provider.",
		}, []string{"source"}),
		Deduplicated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_deduplicated_total",
			Help:      "Duplicate records removed during merge.",
		}),
	}
}

// Registry returns the registry the counters live on.
func (m *Fetch) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddFetched counts n papers returned by source.
func (m *Fetch) AddFetched(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PapersFetched.WithLabelValues(source).Add(float64(n))
}

// IncFailure records a failed request to source.
func (m *Fetch) IncFailure(source string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(source).Inc()
}

// IncRateLimited records a 429 answer from source.
func (m *Fetch) IncRateLimited(source string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(source).Inc()
}

// AddDeduplicated counts n records dropped as duplicates.
func (m *Fetch) AddDeduplicated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Deduplicated.Add(float64(n))
}

// WriteTextfile writes the registry in the text exposition format to path.
// The write is atomic, as the textfile collector expects.
func (m *Fetch) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
