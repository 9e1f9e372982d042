// Package monitor tracks pipeline run outcomes and warehouse freshness.
//
// The Monitor keeps an in-memory run ledger (counters, durations, a bounded
// error history) and mirrors the headline numbers into Prometheus collectors.
// It is safe for concurrent use.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"ytpipe/storage"
)

// Health status levels, derived from the success rate over all recorded runs.
const (
	StatusHealthy   = "HEALTHY"   // success rate >= 95%
	StatusDegraded  = "DEGRADED"  // success rate >= 80%
	StatusUnhealthy = "UNHEALTHY" // anything below
)

const (
	healthyThreshold  = 95.0
	degradedThreshold = 80.0

	// errorHistoryLimit bounds the retained failure records.
	errorHistoryLimit = 100
	// recentErrorCount is how many failures a health report includes.
	recentErrorCount = 5
)

// Freshness buckets for the newest warehouse snapshot.
const (
	FreshnessFresh         = "fresh"          // under 1 hour old
	FreshnessSlightlyStale = "slightly_stale" // under 6 hours
	FreshnessStale         = "stale"          // under 24 hours
	FreshnessVeryStale     = "very_stale"     // 24 hours or older
	FreshnessUnknown       = "unknown"        // no snapshot exists
)

// RunError is one retained pipeline failure.
type RunError struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Message   string    `json:"message"`
}

// HealthStatus is a point-in-time summary of pipeline health.
type HealthStatus struct {
	Status       string        `json:"status"`
	Runs         int           `json:"runs"`
	Successes    int           `json:"successes"`
	Failures     int           `json:"failures"`
	SuccessRate  float64       `json:"success_rate"`
	AvgDuration  time.Duration `json:"avg_duration"`
	LastRun      time.Time     `json:"last_run"`
	RecentErrors []RunError    `json:"recent_errors,omitempty"`
}

// Freshness describes how old the newest warehouse snapshot is.
type Freshness struct {
	Status     string        `json:"status"`
	Age        time.Duration `json:"age"`
	LastUpdate time.Time     `json:"last_update"`
}

// LatestUpdater is the warehouse capability freshness checks need.
type LatestUpdater interface {
	LatestStatUpdate(ctx context.Context) (time.Time, error)
}

// Monitor records run outcomes. The zero value is not usable; call New.
type Monitor struct {
	mu            sync.Mutex
	runs          int
	successes     int
	failures      int
	totalDuration time.Duration
	lastRun       time.Time
	errors        []RunError

	now func() time.Time
}

// New returns a Monitor using wall-clock time.
func New() *Monitor { return &Monitor{now: time.Now} }

// NewAt returns a Monitor with a fixed clock, for tests.
func NewAt(now func() time.Time) *Monitor { return &Monitor{now: now} }

// RecordSuccess logs one completed run.
func (m *Monitor) RecordSuccess(runID string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.successes++
	m.totalDuration += d
	m.lastRun = m.now()

	runsTotal.WithLabelValues("success").Inc()
	runDurationSeconds.Observe(d.Seconds())
}

// RecordFailure logs one failed run and retains the error, evicting the
// oldest entry once the history is full.
func (m *Monitor) RecordFailure(runID string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.failures++
	m.totalDuration += d
	m.lastRun = m.now()

	m.errors = append(m.errors, RunError{
		Timestamp: m.now(),
		RunID:     runID,
		Message:   err.Error(),
	})
	if len(m.errors) > errorHistoryLimit {
		m.errors = m.errors[len(m.errors)-errorHistoryLimit:]
	}

	runsTotal.WithLabelValues("failure").Inc()
	runDurationSeconds.Observe(d.Seconds())
}

// Health summarizes recorded runs. With no runs yet the pipeline counts as
// healthy.
func (m *Monitor) Health() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 100.0
	var avg time.Duration
	if m.runs > 0 {
		rate = float64(m.successes) / float64(m.runs) * 100
		avg = m.totalDuration / time.Duration(m.runs)
	}

	status := StatusUnhealthy
	switch {
	case rate >= healthyThreshold:
		status = StatusHealthy
	case rate >= degradedThreshold:
		status = StatusDegraded
	}

	recent := m.errors
	if len(recent) > recentErrorCount {
		recent = recent[len(recent)-recentErrorCount:]
	}
	out := make([]RunError, len(recent))
	copy(out, recent)

	return HealthStatus{
		Status:       status,
		Runs:         m.runs,
		Successes:    m.successes,
		Failures:     m.failures,
		SuccessRate:  rate,
		AvgDuration:  avg,
		LastRun:      m.lastRun,
		RecentErrors: out,
	}
}

// CheckFreshness asks the warehouse for its newest snapshot time and buckets
// the age. A warehouse with no snapshots reports FreshnessUnknown without an
// error; other lookup failures propagate.
func (m *Monitor) CheckFreshness(ctx context.Context, src LatestUpdater) (Freshness, error) {
	last, err := src.LatestStatUpdate(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Freshness{Status: FreshnessUnknown}, nil
		}
		return Freshness{}, err
	}

	age := m.now().Sub(last)
	freshnessSeconds.Set(age.Seconds())
	f := Freshness{Status: ClassifyFreshness(age), Age: age, LastUpdate: last}
	if f.Status != FreshnessFresh {
		log.Printf("monitor: warehouse data is %s (age %s)", f.Status, age.Round(time.Second))
	}
	return f, nil
}

// ClassifyFreshness buckets a snapshot age.
func ClassifyFreshness(age time.Duration) string {
	switch {
	case age < time.Hour:
		return FreshnessFresh
	case age < 6*time.Hour:
		return FreshnessSlightlyStale
	case age < 24*time.Hour:
		return FreshnessStale
	default:
		return FreshnessVeryStale
	}
}
