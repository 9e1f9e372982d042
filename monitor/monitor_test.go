package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ytpipe/storage"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedMonitor() *Monitor {
	return NewAt(func() time.Time { return testNow })
}

func TestHealthWithoutRuns(t *testing.T) {
	h := fixedMonitor().Health()
	if h.Status != StatusHealthy {
		t.Errorf("Status = %q, want %q", h.Status, StatusHealthy)
	}
	if h.SuccessRate != 100 {
		t.Errorf("SuccessRate = %v, want 100", h.SuccessRate)
	}
}

func TestHealthThresholds(t *testing.T) {
	cases := []struct {
		successes int
		failures  int
		want      string
	}{
		{19, 1, StatusHealthy},   // 95%
		{18, 2, StatusDegraded},  // 90%
		{16, 4, StatusDegraded},  // 80%
		{15, 5, StatusUnhealthy}, // 75%
		{0, 1, StatusUnhealthy},
	}
	for _, tc := range cases {
		m := fixedMonitor()
		for i := 0; i < tc.successes; i++ {
			m.RecordSuccess("run", time.Second)
		}
		for i := 0; i < tc.failures; i++ {
			m.RecordFailure("run", time.Second, errors.New("boom"))
		}
		if got := m.Health().Status; got != tc.want {
			t.Errorf("%d/%d runs: Status = %q, want %q",
				tc.successes, tc.successes+tc.failures, got, tc.want)
		}
	}
}

func TestHealthCounters(t *testing.T) {
	m := fixedMonitor()
	m.RecordSuccess("a", 2*time.Second)
	m.RecordSuccess("b", 4*time.Second)
	m.RecordFailure("c", 3*time.Second, errors.New("quota exceeded"))

	h := m.Health()
	if h.Runs != 3 || h.Successes != 2 || h.Failures != 1 {
		t.Errorf("counters = %d/%d/%d, want 3/2/1", h.Runs, h.Successes, h.Failures)
	}
	if h.AvgDuration != 3*time.Second {
		t.Errorf("AvgDuration = %v, want 3s", h.AvgDuration)
	}
	if !h.LastRun.Equal(testNow) {
		t.Errorf("LastRun = %v, want %v", h.LastRun, testNow)
	}
	if len(h.RecentErrors) != 1 || h.RecentErrors[0].Message != "quota exceeded" {
		t.Errorf("RecentErrors = %+v", h.RecentErrors)
	}
}

func TestHealthKeepsNewestErrors(t *testing.T) {
	m := fixedMonitor()
	for i := 0; i < 120; i++ {
		m.RecordFailure("run", time.Second, fmt.Errorf("failure %d", i))
	}

	recent := m.Health().RecentErrors
	if len(recent) != recentErrorCount {
		t.Fatalf("got %d recent errors, want %d", len(recent), recentErrorCount)
	}
	if recent[0].Message != "failure 115" || recent[4].Message != "failure 119" {
		t.Errorf("recent window = %q..%q, want failure 115..failure 119",
			recent[0].Message, recent[4].Message)
	}
	if n := len(m.errors); n != errorHistoryLimit {
		t.Errorf("retained %d errors, want %d", n, errorHistoryLimit)
	}
}

func TestClassifyFreshness(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Minute, FreshnessFresh},
		{59 * time.Minute, FreshnessFresh},
		{time.Hour, FreshnessSlightlyStale},
		{5 * time.Hour, FreshnessSlightlyStale},
		{12 * time.Hour, FreshnessStale},
		{24 * time.Hour, FreshnessVeryStale},
		{72 * time.Hour, FreshnessVeryStale},
	}
	for _, tc := range cases {
		if got := ClassifyFreshness(tc.age); got != tc.want {
			t.Errorf("ClassifyFreshness(%v) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

type fakeUpdater struct {
	ts  time.Time
	err error
}

func (f fakeUpdater) LatestStatUpdate(ctx context.Context) (time.Time, error) {
	return f.ts, f.err
}

func TestCheckFreshness(t *testing.T) {
	m := fixedMonitor()

	f, err := m.CheckFreshness(context.Background(), fakeUpdater{ts: testNow.Add(-30 * time.Minute)})
	if err != nil {
		t.Fatalf("CheckFreshness: %v", err)
	}
	if f.Status != FreshnessFresh {
		t.Errorf("Status = %q, want %q", f.Status, FreshnessFresh)
	}
	if f.Age != 30*time.Minute {
		t.Errorf("Age = %v, want 30m", f.Age)
	}
}

func TestCheckFreshnessEmptyWarehouse(t *testing.T) {
	m := fixedMonitor()

	f, err := m.CheckFreshness(context.Background(), fakeUpdater{err: storage.ErrNotFound})
	if err != nil {
		t.Fatalf("CheckFreshness: %v", err)
	}
	if f.Status != FreshnessUnknown {
		t.Errorf("Status = %q, want %q", f.Status, FreshnessUnknown)
	}
}

func TestCheckFreshnessPropagatesLookupFailure(t *testing.T) {
	m := fixedMonitor()

	lookupErr := errors.New("connection refused")
	_, err := m.CheckFreshness(context.Background(), fakeUpdater{err: lookupErr})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("error = %v, want %v", err, lookupErr)
	}
}
