package storage

import (
	"testing"
	"time"
)

func TestBuildDateRowsRange(t *testing.T) {
	start := time.Date(2024, 5, 30, 15, 30, 0, 0, time.UTC)
	end := time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC)

	rows := BuildDateRows(start, end)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0].DateID != 20240530 || rows[3].DateID != 20240602 {
		t.Errorf("date ids = %d..%d, want 20240530..20240602", rows[0].DateID, rows[3].DateID)
	}
	for _, row := range rows {
		if row.FullDate.Hour() != 0 || row.FullDate.Location() != time.UTC {
			t.Errorf("FullDate %v not midnight UTC", row.FullDate)
		}
	}
}

func TestBuildDateRowsAttributes(t *testing.T) {
	// 2024-06-01 is a Saturday in Q2, ISO week 22.
	rows := BuildDateRows(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.DayName != "Saturday" {
		t.Errorf("DayName = %q", row.DayName)
	}
	if row.MonthName != "June" {
		t.Errorf("MonthName = %q", row.MonthName)
	}
	if row.Year != 2024 || row.Quarter != 2 {
		t.Errorf("Year/Quarter = %d/%d, want 2024/2", row.Year, row.Quarter)
	}
	if row.WeekNumber != 22 {
		t.Errorf("WeekNumber = %d, want 22", row.WeekNumber)
	}
	if !row.IsWeekend {
		t.Error("Saturday not flagged as weekend")
	}
}

func TestBuildDateRowsWeekdays(t *testing.T) {
	// Monday 2024-06-03 through Sunday 2024-06-09.
	rows := BuildDateRows(
		time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
	)
	weekend := 0
	for _, row := range rows {
		if row.IsWeekend {
			weekend++
		}
	}
	if weekend != 2 {
		t.Errorf("weekend days = %d, want 2", weekend)
	}
}

func TestBuildDateRowsEmptyRange(t *testing.T) {
	rows := BuildDateRows(
		time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	)
	if len(rows) != 0 {
		t.Errorf("got %d rows for inverted range, want 0", len(rows))
	}
}

func TestBuildDateRowsQuarterBoundaries(t *testing.T) {
	cases := []struct {
		month   time.Month
		quarter int
	}{
		{time.January, 1},
		{time.March, 1},
		{time.April, 2},
		{time.September, 3},
		{time.December, 4},
	}
	for _, tc := range cases {
		day := time.Date(2024, tc.month, 15, 0, 0, 0, 0, time.UTC)
		rows := BuildDateRows(day, day)
		if rows[0].Quarter != tc.quarter {
			t.Errorf("%s quarter = %d, want %d", tc.month, rows[0].Quarter, tc.quarter)
		}
	}
}
