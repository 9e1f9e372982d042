package storage

import (
	"time"

	"ytpipe/model"
)

// BuildDateRows materializes one calendar row per day from start through end
// inclusive. Both bounds are truncated to midnight UTC before iteration; an
// end before start yields an empty slice.
func BuildDateRows(start, end time.Time) []model.DateRow {
	day := midnightUTC(start)
	last := midnightUTC(end)

	var rows []model.DateRow
	for !day.After(last) {
		_, week := day.ISOWeek()
		rows = append(rows, model.DateRow{
			DateID:     model.DateID(day),
			FullDate:   day,
			DayName:    day.Weekday().String(),
			MonthName:  day.Month().String(),
			Year:       day.Year(),
			Quarter:    (int(day.Month())-1)/3 + 1,
			WeekNumber: week,
			IsWeekend:  day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
		})
		day = day.AddDate(0, 0, 1)
	}
	return rows
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
