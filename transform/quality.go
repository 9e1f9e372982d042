package transform

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"ytpipe/model"
)

// Quality verdict boundaries on the overall 0-100 score.
const (
	verdictExcellent = 90
	verdictGood      = 75
	verdictFair      = 60
)

// Heuristic thresholds for suspicious zero-valued counters.
const (
	zeroSubscriberRatio = 0.5
	zeroViewRatio       = 0.3
)

// CollectionQuality summarizes the checks for one entity collection.
type CollectionQuality struct {
	// Total is the number of records checked.
	Total int
	// CompletenessScore is the percentage of non-missing values across the
	// collection's critical columns.
	CompletenessScore float64
	// ValidityScore is the percentage of rows with every critical column set.
	ValidityScore float64
	// Issues lists heuristic findings (duplicates, suspicious zeros, outliers).
	Issues []string
	// Status is "PASS", "WARNING" or "EMPTY".
	Status string
}

// QualityReport aggregates collection checks into an advisory verdict. It is
// surfaced to the monitor but never blocks or rolls back a load.
type QualityReport struct {
	Timestamp time.Time
	Channels  CollectionQuality
	Videos    CollectionQuality
	Stats     CollectionQuality
	// OverallScore is avg(completeness, validity) minus an issue penalty of
	// 5 points per issue capped at 30, clamped to [0, 100].
	OverallScore float64
	TotalIssues  int
	// Verdict is Excellent (>=90), Good (>=75), Fair (>=60) or Poor.
	Verdict string
}

// AllIssues returns every issue across collections.
func (r *QualityReport) AllIssues() []string {
	var issues []string
	issues = append(issues, r.Channels.Issues...)
	issues = append(issues, r.Videos.Issues...)
	issues = append(issues, r.Stats.Issues...)
	return issues
}

// CheckQuality runs the quality gate over one run's validated collections.
func CheckQuality(channels []model.Channel, videos []model.Video, stats []model.StatSnapshot, now time.Time) QualityReport {
	report := QualityReport{
		Timestamp: now,
		Channels:  checkChannels(channels),
		Videos:    checkVideos(videos),
		Stats:     checkStats(stats),
	}

	report.TotalIssues = len(report.AllIssues())

	var completeness, validity []float64
	for _, c := range []CollectionQuality{report.Channels, report.Videos, report.Stats} {
		if c.Status == "EMPTY" {
			continue
		}
		completeness = append(completeness, c.CompletenessScore)
		validity = append(validity, c.ValidityScore)
	}

	penalty := math.Min(float64(report.TotalIssues)*5, 30)
	score := (mean(completeness)+mean(validity))/2 - penalty
	report.OverallScore = round2(math.Max(0, math.Min(100, score)))

	switch {
	case report.OverallScore >= verdictExcellent:
		report.Verdict = "Excellent"
	case report.OverallScore >= verdictGood:
		report.Verdict = "Good"
	case report.OverallScore >= verdictFair:
		report.Verdict = "Fair"
	default:
		report.Verdict = "Poor"
	}

	log.Printf("transform: quality gate scored %.2f (%s) with %d issues",
		report.OverallScore, report.Verdict, report.TotalIssues)
	return report
}

func checkChannels(channels []model.Channel) CollectionQuality {
	if len(channels) == 0 {
		return CollectionQuality{Status: "EMPTY", Issues: []string{"no channel data available"}}
	}

	q := CollectionQuality{Total: len(channels)}

	present := 0
	validRows := 0
	zeroSubscribers := 0
	seen := make(map[string]bool)
	duplicates := 0
	for _, ch := range channels {
		cols := []bool{ch.ChannelID != "", ch.Name != "", !ch.PublishedAt.IsZero()}
		rowValid := true
		for _, ok := range cols {
			if ok {
				present++
			} else {
				rowValid = false
			}
		}
		if rowValid {
			validRows++
		}
		if ch.SubscriberCount == 0 {
			zeroSubscribers++
		}
		if seen[ch.ChannelID] {
			duplicates++
		}
		seen[ch.ChannelID] = true
	}

	q.CompletenessScore = percent(present, len(channels)*3)
	q.ValidityScore = percent(validRows, len(channels))

	if duplicates > 0 {
		q.Issues = append(q.Issues, fmt.Sprintf("%d duplicate channel ids", duplicates))
	}
	if float64(zeroSubscribers) > float64(len(channels))*zeroSubscriberRatio {
		q.Issues = append(q.Issues, fmt.Sprintf("suspicious zero-subscriber ratio: %d of %d channels", zeroSubscribers, len(channels)))
	}

	q.Status = statusFor(q.Issues)
	return q
}

func checkVideos(videos []model.Video) CollectionQuality {
	if len(videos) == 0 {
		return CollectionQuality{Status: "EMPTY", Issues: []string{"no video data available"}}
	}

	q := CollectionQuality{Total: len(videos)}

	present := 0
	validRows := 0
	zeroViews := 0
	seen := make(map[string]bool)
	duplicates := 0
	for _, v := range videos {
		cols := []bool{v.VideoID != "", v.Title != "", v.ChannelID != ""}
		rowValid := true
		for _, ok := range cols {
			if ok {
				present++
			} else {
				rowValid = false
			}
		}
		if rowValid {
			validRows++
		}
		if v.ViewCount == 0 {
			zeroViews++
		}
		if seen[v.VideoID] {
			duplicates++
		}
		seen[v.VideoID] = true
	}

	q.CompletenessScore = percent(present, len(videos)*3)
	q.ValidityScore = percent(validRows, len(videos))

	if duplicates > 0 {
		q.Issues = append(q.Issues, fmt.Sprintf("%d duplicate video ids", duplicates))
	}
	if float64(zeroViews) > float64(len(videos))*zeroViewRatio {
		q.Issues = append(q.Issues, fmt.Sprintf("suspicious zero-view ratio: %d of %d videos", zeroViews, len(videos)))
	}

	q.Status = statusFor(q.Issues)
	return q
}

func checkStats(stats []model.StatSnapshot) CollectionQuality {
	if len(stats) == 0 {
		return CollectionQuality{Status: "EMPTY", Issues: []string{"no video statistics available"}}
	}

	q := CollectionQuality{Total: len(stats)}

	present := 0
	validRows := 0
	seen := make(map[string]bool)
	duplicates := 0
	views := make([]float64, 0, len(stats))
	likes := make([]float64, 0, len(stats))
	comments := make([]float64, 0, len(stats))
	for _, s := range stats {
		cols := []bool{s.VideoID != "", s.DateID != 0}
		rowValid := true
		for _, ok := range cols {
			if ok {
				present++
			} else {
				rowValid = false
			}
		}
		if rowValid {
			validRows++
		}
		key := fmt.Sprintf("%s/%d", s.VideoID, s.DateID)
		if seen[key] {
			duplicates++
		}
		seen[key] = true

		views = append(views, float64(s.ViewCount))
		likes = append(likes, float64(s.LikeCount))
		comments = append(comments, float64(s.CommentCount))
	}

	q.CompletenessScore = percent(present, len(stats)*2)
	q.ValidityScore = percent(validRows, len(stats))

	if duplicates > 0 {
		q.Issues = append(q.Issues, fmt.Sprintf("%d duplicate (video, date) snapshots", duplicates))
	}
	for _, col := range []struct {
		name   string
		values []float64
	}{
		{"view_count", views},
		{"like_count", likes},
		{"comment_count", comments},
	} {
		if n := countOutliersIQR(col.values); n > 0 {
			q.Issues = append(q.Issues, fmt.Sprintf("%d potential outliers in %s", n, col.name))
		}
	}

	q.Status = statusFor(q.Issues)
	return q
}

// countOutliersIQR counts values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR].
func countOutliersIQR(values []float64) int {
	if len(values) < 4 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := 0
	for _, v := range sorted {
		if v < lower || v > upper {
			outliers++
		}
	}
	return outliers
}

// quantile computes the q-quantile of a sorted slice with linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func statusFor(issues []string) string {
	if len(issues) == 0 {
		return "PASS"
	}
	return "WARNING"
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 100
	}
	return round2(float64(part) / float64(whole) * 100)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
