// Package transform contains the validate, enrich and quality-check stages
// between extraction and load.
package transform

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"ytpipe/model"
)

// Upstream identifier grammars: channel ids are a fixed "UC" prefix plus 22
// token characters, video ids are 11 token characters.
var (
	channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)
	videoIDPattern   = regexp.MustCompile(`^[\w-]{11}$`)
	durationPattern  = regexp.MustCompile(`^PT(\d+H)?(\d+M)?(\d+S)?$`)
)

// Field length caps applied before load.
const (
	maxChannelDescription = 1000
	maxVideoTitle         = 500
	maxVideoDescription   = 2000
)

// Report collects the findings for one record. Errors make the record
// invalid; warnings note repairs (such as a negative counter reset to zero)
// that the record survives.
type Report struct {
	Warnings []string
	Errors   []string
}

// Valid reports whether the record passed validation.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Quarantined is a record rejected by validation, retained with its error
// descriptions instead of being silently dropped.
type Quarantined struct {
	// Kind is the record kind ("channel", "video").
	Kind string
	// ID is the record's upstream identifier, possibly empty or malformed.
	ID string
	// Errors describes why the record was rejected.
	Errors []string
}

// ChannelBatch separates validated channels from quarantined ones.
type ChannelBatch struct {
	Valid       []model.Channel
	Quarantined []Quarantined
}

// VideoBatch separates validated videos from quarantined ones.
type VideoBatch struct {
	Valid       []model.Video
	Quarantined []Quarantined
}

// ValidateChannel checks one raw channel and maps it to a warehouse record.
// now stamps created_date and last_updated; the loader preserves the original
// created_date on upsert.
func ValidateChannel(raw model.RawChannel, now time.Time) (model.Channel, Report) {
	var report Report

	if raw.ID == "" {
		report.errorf("missing required field: id")
	} else if !channelIDPattern.MatchString(raw.ID) {
		report.errorf("invalid channel id format: %s", raw.ID)
	}
	if strings.TrimSpace(raw.Title) == "" {
		report.errorf("missing required field: title")
	}

	publishedAt, ok := parseTimestamp(raw.PublishedAt)
	if raw.PublishedAt == "" {
		report.errorf("missing required field: published_at")
	} else if !ok {
		report.errorf("invalid date format: %s", raw.PublishedAt)
	}

	ch := model.Channel{
		ChannelID:       raw.ID,
		Name:            cleanText(raw.Title),
		Description:     truncate(cleanText(raw.Description), maxChannelDescription),
		PublishedAt:     publishedAt,
		Country:         raw.Country,
		ViewCount:       nonNegative(&report, "view_count", raw.ViewCount),
		SubscriberCount: nonNegative(&report, "subscriber_count", raw.SubscriberCount),
		VideoCount:      nonNegative(&report, "video_count", raw.VideoCount),
		CustomURL:       raw.CustomURL,
		Thumbnails:      normalizeThumbnails(raw.Thumbnails),
		CreatedDate:     now,
		LastUpdated:     now,
	}
	return ch, report
}

// ValidateVideo checks one raw video-with-statistics record and maps it to a
// warehouse record. The engagement rate is filled in by the enricher.
func ValidateVideo(raw model.RawVideoStats, now time.Time) (model.Video, Report) {
	var report Report

	if raw.VideoID == "" {
		report.errorf("missing required field: id")
	} else if !videoIDPattern.MatchString(raw.VideoID) {
		report.errorf("invalid video id format: %s", raw.VideoID)
	}
	if strings.TrimSpace(raw.Title) == "" {
		report.errorf("missing required field: title")
	}
	if raw.ChannelID == "" {
		report.errorf("missing required field: channel_id")
	}

	publishedAt, ok := parseTimestamp(raw.PublishedAt)
	if raw.PublishedAt == "" {
		report.errorf("missing required field: published_at")
	} else if !ok {
		report.errorf("invalid date format: %s", raw.PublishedAt)
	}

	if raw.Duration != "" && !durationPattern.MatchString(raw.Duration) {
		report.errorf("invalid duration format: %s", raw.Duration)
	}

	v := model.Video{
		VideoID:       raw.VideoID,
		ChannelID:     raw.ChannelID,
		Title:         truncate(cleanText(raw.Title), maxVideoTitle),
		Description:   truncate(cleanText(raw.Description), maxVideoDescription),
		PublishedAt:   publishedAt,
		Duration:      raw.Duration,
		CategoryID:    raw.CategoryID,
		Tags:          raw.Tags,
		ViewCount:     nonNegative(&report, "view_count", raw.ViewCount),
		LikeCount:     nonNegative(&report, "like_count", raw.LikeCount),
		CommentCount:  nonNegative(&report, "comment_count", raw.CommentCount),
		FavoriteCount: nonNegative(&report, "favorite_count", raw.FavoriteCount),
		CreatedDate:   now,
		LastUpdated:   now,
	}
	return v, report
}

// ValidateChannels validates a batch, quarantining invalid records so the run
// continues with the remainder.
func ValidateChannels(raws []model.RawChannel, now time.Time) ChannelBatch {
	var batch ChannelBatch
	for _, raw := range raws {
		ch, report := ValidateChannel(raw, now)
		if !report.Valid() {
			log.Printf("transform: quarantined channel %q: %v", raw.ID, report.Errors)
			batch.Quarantined = append(batch.Quarantined, Quarantined{Kind: "channel", ID: raw.ID, Errors: report.Errors})
			continue
		}
		batch.Valid = append(batch.Valid, ch)
	}
	return batch
}

// ValidateVideos validates a batch of video statistics records.
func ValidateVideos(raws []model.RawVideoStats, now time.Time) VideoBatch {
	var batch VideoBatch
	for _, raw := range raws {
		v, report := ValidateVideo(raw, now)
		if !report.Valid() {
			log.Printf("transform: quarantined video %q: %v", raw.VideoID, report.Errors)
			batch.Quarantined = append(batch.Quarantined, Quarantined{Kind: "video", ID: raw.VideoID, Errors: report.Errors})
			continue
		}
		batch.Valid = append(batch.Valid, v)
	}
	return batch
}

// nonNegative coerces a counter to a non-negative value, resetting
// out-of-range values to zero with a warning rather than rejecting the record.
func nonNegative(report *Report, field string, value int64) int64 {
	if value < 0 {
		report.warnf("negative %s %d reset to 0", field, value)
		return 0
	}
	return value
}

// parseTimestamp parses an upstream RFC 3339 timestamp.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// cleanText collapses whitespace runs and strips null bytes.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps a string at n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// normalizeThumbnails guarantees valid JSON for the opaque thumbnail blob.
func normalizeThumbnails(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage("{}")
	}
	return raw
}
