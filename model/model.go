// Package model defines the typed records exchanged between pipeline stages.
//
// Raw* types are the parsed-at-the-boundary shapes produced by the extractor:
// the loosely-typed upstream payload never travels past the youtube package,
// but dates and durations remain strings until validation. The remaining types
// are warehouse-shaped records carried through validate, enrich and load.
package model

import (
	"encoding/json"
	"time"
)

// RawChannel mirrors one item of a channels.list response after boundary
// parsing. Numeric statistics arrive as text on the wire and are already
// coerced to integers (0 on absence) by the extractor.
type RawChannel struct {
	// ID is the upstream channel identifier ("UC" + 22 characters).
	ID string
	// Title is the channel display name.
	Title string
	// Description is the channel description.
	Description string
	// PublishedAt is the raw RFC 3339 timestamp string from the snippet.
	PublishedAt string
	// Country is the ISO country code, if published.
	Country string
	// CustomURL is the channel's vanity URL, if any.
	CustomURL string
	// Thumbnails is the opaque thumbnail structure, kept verbatim.
	Thumbnails json.RawMessage
	// ViewCount is the cumulative channel view counter.
	ViewCount int64
	// SubscriberCount is the public subscriber counter.
	SubscriberCount int64
	// VideoCount is the number of public uploads.
	VideoCount int64
	// FetchedAt is when this record was extracted.
	FetchedAt time.Time
}

// RawVideo mirrors one search.list hit: snippet only, no statistics.
type RawVideo struct {
	// ID is the upstream video identifier (11 characters).
	ID string
	// ChannelID is the owning channel's identifier.
	ChannelID string
	// Title is the video title.
	Title string
	// Description is the (truncated) search snippet description.
	Description string
	// PublishedAt is the raw RFC 3339 timestamp string.
	PublishedAt string
	// FetchedAt is when this record was extracted.
	FetchedAt time.Time
}

// RawVideoStats mirrors one videos.list item: full snippet, statistics and
// content details for a video.
type RawVideoStats struct {
	VideoID     string
	ChannelID   string
	Title       string
	Description string
	PublishedAt string
	CategoryID  string
	Tags        []string
	// Duration is the ISO 8601 duration string ("PT1H30M15S").
	Duration      string
	ViewCount     int64
	LikeCount     int64
	CommentCount  int64
	FavoriteCount int64
	FetchedAt     time.Time
}

// SkippedItem records a per-item extraction failure that was absorbed rather
// than aborting the run.
type SkippedItem struct {
	// Kind is the item kind ("channel", "videos", "stats").
	Kind string
	// ID is the item or batch identifier that failed.
	ID string
	// Reason is the underlying error message.
	Reason string
}

// ExtractionBundle is the combined result of one extraction pass.
type ExtractionBundle struct {
	Channels []RawChannel
	Videos   []RawVideo
	Stats    []RawVideoStats
	// Skipped lists per-item failures absorbed during extraction.
	Skipped []SkippedItem
}

// Channel is a row of the dim_channels dimension table.
type Channel struct {
	ChannelID       string          `db:"channel_id"`
	Name            string          `db:"channel_name"`
	Description     string          `db:"description"`
	PublishedAt     time.Time       `db:"published_at"`
	Country         string          `db:"country"`
	ViewCount       int64           `db:"view_count"`
	SubscriberCount int64           `db:"subscriber_count"`
	VideoCount      int64           `db:"video_count"`
	CustomURL       string          `db:"custom_url"`
	Thumbnails      json.RawMessage `db:"thumbnails"`
	// CreatedDate is set once, on first insert, and never overwritten.
	CreatedDate time.Time `db:"created_date"`
	// LastUpdated is refreshed on every upsert.
	LastUpdated time.Time `db:"last_updated"`
}

// Video is a row of the dim_videos dimension table.
type Video struct {
	VideoID     string    `db:"video_id"`
	ChannelID   string    `db:"channel_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	PublishedAt time.Time `db:"published_at"`
	// Duration is the ISO 8601 duration string as delivered upstream.
	Duration   string `db:"duration"`
	CategoryID string `db:"category_id"`
	// Tags is stored JSON-encoded in the warehouse.
	Tags          []string `db:"-"`
	ViewCount     int64    `db:"view_count"`
	LikeCount     int64    `db:"like_count"`
	CommentCount  int64    `db:"comment_count"`
	FavoriteCount int64    `db:"favorite_count"`
	// EngagementRate is (likes+comments)/views*100, rounded to 2 decimals.
	EngagementRate float64   `db:"engagement_rate"`
	CreatedDate    time.Time `db:"created_date"`
	LastUpdated    time.Time `db:"last_updated"`
}

// StatSnapshot is a row of the fact_video_stats fact table. At most one
// snapshot exists per video per calendar day; same-day re-extraction
// overwrites the existing row.
type StatSnapshot struct {
	VideoID       string    `db:"video_id"`
	DateID        int       `db:"date_id"`
	ViewCount     int64     `db:"view_count"`
	LikeCount     int64     `db:"like_count"`
	CommentCount  int64     `db:"comment_count"`
	FavoriteCount int64     `db:"favorite_count"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Comment is a row of the fact_comments fact table.
type Comment struct {
	CommentID   string    `db:"comment_id"`
	VideoID     string    `db:"video_id"`
	Author      string    `db:"author"`
	Text        string    `db:"comment_text"`
	LikeCount   int64     `db:"likes_count"`
	PublishedAt time.Time `db:"published_at"`
	// SentimentScore is nullable; nil means not scored.
	SentimentScore *float64  `db:"sentiment_score"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// DateRow is a row of the dim_dates dimension table. The calendar is
// materialized once from a configured start date and only appended to.
type DateRow struct {
	// DateID is the YYYYMMDD integer encoding of FullDate.
	DateID    int       `db:"date_id"`
	FullDate  time.Time `db:"full_date"`
	DayName   string    `db:"day_name"`
	MonthName string    `db:"month_name"`
	Year      int       `db:"year"`
	Quarter   int       `db:"quarter"`
	// WeekNumber is the ISO 8601 week number.
	WeekNumber int  `db:"week_number"`
	IsWeekend  bool `db:"is_weekend"`
}

// ChannelInsights holds derived channel metrics. They inform quality checks
// and reporting but are not persisted to the dimension table.
type ChannelInsights struct {
	AvgViewsPerVideo    float64
	EngagementRatio     float64
	ChannelAgeDays      int
	VideosPerDay        float64
	ContentQualityScore float64
	GrowthTier          string
}

// VideoInsights holds derived video metrics. Only the engagement rate is
// copied onto the persisted Video record.
type VideoInsights struct {
	EngagementRate   float64
	LikeCommentRatio float64
	PerformanceScore float64
	ContentType      string
	DurationMinutes  float64
	TitleLength      int
	HasDescription   bool
	TagCount         int
}

// EnrichedChannel pairs a validated channel with its derived metrics.
type EnrichedChannel struct {
	Channel
	Insights ChannelInsights
}

// EnrichedVideo pairs a validated video with its derived metrics.
type EnrichedVideo struct {
	Video
	Insights VideoInsights
}

// DateID encodes a calendar day as its YYYYMMDD integer. The encoding is a
// bijection within one day regardless of the wall-clock time component.
func DateID(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
