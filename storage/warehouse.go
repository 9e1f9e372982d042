// Package storage persists pipeline output into the dimensional warehouse.
//
// The warehouse speaks two engines through sqlx: PostgreSQL (pgx stdlib
// driver) for production and SQLite (modernc, pure Go) for local runs and
// tests. All statements are written with ? placeholders and rebound per
// driver, and all loads go through a single transaction so a failed run
// leaves no partial rows behind.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"ytpipe/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("storage: not found")

// ErrUnsupportedDriver is returned by Open for drivers other than pgx and
// sqlite.
var ErrUnsupportedDriver = errors.New("storage: unsupported driver")

// StorageError wraps a database failure with the operation and entity that
// produced it.
type StorageError struct {
	// Op is the failed operation ("load", "create", "query").
	Op string
	// Entity is the table or record kind involved.
	Entity string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func init() {
	// modernc registers as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Warehouse is a handle on the dimensional store.
type Warehouse struct {
	db *sqlx.DB
}

// Open connects to the warehouse. driver must be "pgx" or "sqlite".
func Open(driver, dsn string) (*Warehouse, error) {
	if driver != "pgx" && driver != "sqlite" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, &StorageError{Op: "connect", Entity: driver, Err: err}
	}
	if driver == "sqlite" {
		// modernc serializes writes per connection; a single connection
		// avoids table-lock errors under concurrent use.
		db.SetMaxOpenConns(1)
	}
	return &Warehouse{db: db}, nil
}

// NewWarehouse wraps an already-open database handle.
func NewWarehouse(db *sqlx.DB) *Warehouse { return &Warehouse{db: db} }

// Close releases the underlying connection pool.
func (w *Warehouse) Close() error { return w.db.Close() }

// Ping verifies the connection is alive.
func (w *Warehouse) Ping(ctx context.Context) error { return w.db.PingContext(ctx) }

// LoadSet is everything one pipeline run wants persisted. Load writes it in
// dependency order inside a single transaction.
type LoadSet struct {
	Dates    []model.DateRow
	Channels []model.Channel
	Videos   []model.Video
	Stats    []model.StatSnapshot
	Comments []model.Comment
}

// LoadResult counts the rows written per table.
type LoadResult struct {
	Dates    int
	Channels int
	Videos   int
	Stats    int
	Comments int
}

// Total returns the number of rows written across all tables.
func (r *LoadResult) Total() int {
	return r.Dates + r.Channels + r.Videos + r.Stats + r.Comments
}

const upsertDateQuery = `
	INSERT INTO dim_dates
		(date_id, full_date, day_name, month_name, year, quarter, week_number, is_weekend)
	VALUES
		(:date_id, :full_date, :day_name, :month_name, :year, :quarter, :week_number, :is_weekend)
	ON CONFLICT (date_id) DO NOTHING`

const upsertChannelQuery = `
	INSERT INTO dim_channels
		(channel_id, channel_name, description, published_at, country,
		 view_count, subscriber_count, video_count, custom_url, thumbnails,
		 created_date, last_updated)
	VALUES
		(:channel_id, :channel_name, :description, :published_at, :country,
		 :view_count, :subscriber_count, :video_count, :custom_url, :thumbnails,
		 :created_date, :last_updated)
	ON CONFLICT (channel_id) DO UPDATE SET
		channel_name = excluded.channel_name,
		description = excluded.description,
		published_at = excluded.published_at,
		country = excluded.country,
		view_count = excluded.view_count,
		subscriber_count = excluded.subscriber_count,
		video_count = excluded.video_count,
		custom_url = excluded.custom_url,
		thumbnails = excluded.thumbnails,
		last_updated = excluded.last_updated`

const upsertVideoQuery = `
	INSERT INTO dim_videos
		(video_id, channel_id, title, description, published_at, duration,
		 category_id, tags, view_count, like_count, comment_count,
		 favorite_count, engagement_rate, created_date, last_updated)
	VALUES
		(:video_id, :channel_id, :title, :description, :published_at, :duration,
		 :category_id, :tags, :view_count, :like_count, :comment_count,
		 :favorite_count, :engagement_rate, :created_date, :last_updated)
	ON CONFLICT (video_id) DO UPDATE SET
		channel_id = excluded.channel_id,
		title = excluded.title,
		description = excluded.description,
		published_at = excluded.published_at,
		duration = excluded.duration,
		category_id = excluded.category_id,
		tags = excluded.tags,
		view_count = excluded.view_count,
		like_count = excluded.like_count,
		comment_count = excluded.comment_count,
		favorite_count = excluded.favorite_count,
		engagement_rate = excluded.engagement_rate,
		last_updated = excluded.last_updated`

const upsertStatQuery = `
	INSERT INTO fact_video_stats
		(video_id, date_id, view_count, like_count, comment_count,
		 favorite_count, updated_at)
	VALUES
		(:video_id, :date_id, :view_count, :like_count, :comment_count,
		 :favorite_count, :updated_at)
	ON CONFLICT (video_id, date_id) DO UPDATE SET
		view_count = excluded.view_count,
		like_count = excluded.like_count,
		comment_count = excluded.comment_count,
		favorite_count = excluded.favorite_count,
		updated_at = excluded.updated_at`

const upsertCommentQuery = `
	INSERT INTO fact_comments
		(comment_id, video_id, author, comment_text, likes_count,
		 published_at, sentiment_score, updated_at)
	VALUES
		(:comment_id, :video_id, :author, :comment_text, :likes_count,
		 :published_at, :sentiment_score, :updated_at)
	ON CONFLICT (comment_id) DO UPDATE SET
		author = excluded.author,
		comment_text = excluded.comment_text,
		likes_count = excluded.likes_count,
		sentiment_score = excluded.sentiment_score,
		updated_at = excluded.updated_at`

// videoRow is the persisted shape of a Video: tags travel as a JSON string.
type videoRow struct {
	model.Video
	Tags string `db:"tags"`
}

// Load writes the whole set in one transaction, in dependency order: dates
// and channels first, then videos, then facts. Re-loading the same set is a
// no-op for dates and an overwrite for everything else; created_date survives
// updates.
func (w *Warehouse) Load(ctx context.Context, set *LoadSet) (*LoadResult, error) {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &StorageError{Op: "begin", Entity: "load", Err: err}
	}
	defer tx.Rollback()

	result := &LoadResult{}

	for _, d := range set.Dates {
		if _, err := tx.NamedExecContext(ctx, upsertDateQuery, d); err != nil {
			return nil, &StorageError{Op: "load", Entity: "dim_dates", Err: err}
		}
		result.Dates++
	}
	for _, c := range set.Channels {
		if _, err := tx.NamedExecContext(ctx, upsertChannelQuery, c); err != nil {
			return nil, &StorageError{Op: "load", Entity: "dim_channels", Err: err}
		}
		result.Channels++
	}
	for _, v := range set.Videos {
		row, err := newVideoRow(v)
		if err != nil {
			return nil, &StorageError{Op: "load", Entity: "dim_videos", Err: err}
		}
		if _, err := tx.NamedExecContext(ctx, upsertVideoQuery, row); err != nil {
			return nil, &StorageError{Op: "load", Entity: "dim_videos", Err: err}
		}
		result.Videos++
	}
	for _, s := range set.Stats {
		if _, err := tx.NamedExecContext(ctx, upsertStatQuery, s); err != nil {
			return nil, &StorageError{Op: "load", Entity: "fact_video_stats", Err: err}
		}
		result.Stats++
	}
	for _, c := range set.Comments {
		if _, err := tx.NamedExecContext(ctx, upsertCommentQuery, c); err != nil {
			return nil, &StorageError{Op: "load", Entity: "fact_comments", Err: err}
		}
		result.Comments++
	}

	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Op: "commit", Entity: "load", Err: err}
	}
	log.Printf("storage: loaded %d rows (%d dates, %d channels, %d videos, %d stats, %d comments)",
		result.Total(), result.Dates, result.Channels, result.Videos, result.Stats, result.Comments)
	return result, nil
}

func newVideoRow(v model.Video) (videoRow, error) {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return videoRow{}, err
	}
	return videoRow{Video: v, Tags: string(encoded)}, nil
}

// Query runs an ad-hoc read and returns the rows as generic maps. On failure
// it logs and returns an empty result instead of propagating the error, so a
// broken report query cannot take down a caller.
func (w *Warehouse) Query(ctx context.Context, query string, args ...any) []map[string]any {
	rows, err := w.db.QueryxContext(ctx, w.db.Rebind(query), args...)
	if err != nil {
		log.Printf("storage: query failed: %v", err)
		return []map[string]any{}
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			log.Printf("storage: query scan failed: %v", err)
			return []map[string]any{}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		log.Printf("storage: query failed: %v", err)
		return []map[string]any{}
	}
	return results
}

// WarehouseStats summarizes warehouse contents.
type WarehouseStats struct {
	// Counts maps each table to its row count.
	Counts map[string]int64 `json:"counts"`
	// LatestStatUpdate is the newest fact snapshot write; zero when the
	// fact table is empty.
	LatestStatUpdate time.Time `json:"latest_stat_update"`
}

// Stats reports per-table row counts and the newest snapshot time.
func (w *Warehouse) Stats(ctx context.Context) (*WarehouseStats, error) {
	counts, err := w.TableCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats := &WarehouseStats{Counts: counts}
	ts, err := w.LatestStatUpdate(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	stats.LatestStatUpdate = ts
	return stats, nil
}

// TableCounts reports the current row count of every warehouse table.
func (w *Warehouse) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(tableDefinitions))
	for _, table := range tableDefinitions {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table.name)
		if err := w.db.GetContext(ctx, &n, query); err != nil {
			return nil, &StorageError{Op: "count", Entity: table.name, Err: err}
		}
		counts[table.name] = n
	}
	return counts, nil
}

// LatestStatUpdate returns the most recent fact_video_stats write time, or
// ErrNotFound when no snapshot exists yet.
func (w *Warehouse) LatestStatUpdate(ctx context.Context) (time.Time, error) {
	var ts time.Time
	query := "SELECT updated_at FROM fact_video_stats ORDER BY updated_at DESC LIMIT 1"
	err := w.db.GetContext(ctx, &ts, query)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, &StorageError{Op: "query", Entity: "fact_video_stats", Err: err}
	}
	return ts, nil
}
