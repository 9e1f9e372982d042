package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// tableDefinitions declares the warehouse relations. All DDL is idempotent
// and portable between PostgreSQL and SQLite.
var tableDefinitions = []struct {
	name string
	ddl  string
}{
	{"dim_channels", `
		CREATE TABLE IF NOT EXISTS dim_channels (
			channel_id VARCHAR(255) PRIMARY KEY,
			channel_name VARCHAR(255) NOT NULL,
			description TEXT,
			published_at TIMESTAMP,
			country VARCHAR(100),
			view_count BIGINT DEFAULT 0,
			subscriber_count BIGINT DEFAULT 0,
			video_count INTEGER DEFAULT 0,
			custom_url VARCHAR(255),
			thumbnails TEXT,
			created_date TIMESTAMP,
			last_updated TIMESTAMP
		)`},
	{"dim_videos", `
		CREATE TABLE IF NOT EXISTS dim_videos (
			video_id VARCHAR(255) PRIMARY KEY,
			channel_id VARCHAR(255) REFERENCES dim_channels(channel_id),
			title VARCHAR(500) NOT NULL,
			description TEXT,
			published_at TIMESTAMP,
			duration VARCHAR(50),
			category_id VARCHAR(50),
			tags TEXT,
			view_count BIGINT DEFAULT 0,
			like_count BIGINT DEFAULT 0,
			comment_count BIGINT DEFAULT 0,
			favorite_count BIGINT DEFAULT 0,
			engagement_rate DECIMAL(5,2),
			created_date TIMESTAMP,
			last_updated TIMESTAMP
		)`},
	{"dim_dates", `
		CREATE TABLE IF NOT EXISTS dim_dates (
			date_id INTEGER PRIMARY KEY,
			full_date DATE NOT NULL UNIQUE,
			day_name VARCHAR(10) NOT NULL,
			month_name VARCHAR(10) NOT NULL,
			year INTEGER NOT NULL,
			quarter INTEGER NOT NULL,
			week_number INTEGER NOT NULL,
			is_weekend BOOLEAN NOT NULL
		)`},
	{"fact_video_stats", `
		CREATE TABLE IF NOT EXISTS fact_video_stats (
			video_id VARCHAR(255) REFERENCES dim_videos(video_id),
			date_id INTEGER REFERENCES dim_dates(date_id),
			view_count BIGINT DEFAULT 0,
			like_count BIGINT DEFAULT 0,
			comment_count BIGINT DEFAULT 0,
			favorite_count BIGINT DEFAULT 0,
			updated_at TIMESTAMP,
			PRIMARY KEY (video_id, date_id)
		)`},
	{"fact_comments", `
		CREATE TABLE IF NOT EXISTS fact_comments (
			comment_id VARCHAR(255) PRIMARY KEY,
			video_id VARCHAR(255) REFERENCES dim_videos(video_id),
			author VARCHAR(255),
			comment_text TEXT,
			likes_count INTEGER DEFAULT 0,
			published_at TIMESTAMP,
			sentiment_score DECIMAL(3,2),
			updated_at TIMESTAMP
		)`},
}

// indexDefinitions declares the secondary indexes backing reporting queries.
var indexDefinitions = []string{
	"CREATE INDEX IF NOT EXISTS idx_videos_channel_id ON dim_videos(channel_id)",
	"CREATE INDEX IF NOT EXISTS idx_videos_published_at ON dim_videos(published_at)",
	"CREATE INDEX IF NOT EXISTS idx_videos_views ON dim_videos(view_count)",
	"CREATE INDEX IF NOT EXISTS idx_stats_video_id ON fact_video_stats(video_id)",
	"CREATE INDEX IF NOT EXISTS idx_stats_date_id ON fact_video_stats(date_id)",
	"CREATE INDEX IF NOT EXISTS idx_comments_video_id ON fact_comments(video_id)",
	"CREATE INDEX IF NOT EXISTS idx_channels_subscribers ON dim_channels(subscriber_count)",
}

// ColumnInfo describes one column found during schema introspection.
type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
}

// SchemaReport is the result of a pre-flight schema validation. It reports
// findings; enforcement is left to the caller.
type SchemaReport struct {
	Valid         bool
	MissingTables []string
	// Tables maps each existing required table to its column inventory.
	Tables map[string][]ColumnInfo
}

// EnsureSchema creates every relation and index if absent. Safe to call on
// every run.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	for _, table := range tableDefinitions {
		if _, err := w.db.ExecContext(ctx, table.ddl); err != nil {
			return &StorageError{Op: "create", Entity: table.name, Err: err}
		}
	}
	for _, idx := range indexDefinitions {
		if _, err := w.db.ExecContext(ctx, idx); err != nil {
			return &StorageError{Op: "index", Entity: "schema", Err: err}
		}
	}
	log.Printf("storage: schema ensured (%d tables, %d indexes)", len(tableDefinitions), len(indexDefinitions))
	return nil
}

// ValidateSchema introspects the warehouse and reports missing required
// tables plus the column inventory of each table found.
func (w *Warehouse) ValidateSchema(ctx context.Context) (*SchemaReport, error) {
	report := &SchemaReport{Tables: make(map[string][]ColumnInfo)}

	for _, table := range tableDefinitions {
		columns, err := w.tableColumns(ctx, table.name)
		if err != nil {
			return nil, &StorageError{Op: "introspect", Entity: table.name, Err: err}
		}
		if len(columns) == 0 {
			report.MissingTables = append(report.MissingTables, table.name)
			continue
		}
		report.Tables[table.name] = columns
	}

	sort.Strings(report.MissingTables)
	report.Valid = len(report.MissingTables) == 0
	return report, nil
}

// tableColumns returns the column inventory for one table, or an empty slice
// when the table does not exist.
func (w *Warehouse) tableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if w.db.DriverName() == "sqlite" {
		return w.sqliteColumns(ctx, table)
	}
	return w.postgresColumns(ctx, table)
}

func (w *Warehouse) postgresColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	query := w.db.Rebind(`
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = ?
		ORDER BY ordinal_position`)

	rows, err := w.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (w *Warehouse) sqliteColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := w.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			cid        int
			name       string
			dataType   string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, ColumnInfo{Name: name, DataType: dataType, Nullable: notNull == 0})
	}
	return columns, rows.Err()
}
