// Package pipeline orchestrates one extract-transform-load pass.
//
// A run moves through fixed stages: extract from the Data API, validate into
// warehouse shapes, enrich with derived metrics, score collection quality,
// then load everything in a single transaction. Per-item problems are
// absorbed inside their stage; only configuration errors, context
// cancellation and load failures abort a run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ytpipe/auth"
	"ytpipe/config"
	"ytpipe/model"
	"ytpipe/monitor"
	"ytpipe/ratelimit"
	"ytpipe/storage"
	"ytpipe/transform"
	"ytpipe/youtube"
)

// Pipeline wires the run stages together. Build one with New and reuse it
// across runs.
type Pipeline struct {
	extractor *youtube.Extractor
	enricher  *transform.Enricher
	warehouse *storage.Warehouse
	monitor   *monitor.Monitor

	channelIDs    []string
	calendarStart time.Time

	now func() time.Time
}

// RunReport summarizes one completed run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	ChannelsExtracted int
	VideosExtracted   int
	StatsExtracted    int
	// Skipped lists extraction failures absorbed without aborting.
	Skipped []model.SkippedItem
	// Quarantined lists records rejected by validation.
	Quarantined []transform.Quarantined

	Quality transform.QualityReport
	Loaded  *storage.LoadResult
}

// Option adjusts pipeline construction.
type Option func(*Pipeline, *youtube.Client)

// WithAPIBaseURL redirects Data API calls, for test servers.
func WithAPIBaseURL(baseURL string) Option {
	return func(_ *Pipeline, c *youtube.Client) { c.BaseURL = baseURL }
}

// WithClock overrides the pipeline and enricher clocks, for deterministic
// tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline, _ *youtube.Client) {
		p.now = now
		p.enricher = transform.NewEnricherAt(now)
	}
}

// New builds a pipeline from configuration. API keys come from the
// environment when set, falling back to the config file list.
func New(cfg *config.Config, warehouse *storage.Warehouse, mon *monitor.Monitor, opts ...Option) (*Pipeline, error) {
	keys := auth.KeysFromEnv(cfg.APIKeys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("pipeline: %w", auth.ErrNoKeys)
	}

	gate := ratelimit.NewGate(cfg.RequestsPerMinute)
	client := youtube.NewClient(auth.NewKeyRotator(keys), gate, 30*time.Second)
	extractor := youtube.NewExtractor(client)
	if cfg.MaxVideosPerChannel > 0 {
		extractor.MaxVideosPerChannel = cfg.MaxVideosPerChannel
	}

	p := &Pipeline{
		extractor:     extractor,
		enricher:      transform.NewEnricher(),
		warehouse:     warehouse,
		monitor:       mon,
		channelIDs:    cfg.ActiveChannelIDs(),
		calendarStart: cfg.CalendarStartDate(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p, client)
	}
	return p, nil
}

// Run executes one full pass over the given channels. An empty slice falls
// back to the configured active channels.
func (p *Pipeline) Run(ctx context.Context, channelIDs []string) (*RunReport, error) {
	if len(channelIDs) == 0 {
		channelIDs = p.channelIDs
	}

	runID := uuid.NewString()
	start := p.now()
	log.Printf("pipeline: run %s started for %d channels", runID, len(channelIDs))

	report, err := p.run(ctx, runID, channelIDs)
	duration := p.now().Sub(start)
	if err != nil {
		p.monitor.RecordFailure(runID, duration, err)
		log.Printf("pipeline: run %s failed after %s: %v", runID, duration.Round(time.Millisecond), err)
		return nil, err
	}

	report.RunID = runID
	report.StartedAt = start
	report.Duration = duration
	p.monitor.RecordSuccess(runID, duration)
	log.Printf("pipeline: run %s finished in %s: %d rows loaded, %d skipped, %d quarantined, quality %q",
		runID, duration.Round(time.Millisecond), report.Loaded.Total(),
		len(report.Skipped), len(report.Quarantined), report.Quality.Verdict)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, channelIDs []string) (*RunReport, error) {
	if err := p.warehouse.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("pipeline: schema: %w", err)
	}

	// Extract. Per-item failures are already absorbed into bundle.Skipped;
	// an error here means the whole stage was unable to proceed.
	bundle, err := p.extractor.FetchAll(ctx, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}
	for _, s := range bundle.Skipped {
		monitor.ObserveSkipped(s.Kind, 1)
	}

	now := p.now().UTC()

	// Validate. Rejected records are quarantined, never fatal.
	channelBatch := transform.ValidateChannels(bundle.Channels, now)
	videoBatch := transform.ValidateVideos(bundle.Stats, now)
	quarantined := append(channelBatch.Quarantined, videoBatch.Quarantined...)
	monitor.ObserveQuarantined("channel", len(channelBatch.Quarantined))
	monitor.ObserveQuarantined("video", len(videoBatch.Quarantined))

	// Enrich. The enricher falls back to the unenriched record on panic, so
	// the slices always align with the validated input.
	enrichedChannels := p.enricher.EnrichChannels(channelBatch.Valid)
	enrichedVideos := p.enricher.EnrichVideos(videoBatch.Valid)

	channels := make([]model.Channel, len(enrichedChannels))
	for i, ec := range enrichedChannels {
		channels[i] = ec.Channel
	}
	videos := make([]model.Video, len(enrichedVideos))
	validVideoIDs := make(map[string]bool, len(enrichedVideos))
	for i, ev := range enrichedVideos {
		videos[i] = ev.Video
		validVideoIDs[ev.VideoID] = true
	}

	stats := p.buildSnapshots(bundle.Stats, validVideoIDs, now)

	// Quality gate is advisory: the verdict is reported and recorded but a
	// poor batch still loads.
	quality := transform.CheckQuality(channels, videos, stats, now)
	monitor.ObserveQualityScore(quality.OverallScore)
	if quality.Verdict != "Excellent" {
		log.Printf("pipeline: run %s quality %q (score %.1f, %d issues)",
			runID, quality.Verdict, quality.OverallScore, quality.TotalIssues)
	}

	set := &storage.LoadSet{
		Dates:    storage.BuildDateRows(p.calendarStart, now),
		Channels: channels,
		Videos:   videos,
		Stats:    stats,
	}
	loaded, err := p.warehouse.Load(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load: %w", err)
	}
	monitor.ObserveRowsLoaded("dim_dates", loaded.Dates)
	monitor.ObserveRowsLoaded("dim_channels", loaded.Channels)
	monitor.ObserveRowsLoaded("dim_videos", loaded.Videos)
	monitor.ObserveRowsLoaded("fact_video_stats", loaded.Stats)
	monitor.ObserveRowsLoaded("fact_comments", loaded.Comments)

	return &RunReport{
		ChannelsExtracted: len(bundle.Channels),
		VideosExtracted:   len(bundle.Videos),
		StatsExtracted:    len(bundle.Stats),
		Skipped:           bundle.Skipped,
		Quarantined:       quarantined,
		Quality:           quality,
		Loaded:            loaded,
	}, nil
}

// buildSnapshots keys every extracted counter set to today's date_id, so a
// same-day re-run overwrites the existing snapshot instead of duplicating it.
// Stats for videos that failed validation are dropped with the video.
func (p *Pipeline) buildSnapshots(raws []model.RawVideoStats, valid map[string]bool, now time.Time) []model.StatSnapshot {
	dateID := model.DateID(now)
	var snapshots []model.StatSnapshot
	for _, raw := range raws {
		if !valid[raw.VideoID] {
			continue
		}
		snapshots = append(snapshots, model.StatSnapshot{
			VideoID:       raw.VideoID,
			DateID:        dateID,
			ViewCount:     raw.ViewCount,
			LikeCount:     raw.LikeCount,
			CommentCount:  raw.CommentCount,
			FavoriteCount: raw.FavoriteCount,
			UpdatedAt:     now,
		})
	}
	return snapshots
}
