// Package ytpipe extracts YouTube channel analytics into a dimensional
// warehouse.
//
// Each run walks a fixed stage order: extract channel, video and statistics
// records from the Data API, validate them into warehouse shapes, enrich them
// with derived metrics, score collection quality, and load everything in one
// transaction.
//
// # Overview
//
// The work is split across focused sub-packages:
//
//   - auth: API key pool with round-robin rotation
//   - ratelimit: shared token-bucket gate over outbound API calls
//   - youtube: Data API client and failure-tolerant extractor
//   - transform: validation, enrichment, and quality scoring
//   - storage: schema management and transactional warehouse loads
//   - monitor: run ledger, health status, freshness checks, Prometheus metrics
//   - pipeline: orchestration of one run
//   - config: file, environment, and default configuration
//   - retry: exponential backoff for whole-run retries
//
// # Quick Start
//
// Run one pass programmatically:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	w, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer w.Close()
//
//	p, err := pipeline.New(cfg, w, monitor.New())
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := p.Run(ctx, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("loaded %d rows, quality %s\n", report.Loaded.Total(), report.Quality.Verdict)
//
// # Configuration
//
// Settings load from multiple sources, highest priority first:
//
//  1. Environment variables
//  2. Config file (ytpipe.yaml or ~/.config/ytpipe/ytpipe.yaml)
//  3. Default values
//
// Environment variables:
//
//   - YOUTUBE_API_KEY or YOUTUBE_API_KEY_1..n: API key pool
//   - DATABASE_DRIVER: warehouse engine ("pgx" or "sqlite")
//   - DATABASE_URL: driver-specific connection string
//   - YTPIPE_REQUESTS_PER_MINUTE: outbound API call budget
//   - YTPIPE_MAX_VIDEOS_PER_CHANNEL: per-channel video cap
//   - YTPIPE_SCHEDULE: cron expression for unattended runs
//   - YTPIPE_HTTP_ADDR: health and metrics listen address
//
// # Error Handling
//
// Per-item failures never abort a run: unreachable channels are skipped,
// malformed records are quarantined, and enrichment falls back to the
// unenriched record. Sentinel errors distinguish the conditions that do
// abort:
//
//	if errors.Is(err, auth.ErrNoKeys) {
//		fmt.Println("no API keys configured")
//	}
//	if errors.Is(err, youtube.ErrQuotaExceeded) {
//		fmt.Println("daily quota exhausted")
//	}
//
// Storage failures carry their operation and table:
//
//	var serr *storage.StorageError
//	if errors.As(err, &serr) {
//		fmt.Printf("%s on %s failed: %v\n", serr.Op, serr.Entity, serr.Err)
//	}
package ytpipe
