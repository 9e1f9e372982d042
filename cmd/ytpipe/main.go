package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"ytpipe/auth"
	"ytpipe/config"
	"ytpipe/monitor"
	"ytpipe/pipeline"
	"ytpipe/retry"
	"ytpipe/storage"
	"ytpipe/youtube"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		cmdRun(args)
	case "serve":
		cmdServe(args)
	case "validate":
		cmdValidate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ytpipe - YouTube analytics warehouse pipeline

Usage:
  ytpipe run [flags]       Execute one pipeline pass and exit
  ytpipe serve [flags]     Run on a schedule with health and metrics endpoints
  ytpipe validate [flags]  Check warehouse schema and exit
  ytpipe help              Show this help message

Flags:
  -config path             Explicit config file (default: ytpipe.yaml lookup)
  -channels id,id          Channel ids overriding the configured list (run only)

Environment:
  YOUTUBE_API_KEY or YOUTUBE_API_KEY_1..n   API key pool
  DATABASE_DRIVER, DATABASE_URL             Warehouse engine and DSN
`)
}

func loadConfig(path string) *config.Config {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}
	return cfg
}

func openWarehouse(cfg *config.Config) *storage.Warehouse {
	w, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}
	return w
}

// retryableRunError reports whether a failed run is worth another attempt.
// Missing credentials, exhausted quota and canceled contexts are permanent.
func retryableRunError(err error) bool {
	if errors.Is(err, auth.ErrNoKeys) || errors.Is(err, youtube.ErrQuotaExceeded) {
		return false
	}
	return retry.IsRetryable(err)
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	channelList := fs.String("channels", "", "comma-separated channel ids")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	w := openWarehouse(cfg)
	defer w.Close()

	mon := monitor.New()
	p, err := pipeline.New(cfg, w, mon)
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}

	var channels []string
	if *channelList != "" {
		channels = strings.Split(*channelList, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, channels)
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}
	fmt.Printf("run %s: %d rows loaded, quality %s (%.1f)\n",
		report.RunID, report.Loaded.Total(), report.Quality.Verdict, report.Quality.OverallScore)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if cfg.Schedule == "" {
		log.Fatal("ytpipe: serve requires a schedule in config or YTPIPE_SCHEDULE")
	}

	w := openWarehouse(cfg)
	defer w.Close()

	mon := monitor.New()
	p, err := pipeline.New(cfg, w, mon)
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOnce := func() {
		err := retry.Do(ctx, retry.DefaultConfig(), retryableRunError, func(ctx context.Context) error {
			_, err := p.Run(ctx, nil)
			return err
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("ytpipe: scheduled run failed: %v", err)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, runOnce); err != nil {
		log.Fatalf("ytpipe: bad schedule %q: %v", cfg.Schedule, err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router(w, mon),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("ytpipe: listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ytpipe: http server: %v", err)
		}
	}()

	log.Printf("ytpipe: schedule %q active", cfg.Schedule)
	runOnce()
	c.Start()

	<-ctx.Done()
	log.Println("ytpipe: shutting down")
	c.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	w := openWarehouse(cfg)
	defer w.Close()

	report, err := w.ValidateSchema(context.Background())
	if err != nil {
		log.Fatalf("ytpipe: %v", err)
	}
	if !report.Valid {
		fmt.Printf("schema invalid, missing tables: %s\n", strings.Join(report.MissingTables, ", "))
		os.Exit(1)
	}
	fmt.Printf("schema valid, %d tables present\n", len(report.Tables))
}

func router(w *storage.Warehouse, mon *monitor.Monitor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		h := mon.Health()
		rw.Header().Set("Content-Type", "application/json")
		if h.Status == monitor.StatusUnhealthy {
			rw.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(rw).Encode(h)
	})

	r.Get("/freshness", func(rw http.ResponseWriter, req *http.Request) {
		f, err := mon.CheckFreshness(req.Context(), w)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(f)
	})

	r.Get("/stats", func(rw http.ResponseWriter, req *http.Request) {
		stats, err := w.Stats(req.Context())
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(stats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
