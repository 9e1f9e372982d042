package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
requests_per_minute: 120
max_videos_per_channel: 25
channels:
  - id: UCabcdefghijklmnopqrstuv
    active: true
  - id: UCwxyz0123456789-_abcdef
    active: false
database:
  driver: pgx
  dsn: postgres://localhost/ytpipe
schedule: "0 */6 * * *"
calendar_start: "2023-01-01"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ytpipe.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.RequestsPerMinute != 120 {
		t.Errorf("RequestsPerMinute = %d, want 120", cfg.RequestsPerMinute)
	}
	if cfg.MaxVideosPerChannel != 25 {
		t.Errorf("MaxVideosPerChannel = %d, want 25", cfg.MaxVideosPerChannel)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("Database.Driver = %q, want pgx", cfg.Database.Driver)
	}
	if cfg.Schedule != "0 */6 * * *" {
		t.Errorf("Schedule = %q", cfg.Schedule)
	}
	// Unset fields keep their defaults.
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadFile succeeded for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("YTPIPE_REQUESTS_PER_MINUTE", "30")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", ":memory:")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.RequestsPerMinute)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != ":memory:" {
		t.Errorf("Database = %+v, want sqlite/:memory:", cfg.Database)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero rate", func(c *Config) { c.RequestsPerMinute = 0 }, "requests_per_minute"},
		{"negative max videos", func(c *Config) { c.MaxVideosPerChannel = -1 }, "max_videos_per_channel"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "dsn"},
		{"bad calendar start", func(c *Config) { c.CalendarStart = "01/02/2023" }, "calendar_start"},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: Validate passed", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestActiveChannelIDs(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	ids := cfg.ActiveChannelIDs()
	if len(ids) != 1 || ids[0] != "UCabcdefghijklmnopqrstuv" {
		t.Errorf("ActiveChannelIDs = %v", ids)
	}
}

func TestCalendarStartDate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CalendarStart = "2023-04-15"
	want := time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC)
	if got := cfg.CalendarStartDate(); !got.Equal(want) {
		t.Errorf("CalendarStartDate = %v, want %v", got, want)
	}

	cfg.CalendarStart = ""
	if got := cfg.CalendarStartDate(); got.Year() != 2020 {
		t.Errorf("fallback CalendarStartDate = %v", got)
	}
}
