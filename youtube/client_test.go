package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ytpipe/auth"
	"ytpipe/ratelimit"
)

// testClient returns a client pointed at the given handler with a wide-open
// rate gate so tests don't sleep.
func testClient(t *testing.T, keys []string, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(auth.NewKeyRotator(keys), ratelimit.NewGate(60000), 5*time.Second)
	c.BaseURL = srv.URL
	return c, srv
}

const channelBody = `{
	"items": [{
		"id": "UCabcdefghijklmnopqrstuv",
		"snippet": {
			"title": "Test Channel",
			"description": "A channel",
			"publishedAt": "2020-01-15T10:00:00Z",
			"country": "US",
			"customUrl": "@testchannel",
			"thumbnails": {"high": {"url": "https://example.com/t.jpg"}}
		},
		"statistics": {
			"viewCount": "123456",
			"subscriberCount": "789",
			"videoCount": "42"
		}
	}]
}`

func TestGetChannel(t *testing.T) {
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("part"); got != "snippet,statistics" {
			t.Errorf("part = %q", got)
		}
		w.Write([]byte(channelBody))
	}))

	ch, err := c.GetChannel(context.Background(), "UCabcdefghijklmnopqrstuv")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if ch.Title != "Test Channel" {
		t.Errorf("Title = %q", ch.Title)
	}
	if ch.ViewCount != 123456 || ch.SubscriberCount != 789 || ch.VideoCount != 42 {
		t.Errorf("counters = %d/%d/%d", ch.ViewCount, ch.SubscriberCount, ch.VideoCount)
	}
	if ch.PublishedAt != "2020-01-15T10:00:00Z" {
		t.Errorf("PublishedAt = %q", ch.PublishedAt)
	}
}

func TestGetChannelMissingStats(t *testing.T) {
	body := `{"items":[{"id":"UCabcdefghijklmnopqrstuv","snippet":{"title":"x","publishedAt":"2020-01-01T00:00:00Z"},"statistics":{"viewCount":"not-a-number"}}]}`
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))

	ch, err := c.GetChannel(context.Background(), "UCabcdefghijklmnopqrstuv")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	// Absent and malformed counters both default to 0.
	if ch.ViewCount != 0 || ch.SubscriberCount != 0 {
		t.Errorf("counters = %d/%d, want 0/0", ch.ViewCount, ch.SubscriberCount)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))

	_, err := c.GetChannel(context.Background(), "UCmissing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCallQuotaExceeded(t *testing.T) {
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.GetChannel(context.Background(), "UCx")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v, want *APIError with 403", err)
	}
}

func TestCallRotatesKeys(t *testing.T) {
	var gotKeys []string
	c, _ := testClient(t, []string{"k1", "k2"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.URL.Query().Get("key"))
		w.Write([]byte(channelBody))
	}))

	for i := 0; i < 3; i++ {
		if _, err := c.GetChannel(context.Background(), "UCx"); err != nil {
			t.Fatalf("GetChannel %d failed: %v", i, err)
		}
	}

	want := []string{"k1", "k2", "k1"}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Errorf("request %d used key %q, want %q", i, gotKeys[i], want[i])
		}
	}
}

func TestCallEmptyKeyPool(t *testing.T) {
	c, _ := testClient(t, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server without a key")
	}))

	_, err := c.GetChannel(context.Background(), "UCx")
	if !errors.Is(err, auth.ErrNoKeys) {
		t.Fatalf("err = %v, want auth.ErrNoKeys", err)
	}
}

func TestSearchChannelVideosClampsMaxResults(t *testing.T) {
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "50" {
			t.Errorf("maxResults = %q, want clamped to 50", got)
		}
		if got := r.URL.Query().Get("order"); got != "date" {
			t.Errorf("order = %q", got)
		}
		w.Write([]byte(`{"items":[{"id":{"videoId":"abcdefghijk"},"snippet":{"channelId":"UCx","title":"v","publishedAt":"2024-01-01T00:00:00Z"}}]}`))
	}))

	videos, err := c.SearchChannelVideos(context.Background(), "UCx", 500)
	if err != nil {
		t.Fatalf("SearchChannelVideos failed: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "abcdefghijk" {
		t.Fatalf("videos = %+v", videos)
	}
}

func TestListVideoStats(t *testing.T) {
	body := `{"items":[{
		"id": "abcdefghijk",
		"snippet": {"channelId":"UCx","title":"v","publishedAt":"2024-01-01T00:00:00Z","categoryId":"22","tags":["go","etl"]},
		"contentDetails": {"duration":"PT1H30M15S"},
		"statistics": {"viewCount":"50000","likeCount":"2500","commentCount":"300","favoriteCount":"0"}
	}]}`
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "abcdefghijk" {
			t.Errorf("id = %q", got)
		}
		w.Write([]byte(body))
	}))

	stats, err := c.ListVideoStats(context.Background(), []string{"abcdefghijk"})
	if err != nil {
		t.Fatalf("ListVideoStats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d stats", len(stats))
	}
	s := stats[0]
	if s.ViewCount != 50000 || s.LikeCount != 2500 || s.CommentCount != 300 {
		t.Errorf("counters = %d/%d/%d", s.ViewCount, s.LikeCount, s.CommentCount)
	}
	if s.Duration != "PT1H30M15S" || len(s.Tags) != 2 {
		t.Errorf("duration = %q, tags = %v", s.Duration, s.Tags)
	}
}

func TestListVideoStatsRejectsOversizeBatch(t *testing.T) {
	c, _ := testClient(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	ids := make([]string, 51)
	for i := range ids {
		ids[i] = "abcdefghijk"
	}
	if _, err := c.ListVideoStats(context.Background(), ids); err == nil {
		t.Fatal("expected error for batch above the 50-id limit")
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"123", 123},
		{"garbage", 0},
		{"-5", -5},
	}
	for _, tc := range cases {
		if got := parseCount(tc.in); got != tc.want {
			t.Errorf("parseCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
