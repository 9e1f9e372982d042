package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ytpipe/auth"
	"ytpipe/ratelimit"
)

// fakeAPI serves a small fixed dataset and can be told to fail individual
// channels or whole endpoints.
type fakeAPI struct {
	failChannels map[string]bool
	failEndpoint map[string]bool
	videoCalls   int
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/")
		if f.failEndpoint[endpoint] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch endpoint {
		case "channels":
			id := r.URL.Query().Get("id")
			if f.failChannels[id] {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprintf(w, `{"items":[{"id":%q,"snippet":{"title":"chan","publishedAt":"2020-01-01T00:00:00Z"},"statistics":{"viewCount":"100","subscriberCount":"10","videoCount":"2"}}]}`, id)
		case "search":
			channelID := r.URL.Query().Get("channelId")
			fmt.Fprintf(w, `{"items":[
				{"id":{"videoId":"vid%s0000000"},"snippet":{"channelId":%q,"title":"v1","publishedAt":"2024-01-01T00:00:00Z"}},
				{"id":{"videoId":"vid%s1111111"},"snippet":{"channelId":%q,"title":"v2","publishedAt":"2024-01-02T00:00:00Z"}}
			]}`, channelID[len(channelID)-1:], channelID, channelID[len(channelID)-1:], channelID)
		case "videos":
			f.videoCalls++
			ids := strings.Split(r.URL.Query().Get("id"), ",")
			items := make([]string, 0, len(ids))
			for _, id := range ids {
				items = append(items, fmt.Sprintf(`{"id":%q,"snippet":{"channelId":"UCx","title":"v","publishedAt":"2024-01-01T00:00:00Z"},"contentDetails":{"duration":"PT5M"},"statistics":{"viewCount":"10","likeCount":"1","commentCount":"1","favoriteCount":"0"}}`, id))
			}
			fmt.Fprintf(w, `{"items":[%s]}`, strings.Join(items, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func testExtractor(t *testing.T, api *fakeAPI) *Extractor {
	t.Helper()
	c, _ := testClient(t, []string{"k1"}, api.handler())
	return NewExtractor(c)
}

func TestFetchChannelsSkipsFailedItems(t *testing.T) {
	api := &fakeAPI{failChannels: map[string]bool{"UCbad": true}}
	e := testExtractor(t, api)

	channels, skipped, err := e.FetchChannels(context.Background(), []string{"UCgood1", "UCbad", "UCgood2"})
	if err != nil {
		t.Fatalf("FetchChannels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Errorf("got %d channels, want 2", len(channels))
	}
	if len(skipped) != 1 || skipped[0].ID != "UCbad" || skipped[0].Kind != "channel" {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestFetchChannelsFailsFastWithoutKeys(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c := NewClient(auth.NewKeyRotator(nil), ratelimit.NewGate(60000), time.Second)
	c.BaseURL = srv.URL
	e := NewExtractor(c)

	_, _, err := e.FetchChannels(context.Background(), []string{"UCa"})
	if err == nil {
		t.Fatal("expected fatal error for empty key pool")
	}
}

func TestFetchVideoStatisticsChunks(t *testing.T) {
	api := &fakeAPI{}
	e := testExtractor(t, api)

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("vid%08d", i)
	}
	stats, skipped, err := e.FetchVideoStatistics(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchVideoStatistics failed: %v", err)
	}
	if api.videoCalls != 3 {
		t.Errorf("made %d videos.list calls, want 3 (50+50+20)", api.videoCalls)
	}
	if len(stats) != 120 {
		t.Errorf("got %d stats, want 120", len(stats))
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %+v, want none", skipped)
	}
}

func TestFetchVideoStatisticsSkipsFailedChunk(t *testing.T) {
	api := &fakeAPI{failEndpoint: map[string]bool{"videos": true}}
	e := testExtractor(t, api)

	stats, skipped, err := e.FetchVideoStatistics(context.Background(), []string{"vid00000000"})
	if err != nil {
		t.Fatalf("FetchVideoStatistics failed: %v", err)
	}
	if len(stats) != 0 || len(skipped) != 1 {
		t.Errorf("stats = %d, skipped = %d; want 0 and 1", len(stats), len(skipped))
	}
}

func TestFetchAll(t *testing.T) {
	api := &fakeAPI{}
	e := testExtractor(t, api)

	bundle, err := e.FetchAll(context.Background(), []string{"UCchannel1", "UCchannel2"})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(bundle.Channels) != 2 {
		t.Errorf("channels = %d, want 2", len(bundle.Channels))
	}
	if len(bundle.Videos) != 4 {
		t.Errorf("videos = %d, want 4", len(bundle.Videos))
	}
	if len(bundle.Stats) != 4 {
		t.Errorf("stats = %d, want 4", len(bundle.Stats))
	}
	if len(bundle.Skipped) != 0 {
		t.Errorf("skipped = %+v, want none", bundle.Skipped)
	}
}

func TestFetchAllAbsorbsListingFailure(t *testing.T) {
	api := &fakeAPI{failEndpoint: map[string]bool{"search": true}}
	e := testExtractor(t, api)

	bundle, err := e.FetchAll(context.Background(), []string{"UCchannel1"})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(bundle.Channels) != 1 {
		t.Errorf("channels = %d, want 1", len(bundle.Channels))
	}
	if len(bundle.Videos) != 0 || len(bundle.Stats) != 0 {
		t.Errorf("videos = %d, stats = %d; want 0", len(bundle.Videos), len(bundle.Stats))
	}
	if len(bundle.Skipped) != 1 || bundle.Skipped[0].Kind != "videos" {
		t.Errorf("skipped = %+v", bundle.Skipped)
	}
}
