// Package youtube implements extraction from the YouTube Data API v3.
//
// The client talks to the raw JSON API rather than a generated SDK: every
// request carries a freshly rotated key and passes through the shared rate
// gate, and the loosely-typed wire payload is mapped to model.Raw* records
// immediately after decoding so nothing downstream sees upstream shapes.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ytpipe/auth"
	"ytpipe/model"
	"ytpipe/ratelimit"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// maxIDsPerCall is the upstream hard limit on ids per videos.list call.
const maxIDsPerCall = 50

// Sentinel errors for common API conditions.
var (
	// ErrNotFound indicates the requested channel or video does not exist.
	ErrNotFound = errors.New("youtube: not found")
	// ErrQuotaExceeded indicates the API key's daily quota is exhausted.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
)

// APIError describes a non-200 response from the Data API.
type APIError struct {
	// Endpoint is the API endpoint that failed ("channels", "search", "videos").
	Endpoint string
	// StatusCode is the HTTP status code returned.
	StatusCode int
	// Status is the HTTP status line.
	Status string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube: %s returned %s", e.Endpoint, e.Status)
}

// Unwrap maps well-known status codes onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusTooManyRequests:
		return ErrQuotaExceeded
	}
	return nil
}

// Client is a rate-gated, key-rotating client for the YouTube Data API v3.
type Client struct {
	httpClient *http.Client
	keys       *auth.KeyRotator
	gate       *ratelimit.Gate

	// BaseURL is the API root; overridable for test servers.
	BaseURL string
}

// NewClient creates a client using the given key pool and rate gate.
func NewClient(keys *auth.KeyRotator, gate *ratelimit.Gate, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		keys:       keys,
		gate:       gate,
		BaseURL:    defaultBaseURL,
	}
}

// --- Wire shapes ---
//
// All numeric statistics arrive as JSON strings and default to 0 when absent
// or malformed.

type channelListResponse struct {
	Items []channelItem `json:"items"`
}

type channelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		PublishedAt string          `json:"publishedAt"`
		Country     string          `json:"country"`
		CustomURL   string          `json:"customUrl"`
		Thumbnails  json.RawMessage `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		ViewCount       string `json:"viewCount"`
		SubscriberCount string `json:"subscriberCount"`
		VideoCount      string `json:"videoCount"`
	} `json:"statistics"`
}

type searchListResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		ChannelID   string `json:"channelId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
}

type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		ChannelID   string   `json:"channelId"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		PublishedAt string   `json:"publishedAt"`
		CategoryID  string   `json:"categoryId"`
		Tags        []string `json:"tags"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount     string `json:"viewCount"`
		LikeCount     string `json:"likeCount"`
		CommentCount  string `json:"commentCount"`
		FavoriteCount string `json:"favoriteCount"`
	} `json:"statistics"`
}

// GetChannel fetches metadata and statistics for one channel id.
// It returns ErrNotFound when the API reports no such channel.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*model.RawChannel, error) {
	params := url.Values{
		"part": {"snippet,statistics"},
		"id":   {channelID},
	}

	var resp channelListResponse
	if err := c.call(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}

	item := resp.Items[0]
	raw := &model.RawChannel{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		PublishedAt:     item.Snippet.PublishedAt,
		Country:         item.Snippet.Country,
		CustomURL:       item.Snippet.CustomURL,
		Thumbnails:      item.Snippet.Thumbnails,
		ViewCount:       parseCount(item.Statistics.ViewCount),
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		VideoCount:      parseCount(item.Statistics.VideoCount),
		FetchedAt:       time.Now(),
	}
	return raw, nil
}

// SearchChannelVideos lists the channel's most recent videos, newest first.
// maxResults above the per-call ceiling of 50 is clamped, not paginated:
// channels with more than 50 recent uploads are truncated per run.
func (c *Client) SearchChannelVideos(ctx context.Context, channelID string, maxResults int) ([]model.RawVideo, error) {
	if maxResults <= 0 || maxResults > maxIDsPerCall {
		maxResults = maxIDsPerCall
	}
	params := url.Values{
		"part":       {"snippet"},
		"channelId":  {channelID},
		"maxResults": {strconv.Itoa(maxResults)},
		"order":      {"date"},
		"type":       {"video"},
	}

	var resp searchListResponse
	if err := c.call(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	videos := make([]model.RawVideo, 0, len(resp.Items))
	now := time.Now()
	for _, item := range resp.Items {
		videos = append(videos, model.RawVideo{
			ID:          item.ID.VideoID,
			ChannelID:   item.Snippet.ChannelID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
			FetchedAt:   now,
		})
	}
	return videos, nil
}

// ListVideoStats fetches snippet, statistics and content details for up to 50
// video ids in one call. Callers chunk larger batches.
func (c *Client) ListVideoStats(ctx context.Context, videoIDs []string) ([]model.RawVideoStats, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	if len(videoIDs) > maxIDsPerCall {
		return nil, fmt.Errorf("youtube: %d ids exceeds per-call limit of %d", len(videoIDs), maxIDsPerCall)
	}
	params := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {strings.Join(videoIDs, ",")},
	}

	var resp videoListResponse
	if err := c.call(ctx, "videos", params, &resp); err != nil {
		return nil, err
	}

	stats := make([]model.RawVideoStats, 0, len(resp.Items))
	now := time.Now()
	for _, item := range resp.Items {
		stats = append(stats, model.RawVideoStats{
			VideoID:       item.ID,
			ChannelID:     item.Snippet.ChannelID,
			Title:         item.Snippet.Title,
			Description:   item.Snippet.Description,
			PublishedAt:   item.Snippet.PublishedAt,
			CategoryID:    item.Snippet.CategoryID,
			Tags:          item.Snippet.Tags,
			Duration:      item.ContentDetails.Duration,
			ViewCount:     parseCount(item.Statistics.ViewCount),
			LikeCount:     parseCount(item.Statistics.LikeCount),
			CommentCount:  parseCount(item.Statistics.CommentCount),
			FavoriteCount: parseCount(item.Statistics.FavoriteCount),
			FetchedAt:     now,
		})
	}
	return stats, nil
}

// call acquires the rate gate and a rotated key, issues one GET against the
// endpoint and decodes the response into out.
func (c *Client) call(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.gate.Acquire(ctx); err != nil {
		return err
	}
	key, err := c.keys.Next()
	if err != nil {
		return err
	}
	params.Set("key", key)

	reqURL := fmt.Sprintf("%s/%s?%s", c.BaseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("youtube: build %s request: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("youtube: %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("youtube: decode %s response: %w", endpoint, err)
	}
	return nil
}

// parseCount parses a text numeric statistic, defaulting to 0 on absence or
// garbage.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
