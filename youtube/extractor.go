package youtube

import (
	"context"
	"errors"
	"log"

	"ytpipe/auth"
	"ytpipe/model"
)

// Extractor composes the three API calls into batch extraction with
// per-item failure tolerance: a single unreachable channel or failed stats
// chunk is logged, recorded as skipped and absorbed, never aborting the run.
// Only unrecoverable conditions (empty key pool, canceled context) fail fast.
type Extractor struct {
	client *Client

	// MaxVideosPerChannel bounds the single search.list page per channel
	// (clamped to the API's per-call ceiling of 50).
	MaxVideosPerChannel int
}

// NewExtractor creates an extractor over the given client.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client, MaxVideosPerChannel: maxIDsPerCall}
}

// FetchChannels looks up each channel id individually, skipping ids that
// fail. The returned skipped list records every absorbed failure.
func (e *Extractor) FetchChannels(ctx context.Context, channelIDs []string) ([]model.RawChannel, []model.SkippedItem, error) {
	var channels []model.RawChannel
	var skipped []model.SkippedItem

	for _, id := range channelIDs {
		ch, err := e.client.GetChannel(ctx, id)
		if err != nil {
			if fatal(ctx, err) {
				return nil, nil, err
			}
			log.Printf("youtube: skipping channel %s: %v", id, err)
			skipped = append(skipped, model.SkippedItem{Kind: "channel", ID: id, Reason: err.Error()})
			continue
		}
		channels = append(channels, *ch)
	}
	return channels, skipped, nil
}

// FetchChannelVideos lists recent videos for one channel, a single page
// ordered by publish date.
func (e *Extractor) FetchChannelVideos(ctx context.Context, channelID string) ([]model.RawVideo, error) {
	return e.client.SearchChannelVideos(ctx, channelID, e.MaxVideosPerChannel)
}

// FetchVideoStatistics fetches statistics for the given video ids, chunked by
// the 50-id call limit. A failed chunk is skipped; the other chunks proceed.
func (e *Extractor) FetchVideoStatistics(ctx context.Context, videoIDs []string) ([]model.RawVideoStats, []model.SkippedItem, error) {
	var stats []model.RawVideoStats
	var skipped []model.SkippedItem

	for start := 0; start < len(videoIDs); start += maxIDsPerCall {
		end := start + maxIDsPerCall
		if end > len(videoIDs) {
			end = len(videoIDs)
		}
		chunk := videoIDs[start:end]

		batch, err := e.client.ListVideoStats(ctx, chunk)
		if err != nil {
			if fatal(ctx, err) {
				return nil, nil, err
			}
			log.Printf("youtube: skipping stats chunk of %d videos: %v", len(chunk), err)
			skipped = append(skipped, model.SkippedItem{
				Kind:   "stats",
				ID:     chunk[0],
				Reason: err.Error(),
			})
			continue
		}
		stats = append(stats, batch...)
	}
	return stats, skipped, nil
}

// FetchAll runs the full extraction sequence: channels, then videos per
// fetched channel, then statistics for the union of fetched video ids.
func (e *Extractor) FetchAll(ctx context.Context, channelIDs []string) (*model.ExtractionBundle, error) {
	bundle := &model.ExtractionBundle{}

	channels, skipped, err := e.FetchChannels(ctx, channelIDs)
	if err != nil {
		return nil, err
	}
	bundle.Channels = channels
	bundle.Skipped = append(bundle.Skipped, skipped...)

	seen := make(map[string]bool)
	var videoIDs []string
	for _, ch := range channels {
		videos, err := e.FetchChannelVideos(ctx, ch.ID)
		if err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			log.Printf("youtube: skipping video listing for channel %s: %v", ch.ID, err)
			bundle.Skipped = append(bundle.Skipped, model.SkippedItem{Kind: "videos", ID: ch.ID, Reason: err.Error()})
			continue
		}
		bundle.Videos = append(bundle.Videos, videos...)
		for _, v := range videos {
			if v.ID != "" && !seen[v.ID] {
				seen[v.ID] = true
				videoIDs = append(videoIDs, v.ID)
			}
		}
	}

	stats, skipped, err := e.FetchVideoStatistics(ctx, videoIDs)
	if err != nil {
		return nil, err
	}
	bundle.Stats = stats
	bundle.Skipped = append(bundle.Skipped, skipped...)

	log.Printf("youtube: extracted %d channels, %d videos, %d stat records (%d skipped)",
		len(bundle.Channels), len(bundle.Videos), len(bundle.Stats), len(bundle.Skipped))
	return bundle, nil
}

// fatal reports whether an extraction error is unrecoverable for the whole
// run rather than a per-item condition.
func fatal(ctx context.Context, err error) bool {
	if errors.Is(err, auth.ErrNoKeys) {
		return true
	}
	return ctx.Err() != nil
}
