package transform

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ytpipe/model"
)

// Growth tier boundaries by subscriber count.
const (
	megaTier  = 1_000_000
	macroTier = 100_000
	midTier   = 10_000
	microTier = 1_000
)

// contentKeywords maps content buckets to trigger keywords, scanned in order;
// the first matching bucket wins.
var contentKeywords = []struct {
	kind     string
	keywords []string
}{
	{"tutorial", []string{"tutorial", "how to", "guide", "learn", "step by step"}},
	{"review", []string{"review", "unboxing", "test", "compared", "vs"}},
	{"entertainment", []string{"funny", "prank", "challenge", "comedy", "music"}},
	{"news", []string{"news", "update", "announcement", "breaking"}},
	{"educational", []string{"explained", "science", "history", "documentary"}},
	{"gaming", []string{"gameplay", "walkthrough", "gaming", "stream"}},
}

var durationParts = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Enricher derives secondary metrics from validated records. The clock is
// injected so age-dependent metrics are deterministic under test.
type Enricher struct {
	now func() time.Time
}

// NewEnricher creates an enricher using the wall clock.
func NewEnricher() *Enricher {
	return &Enricher{now: time.Now}
}

// NewEnricherAt creates an enricher with a fixed clock.
func NewEnricherAt(now func() time.Time) *Enricher {
	return &Enricher{now: now}
}

// EnrichChannel computes derived channel metrics. Every ratio is defined as 0
// when its denominator is 0, never a division error.
func (e *Enricher) EnrichChannel(ch model.Channel) model.EnrichedChannel {
	var ins model.ChannelInsights

	if ch.VideoCount > 0 {
		ins.AvgViewsPerVideo = round2(float64(ch.ViewCount) / float64(ch.VideoCount))
	}
	if ch.SubscriberCount > 0 {
		ins.EngagementRatio = round2(float64(ch.ViewCount) / float64(ch.SubscriberCount))
	}

	if !ch.PublishedAt.IsZero() {
		if days := int(e.now().Sub(ch.PublishedAt).Hours() / 24); days > 0 {
			ins.ChannelAgeDays = days
		}
	}
	if ins.ChannelAgeDays > 0 {
		ins.VideosPerDay = round2(float64(ch.VideoCount) / float64(ins.ChannelAgeDays))
	}

	ins.ContentQualityScore = e.contentQualityScore(ch, ins.ChannelAgeDays)
	ins.GrowthTier = growthTier(ch.SubscriberCount)

	return model.EnrichedChannel{Channel: ch, Insights: ins}
}

// EnrichVideo computes derived video metrics and copies the engagement rate
// onto the persisted record.
func (e *Enricher) EnrichVideo(v model.Video) model.EnrichedVideo {
	var ins model.VideoInsights

	if v.ViewCount > 0 {
		ins.EngagementRate = round2(float64(v.LikeCount+v.CommentCount) / float64(v.ViewCount) * 100)
	}
	if v.CommentCount > 0 {
		ins.LikeCommentRatio = round2(float64(v.LikeCount) / float64(v.CommentCount))
	}

	ins.PerformanceScore = performanceScore(v, ins.EngagementRate)
	ins.ContentType = classifyContent(v.Title, v.Description)
	ins.DurationMinutes = DurationMinutes(v.Duration)
	ins.TitleLength = len([]rune(v.Title))
	ins.HasDescription = strings.TrimSpace(v.Description) != ""
	ins.TagCount = len(v.Tags)

	v.EngagementRate = ins.EngagementRate
	return model.EnrichedVideo{Video: v, Insights: ins}
}

// EnrichChannels enriches a batch. Enrichment never fails the batch: a record
// that panics mid-derivation is kept unenriched.
func (e *Enricher) EnrichChannels(channels []model.Channel) []model.EnrichedChannel {
	enriched := make([]model.EnrichedChannel, 0, len(channels))
	for _, ch := range channels {
		enriched = append(enriched, e.enrichChannelSafe(ch))
	}
	return enriched
}

// EnrichVideos enriches a batch with the same never-fail contract.
func (e *Enricher) EnrichVideos(videos []model.Video) []model.EnrichedVideo {
	enriched := make([]model.EnrichedVideo, 0, len(videos))
	for _, v := range videos {
		enriched = append(enriched, e.enrichVideoSafe(v))
	}
	return enriched
}

func (e *Enricher) enrichChannelSafe(ch model.Channel) (out model.EnrichedChannel) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transform: enrichment failed for channel %s, keeping record unenriched: %v", ch.ChannelID, r)
			out = model.EnrichedChannel{Channel: ch}
		}
	}()
	return e.EnrichChannel(ch)
}

func (e *Enricher) enrichVideoSafe(v model.Video) (out model.EnrichedVideo) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transform: enrichment failed for video %s, keeping record unenriched: %v", v.VideoID, r)
			out = model.EnrichedVideo{Video: v}
		}
	}()
	return e.EnrichVideo(v)
}

// contentQualityScore is an additive 0-5 scale: up to 3 points for the
// view-to-subscriber ratio, 2 points for a weekly posting cadence between
// 0.5 and 3 uploads.
func (e *Enricher) contentQualityScore(ch model.Channel, ageDays int) float64 {
	score := 0.0

	if ch.SubscriberCount > 0 && ch.ViewCount > 0 {
		ratio := float64(ch.ViewCount) / float64(ch.SubscriberCount)
		switch {
		case ratio > 10:
			score += 3
		case ratio > 5:
			score += 2
		case ratio > 2:
			score += 1
		}
	}

	if ageDays > 0 {
		perWeek := float64(ch.VideoCount) / float64(ageDays) * 7
		if perWeek >= 0.5 && perWeek <= 3 {
			score += 2
		}
	}

	return math.Min(score, 5)
}

// performanceScore is an additive 0-100 scale from three independent tiers:
// views (up to 40), engagement rate (up to 30) and like ratio (up to 30).
// The tier boundaries are fixed, preserved from the reporting contract.
func performanceScore(v model.Video, engagementRate float64) float64 {
	score := 0.0

	switch {
	case v.ViewCount >= 1_000_000:
		score += 40
	case v.ViewCount >= 100_000:
		score += 30
	case v.ViewCount >= 10_000:
		score += 20
	case v.ViewCount >= 1_000:
		score += 10
	}

	switch {
	case engagementRate >= 10:
		score += 30
	case engagementRate >= 5:
		score += 20
	case engagementRate >= 2:
		score += 10
	}

	if v.ViewCount > 0 {
		likeRatio := float64(v.LikeCount) / float64(v.ViewCount)
		switch {
		case likeRatio >= 0.1:
			score += 30
		case likeRatio >= 0.05:
			score += 20
		case likeRatio >= 0.02:
			score += 10
		}
	}

	return math.Min(score, 100)
}

// growthTier buckets a channel by subscriber count.
func growthTier(subscribers int64) string {
	switch {
	case subscribers >= megaTier:
		return "Mega"
	case subscribers >= macroTier:
		return "Macro"
	case subscribers >= midTier:
		return "Mid-tier"
	case subscribers >= microTier:
		return "Micro"
	default:
		return "Nano"
	}
}

// classifyContent scans title+description case-insensitively against the
// ordered keyword table.
func classifyContent(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, bucket := range contentKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(text, kw) {
				return bucket.kind
			}
		}
	}
	return "other"
}

// DurationMinutes converts an ISO 8601 duration ("PT1H30M15S") to minutes,
// rounded to 2 decimals. Empty, non-PT-prefixed or malformed input yields 0.
func DurationMinutes(duration string) float64 {
	m := durationParts.FindStringSubmatch(duration)
	if m == nil || duration == "PT" {
		return 0
	}

	hours, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(m[3]))

	return round2(float64(hours)*60 + float64(minutes) + float64(seconds)/60)
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// round2 rounds to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
