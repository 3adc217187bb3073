// Package youtube provides a minimal client for the parts of the
// YouTube Data API v3 the Stats Poller needs: video
// snippet/liveStreamingDetails/statistics lookup for one video id.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/GallonShih/hermes/pkg/models"
)

const apiBaseURL = "https://www.googleapis.com/youtube/v3/videos"

// defaultRateLimit keeps requests comfortably under the Data API's
// default quota even when several streams are polled concurrently.
const defaultRateLimit = rate.Limit(2) // 2 req/s
const defaultBurst = 4

// Client is an HTTP client for the YouTube Data API's videos.list
// endpoint, rate-limited to stay under quota with a fixed http.Client
// timeout on every outbound call.
type Client struct {
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New constructs a YouTube Data API client. apiKey is required; the
// Data API rejects unauthenticated requests.
func New(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(defaultRateLimit, defaultBurst),
		logger:     slog.Default(),
	}
}

type videosListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title          string   `json:"title"`
		ChannelID      string   `json:"channelId"`
		ChannelTitle   string   `json:"channelTitle"`
		Tags           []string `json:"tags"`
		CategoryID     string   `json:"categoryId"`
		Thumbnails     struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
		LiveBroadcastContent string `json:"liveBroadcastContent"`
	} `json:"snippet"`
	LiveStreamingDetails struct {
		ScheduledStartTime string `json:"scheduledStartTime"`
		ActualStartTime    string `json:"actualStartTime"`
		ConcurrentViewers  string `json:"concurrentViewers"`
	} `json:"liveStreamingDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
		LikeCount string `json:"likeCount"`
	} `json:"statistics"`
	TopicDetails struct {
		TopicCategories []string `json:"topicCategories"`
	} `json:"topicDetails"`
}

// ErrVideoNotFound is returned when the Data API returns zero items for
// the requested video id (the broadcast ended and was deleted, or the
// id is simply wrong).
var ErrVideoNotFound = fmt.Errorf("youtube: video not found")

// FetchVideo retrieves snippet, liveStreamingDetails, statistics and
// topicDetails for one video id in a single videos.list call.
func (c *Client) FetchVideo(ctx context.Context, videoID string) (*models.LiveStream, *models.StreamStats, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("youtube: rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("youtube: create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("part", "snippet,liveStreamingDetails,statistics,topicDetails")
	q.Set("id", videoID)
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("youtube: fetch video %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("youtube: API returned HTTP %d for %s: %s", resp.StatusCode, videoID, string(body))
	}

	var parsed videosListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("youtube: decode response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, nil, ErrVideoNotFound
	}

	item := parsed.Items[0]
	stream := &models.LiveStream{
		VideoID:         item.ID,
		Title:           item.Snippet.Title,
		ChannelID:       item.Snippet.ChannelID,
		ChannelTitle:    item.Snippet.ChannelTitle,
		ThumbnailURL:    item.Snippet.Thumbnails.High.URL,
		Tags:            item.Snippet.Tags,
		CategoryID:      item.Snippet.CategoryID,
		TopicCategories: item.TopicDetails.TopicCategories,
		FetchedAt:       time.Now(),
	}
	if t, err := time.Parse(time.RFC3339, item.LiveStreamingDetails.ScheduledStartTime); err == nil {
		stream.ScheduledStartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, item.LiveStreamingDetails.ActualStartTime); err == nil {
		stream.ActualStartTime = &t
	}

	stats := &models.StreamStats{
		LiveStreamID: item.ID,
		CollectedAt:  time.Now(),
	}
	stats.ConcurrentViewers = parseOptionalInt64(item.LiveStreamingDetails.ConcurrentViewers)
	stats.ViewCount = parseOptionalInt64(item.Statistics.ViewCount)
	stats.LikeCount = parseOptionalInt64(item.Statistics.LikeCount)

	return stream, stats, nil
}

func parseOptionalInt64(s string) *int64 {
	if s == "" {
		return nil
	}
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return nil
	}
	return &v
}
