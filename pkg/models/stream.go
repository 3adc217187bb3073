package models

import "time"

// LiveStream is the upserted per-video metadata row (spec §3, natural key
// video_id).
type LiveStream struct {
	VideoID            string
	Title               string
	ChannelID           string
	ChannelTitle        string
	ThumbnailURL        string
	Tags                []string
	CategoryID          string
	TopicCategories     []string
	ScheduledStartTime  *time.Time
	ActualStartTime     *time.Time
	FetchedAt           time.Time
}

// StreamStats is one append-only snapshot row (spec §3).
type StreamStats struct {
	ID                 int64
	LiveStreamID       string
	CollectedAt        time.Time
	ConcurrentViewers  *int64
	ViewCount          *int64
	LikeCount          *int64
}
