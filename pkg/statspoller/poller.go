// Package statspoller implements the Stats Poller (C3): on a fixed
// cadence it fetches one video's metadata and counters, upserts the
// LiveStream row, and appends one StreamStats row.
package statspoller

import (
	"context"
	"log/slog"
	"time"

	"github.com/GallonShih/hermes/pkg/models"
)

// VideoFetcher is the subset of youtube.Client the poller needs.
type VideoFetcher interface {
	FetchVideo(ctx context.Context, videoID string) (*models.LiveStream, *models.StreamStats, error)
}

// StatsStore is the subset of store.Store the poller needs.
type StatsStore interface {
	UpsertLiveStream(ctx context.Context, stream *models.LiveStream) error
	AppendStats(ctx context.Context, stats *models.StreamStats) error
}

// Poller polls one video's stats on a fixed interval (spec §4.3).
type Poller struct {
	videoID      string
	pollInterval time.Duration
	fetcher      VideoFetcher
	store        StatsStore
}

// New constructs a Poller for one video id.
func New(videoID string, pollInterval time.Duration, fetcher VideoFetcher, store StatsStore) *Poller {
	return &Poller{videoID: videoID, pollInterval: pollInterval, fetcher: fetcher, store: store}
}

// Run blocks, polling every pollInterval until ctx is cancelled. Each
// tick is independent: a failed fetch or store write is logged and
// skipped rather than aborting the poller (spec §4.3: "Non-2xx,
// timeouts, or missing items → log and skip this tick (no crash)").
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	stream, stats, err := p.fetcher.FetchVideo(ctx, p.videoID)
	if err != nil {
		slog.Warn("stats poller: fetch failed, skipping tick", "video_id", p.videoID, "error", err)
		return
	}

	if err := p.store.UpsertLiveStream(ctx, stream); err != nil {
		slog.Error("stats poller: upsert live stream failed", "video_id", p.videoID, "error", err)
		return
	}
	if err := p.store.AppendStats(ctx, stats); err != nil {
		slog.Error("stats poller: append stats failed", "video_id", p.videoID, "error", err)
	}
}
