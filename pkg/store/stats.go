package store

import (
	"context"
	"fmt"

	"github.com/GallonShih/hermes/pkg/models"
)

// AppendStats inserts one append-only stats snapshot row (spec §4.1,
// §4.3). Unlike live streams and chat messages, stats are never updated
// in place — each poll produces a new row.
func (s *Store) AppendStats(ctx context.Context, stats *models.StreamStats) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO stream_stats (live_stream_id, collected_at, concurrent_viewers, view_count, like_count)
		VALUES ($1, $2, $3, $4, $5)
	`, stats.LiveStreamID, stats.CollectedAt, stats.ConcurrentViewers, stats.ViewCount, stats.LikeCount)
	if err != nil {
		return fmt.Errorf("store: append stats for %s: %w", stats.LiveStreamID, err)
	}
	return nil
}
