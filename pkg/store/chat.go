package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GallonShih/hermes/pkg/models"
)

const upsertChatSQL = `
INSERT INTO chat_messages
	(message_id, live_stream_id, author_id, author_name, message_type,
	 message, timestamp_usec, published_at, emotes, raw_data)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (message_id) DO UPDATE SET
	author_name = EXCLUDED.author_name,
	message     = EXCLUDED.message
`

// UpsertChat inserts a single chat message, tolerating re-delivery of the
// same message_id (spec §4.1: the ingestor may see a message twice across
// a reconnect). A duplicate only refreshes author_name/message.
func (s *Store) UpsertChat(ctx context.Context, m *models.ChatMessage) error {
	return upsertChatRow(ctx, s.db, m)
}

func upsertChatRow(ctx context.Context, q Querier, m *models.ChatMessage) error {
	emotes, err := json.Marshal(m.Emotes)
	if err != nil {
		return fmt.Errorf("store: marshal emotes: %w", err)
	}
	raw, err := json.Marshal(m.RawData)
	if err != nil {
		return fmt.Errorf("store: marshal raw_data: %w", err)
	}
	_, err = q.Exec(ctx, upsertChatSQL,
		m.MessageID, m.LiveStreamID, m.AuthorID, m.AuthorName, string(m.MessageType),
		m.Message, m.TimestampUsec, m.PublishedAt, emotes, raw,
	)
	if err != nil {
		return fmt.Errorf("store: upsert chat message %s: %w", m.MessageID, err)
	}
	return nil
}

// BatchUpsertChat inserts a batch of chat messages inside a single
// transaction, isolating each row behind its own SAVEPOINT so that one
// malformed row (e.g. a payload field that fails to marshal) does not
// abort the rest of the batch — the same partial-failure-tolerant pattern
// the collector's import path uses around session.begin_nested(). It
// returns the message_ids that failed, alongside the first error seen.
// When the transaction itself fails (begin, savepoint handling or commit),
// nothing is written and every message_id in msgs is returned as failed.
func (s *Store) BatchUpsertChat(ctx context.Context, msgs []*models.ChatMessage) (failed []string, err error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	allIDs := func() []string {
		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.MessageID
		}
		return ids
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return allIDs(), fmt.Errorf("store: begin batch upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var firstErr error
	for i, m := range msgs {
		spName := fmt.Sprintf("sp_%d", i)
		if _, serr := tx.Exec(ctx, "SAVEPOINT "+spName); serr != nil {
			return allIDs(), fmt.Errorf("store: savepoint: %w", serr)
		}

		if rerr := upsertChatRow(ctx, tx, m); rerr != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+spName); rbErr != nil {
				return allIDs(), fmt.Errorf("store: rollback to savepoint: %w", rbErr)
			}
			failed = append(failed, m.MessageID)
			if firstErr == nil {
				firstErr = rerr
			}
			slog.Warn("chat message failed in batch, rolled back to savepoint",
				"message_id", m.MessageID, "error", rerr)
			continue
		}

		if _, rerr := tx.Exec(ctx, "RELEASE SAVEPOINT "+spName); rerr != nil {
			return allIDs(), fmt.Errorf("store: release savepoint: %w", rerr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return allIDs(), fmt.Errorf("store: commit batch upsert: %w", err)
	}
	return failed, firstErr
}

const upsertLiveStreamSQL = `
INSERT INTO live_streams
	(video_id, title, channel_id, channel_title, thumbnail_url, tags,
	 category_id, topic_categories, scheduled_start_time, actual_start_time, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (video_id) DO UPDATE SET
	title                = EXCLUDED.title,
	channel_id           = EXCLUDED.channel_id,
	channel_title        = EXCLUDED.channel_title,
	thumbnail_url        = EXCLUDED.thumbnail_url,
	tags                 = EXCLUDED.tags,
	category_id          = EXCLUDED.category_id,
	topic_categories     = EXCLUDED.topic_categories,
	scheduled_start_time = EXCLUDED.scheduled_start_time,
	actual_start_time    = EXCLUDED.actual_start_time,
	fetched_at           = EXCLUDED.fetched_at
`

// UpsertLiveStream records or refreshes stream metadata fetched from the
// YouTube Data API (spec §4.3).
func (s *Store) UpsertLiveStream(ctx context.Context, stream *models.LiveStream) error {
	tags, err := json.Marshal(stream.Tags)
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}
	topics, err := json.Marshal(stream.TopicCategories)
	if err != nil {
		return fmt.Errorf("store: marshal topic_categories: %w", err)
	}
	_, err = s.db.Exec(ctx, upsertLiveStreamSQL,
		stream.VideoID, stream.Title, stream.ChannelID, stream.ChannelTitle, stream.ThumbnailURL, tags,
		stream.CategoryID, topics, stream.ScheduledStartTime, stream.ActualStartTime, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("store: upsert live stream %s: %w", stream.VideoID, err)
	}
	return nil
}

// UnprocessedMessages returns up to limit chat messages with processed_at
// IS NULL, ordered by (published_at, message_id), starting strictly after
// the (afterPublishedAt, afterID) position. The caller drives pagination by
// feeding back the last seen published_at and message_id; the cursor is not
// stored, but rows already marked processed drop out of the filter, so a
// scan that starts again from the zero position picks up only the
// remaining backlog.
func (s *Store) UnprocessedMessages(ctx context.Context, afterPublishedAt time.Time, afterID string, limit int) ([]*models.ChatMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT message_id, live_stream_id, author_id, author_name, message_type,
		       message, timestamp_usec, published_at, emotes, raw_data
		FROM chat_messages
		WHERE processed_at IS NULL
		  AND (published_at, message_id) > ($1, $2)
		ORDER BY published_at, message_id
		LIMIT $3
	`, afterPublishedAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query unprocessed messages: %w", err)
	}
	defer rows.Close()

	var out []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		var msgType string
		var emotes, raw []byte
		if err := rows.Scan(&m.MessageID, &m.LiveStreamID, &m.AuthorID, &m.AuthorName, &msgType,
			&m.Message, &m.TimestampUsec, &m.PublishedAt, &emotes, &raw); err != nil {
			return nil, fmt.Errorf("store: scan unprocessed message: %w", err)
		}
		m.MessageType = models.MessageType(msgType)
		if len(emotes) > 0 {
			if err := json.Unmarshal(emotes, &m.Emotes); err != nil {
				return nil, fmt.Errorf("store: unmarshal emotes: %w", err)
			}
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &m.RawData); err != nil {
				return nil, fmt.Errorf("store: unmarshal raw_data: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate unprocessed messages: %w", err)
	}
	return out, nil
}

// MarkProcessed writes the normalization output back onto a chat message
// (spec §4.5.1 step 6) and is safe to call from inside an existing
// transaction by passing a pgx.Tx as tx (nil uses the pool directly).
func (s *Store) MarkProcessed(ctx context.Context, tx pgx.Tx, messageID string, processedText string, tokens, unicodeEmojis []string) error {
	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("store: marshal tokens: %w", err)
	}
	emojisJSON, err := json.Marshal(unicodeEmojis)
	if err != nil {
		return fmt.Errorf("store: marshal unicode_emojis: %w", err)
	}

	var q Querier = s.db
	if tx != nil {
		q = tx
	}

	_, err = q.Exec(ctx, `
		UPDATE chat_messages
		SET processed_text = $2, tokens = $3, unicode_emojis = $4, processed_at = $5
		WHERE message_id = $1
	`, messageID, processedText, tokensJSON, emojisJSON, time.Now())
	if err != nil {
		return fmt.Errorf("store: mark processed %s: %w", messageID, err)
	}
	return nil
}

// ListRecentMessagesForDiscovery returns processed tokens from messages
// published within the last window, used to seed word-discovery
// candidate frequency counts (spec §4.6 stage B).
func (s *Store) ListRecentMessagesForDiscovery(ctx context.Context, since time.Time) ([]*models.ChatMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT message_id, live_stream_id, message, processed_text, tokens
		FROM chat_messages
		WHERE published_at >= $1 AND processed_at IS NOT NULL
		ORDER BY published_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("store: query discovery window: %w", err)
	}
	defer rows.Close()

	var out []*models.ChatMessage
	for rows.Next() {
		m := &models.ChatMessage{}
		var processedText *string
		var tokens []byte
		if err := rows.Scan(&m.MessageID, &m.LiveStreamID, &m.Message, &processedText, &tokens); err != nil {
			return nil, fmt.Errorf("store: scan discovery row: %w", err)
		}
		m.ProcessedText = processedText
		if len(tokens) > 0 {
			if err := json.Unmarshal(tokens, &m.Tokens); err != nil {
				return nil, fmt.Errorf("store: unmarshal tokens: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate discovery window: %w", err)
	}
	return out, nil
}
