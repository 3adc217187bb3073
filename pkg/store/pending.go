package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/GallonShih/hermes/pkg/models"
)

// StagePendingReplace inserts one AI-proposed replace-dictionary delta
// awaiting human review (spec §4.6 stage B output). The ID is generated
// here so callers never need their own UUID source.
func (s *Store) StagePendingReplace(ctx context.Context, w *models.PendingReplaceWord) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	examples, err := json.Marshal(w.ExampleMessages)
	if err != nil {
		return fmt.Errorf("store: marshal example messages: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO pending_replace_words
			(id, source, target, status, confidence_score, occurrence_count, example_messages, transformation, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, w.ID, w.Source, w.Target, string(w.Status), w.ConfidenceScore, w.OccurrenceCount, examples, w.Transformation, w.DiscoveredAt)
	if err != nil {
		return fmt.Errorf("store: stage pending replace word %s: %w", w.Source, err)
	}
	return nil
}

// StagePendingSpecial inserts one proposed special-word delta awaiting
// review (spec §4.6 stage B output).
func (s *Store) StagePendingSpecial(ctx context.Context, w *models.PendingSpecialWord) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	examples, err := json.Marshal(w.ExampleMessages)
	if err != nil {
		return fmt.Errorf("store: marshal example messages: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO pending_special_words
			(id, word, type, status, confidence_score, occurrence_count, example_messages, auto_added, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, w.ID, w.Word, w.Type, string(w.Status), w.ConfidenceScore, w.OccurrenceCount, examples, w.AutoAdded, w.DiscoveredAt)
	if err != nil {
		return fmt.Errorf("store: stage pending special word %s: %w", w.Word, err)
	}
	return nil
}

// ListPendingReplace returns staged replace-word proposals with the given
// status, for operator tooling to list the review queue. The word-discovery
// job does not consult it, so a word already pending can be staged again.
func (s *Store) ListPendingReplace(ctx context.Context, status models.PendingStatus) ([]*models.PendingReplaceWord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, source, target, status, confidence_score, occurrence_count, example_messages, transformation, discovered_at
		FROM pending_replace_words WHERE status = $1
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("store: list pending replace words: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingReplaceWord
	for rows.Next() {
		w := &models.PendingReplaceWord{}
		var st string
		var examples []byte
		if err := rows.Scan(&w.ID, &w.Source, &w.Target, &st, &w.ConfidenceScore, &w.OccurrenceCount, &examples, &w.Transformation, &w.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("store: scan pending replace word: %w", err)
		}
		w.Status = models.PendingStatus(st)
		if len(examples) > 0 {
			if err := json.Unmarshal(examples, &w.ExampleMessages); err != nil {
				return nil, fmt.Errorf("store: unmarshal example messages: %w", err)
			}
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate pending replace words: %w", err)
	}
	return out, nil
}

// ListPendingSpecial returns staged special-word proposals with the given
// status.
func (s *Store) ListPendingSpecial(ctx context.Context, status models.PendingStatus) ([]*models.PendingSpecialWord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, word, type, status, confidence_score, occurrence_count, example_messages, auto_added, discovered_at
		FROM pending_special_words WHERE status = $1
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("store: list pending special words: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingSpecialWord
	for rows.Next() {
		w := &models.PendingSpecialWord{}
		var st string
		var examples []byte
		if err := rows.Scan(&w.ID, &w.Word, &w.Type, &st, &w.ConfidenceScore, &w.OccurrenceCount, &examples, &w.AutoAdded, &w.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("store: scan pending special word: %w", err)
		}
		w.Status = models.PendingStatus(st)
		if len(examples) > 0 {
			if err := json.Unmarshal(examples, &w.ExampleMessages); err != nil {
				return nil, fmt.Errorf("store: unmarshal example messages: %w", err)
			}
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate pending special words: %w", err)
	}
	return out, nil
}
