// Package etl implements the ETL Core (C5): chat normalization, word
// discovery reconciliation, and dictionary import.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GallonShih/hermes/pkg/models"
	"github.com/GallonShih/hermes/pkg/store"
)

// NormalizeStore is the subset of store.Store the normalization job needs.
type NormalizeStore interface {
	GetActiveDictionaries(ctx context.Context) (*store.ActiveDictionaries, error)
	UnprocessedMessages(ctx context.Context, afterPublishedAt time.Time, afterID string, limit int) ([]*models.ChatMessage, error)
	MarkProcessed(ctx context.Context, tx pgx.Tx, messageID string, processedText string, tokens, unicodeEmojis []string) error
}

// NormalizationBatchSize is the number of messages process_chat_messages
// fetches per UnprocessedMessages page. Run keeps fetching pages until one
// comes back shorter than this, so a single run is not capped at this
// many messages.
const NormalizationBatchSize = 500

// segmenter is the narrow interface NormalizeMessage needs from a
// tokenizer, satisfied by *Tokenizer and by test doubles so the pipeline
// is testable without a real gojieba instance.
type segmenter interface {
	Tokenize(s string) []string
}

// NormalizeMessage runs the strictly-ordered per-message pipeline of spec
// §4.5.1 steps 1–6 and returns the fields to write back. It performs no
// I/O: dictionaries and the tokenizer are supplied by the caller so this
// function (like Reconcile) stays independently testable.
func NormalizeMessage(m *models.ChatMessage, replace []replaceEntry, tok segmenter) (processedText string, tokens, unicodeEmojis []string) {
	unicodeEmojis = extractUnicodeEmojis(m.Message)

	emoteNames := make([]string, 0, len(m.Emotes))
	for _, e := range m.Emotes {
		emoteNames = append(emoteNames, e.Name)
	}

	substituted := applyReplaceDictionary(m.Message, replace)
	stripped := stripEmoteTokens(stripEmojis(substituted), emoteNames)
	normalized := foldWidth(stripped)
	tokens = tok.Tokenize(normalized)

	return normalized, tokens, unicodeEmojis
}

// buildReplaceEntries converts the active ReplaceWord rows into ordered
// replaceEntry values, preserving the dictionary's natural (insertion)
// order for tie-breaking (spec §4.5.1 step 3).
func buildReplaceEntries(words []models.ReplaceWord) []replaceEntry {
	entries := make([]replaceEntry, len(words))
	for i, w := range words {
		entries[i] = replaceEntry{Source: w.Source, Target: w.Target, Order: i}
	}
	return entries
}

// ChatNormalizationJob runs process_chat_messages once: it snapshots the
// active dictionaries, pages through unprocessed messages, normalizes
// each, and writes the result back via mark_processed. It returns the
// count of messages processed; the caller (the scheduler) is responsible
// for writing the ETLExecutionLog row.
type ChatNormalizationJob struct {
	Store NormalizeStore
}

func (j *ChatNormalizationJob) Run(ctx context.Context) (recordsProcessed int, err error) {
	dicts, err := j.Store.GetActiveDictionaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("etl: load active dictionaries: %w", err)
	}

	specialWords := make([]string, len(dicts.Special))
	for i, w := range dicts.Special {
		specialWords[i] = w.Word
	}
	meaninglessWords := make([]string, len(dicts.Meaningless))
	for i, w := range dicts.Meaningless {
		meaninglessWords[i] = w.Word
	}
	replace := buildReplaceEntries(dicts.Replace)

	tok, err := NewTokenizer(specialWords, meaninglessWords)
	if err != nil {
		return 0, fmt.Errorf("etl: build tokenizer: %w", err)
	}
	defer tok.Close()

	var afterPublishedAt time.Time
	afterID := ""
	processed := 0

	for {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		batch, err := j.Store.UnprocessedMessages(ctx, afterPublishedAt, afterID, NormalizationBatchSize)
		if err != nil {
			return processed, fmt.Errorf("etl: fetch unprocessed messages: %w", err)
		}
		if len(batch) == 0 {
			return processed, nil
		}

		for _, m := range batch {
			text, tokens, emojis := NormalizeMessage(m, replace, tok)
			if err := j.Store.MarkProcessed(ctx, nil, m.MessageID, text, tokens, emojis); err != nil {
				return processed, fmt.Errorf("etl: mark processed %s: %w", m.MessageID, err)
			}
			processed++
			afterPublishedAt = m.PublishedAt
			afterID = m.MessageID
		}

		if len(batch) < NormalizationBatchSize {
			return processed, nil
		}
	}
}

