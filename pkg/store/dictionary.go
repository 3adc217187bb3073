package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GallonShih/hermes/pkg/models"
)

// ActiveDictionaries bundles the three approved dictionary tables the
// normalization pipeline reads on every batch (spec §4.5.1 step 1).
type ActiveDictionaries struct {
	Replace     []models.ReplaceWord
	Special     []models.SpecialWord
	Meaningless []models.MeaninglessWord
}

// GetActiveDictionaries loads the full active replace/special/meaningless
// word sets. These tables are small (hundreds to low thousands of rows)
// so the ETL core reloads them in full on every normalization tick rather
// than tracking incremental deltas.
func (s *Store) GetActiveDictionaries(ctx context.Context) (*ActiveDictionaries, error) {
	out := &ActiveDictionaries{}

	rows, err := s.db.Query(ctx, `SELECT source, target, updated_at FROM replace_words`)
	if err != nil {
		return nil, fmt.Errorf("store: query replace_words: %w", err)
	}
	for rows.Next() {
		var w models.ReplaceWord
		if err := rows.Scan(&w.Source, &w.Target, &w.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan replace_word: %w", err)
		}
		out.Replace = append(out.Replace, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate replace_words: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT word, updated_at FROM special_words`)
	if err != nil {
		return nil, fmt.Errorf("store: query special_words: %w", err)
	}
	for rows.Next() {
		var w models.SpecialWord
		if err := rows.Scan(&w.Word, &w.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan special_word: %w", err)
		}
		out.Special = append(out.Special, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate special_words: %w", err)
	}

	rows, err = s.db.Query(ctx, `SELECT word, updated_at FROM meaningless_words`)
	if err != nil {
		return nil, fmt.Errorf("store: query meaningless_words: %w", err)
	}
	for rows.Next() {
		var w models.MeaninglessWord
		if err := rows.Scan(&w.Word, &w.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan meaningless_word: %w", err)
		}
		out.Meaningless = append(out.Meaningless, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate meaningless_words: %w", err)
	}

	return out, nil
}

// PutReplaceWord upserts an approved replace-dictionary entry, used by
// both the dictionary-import CLI and the discovery-approval path.
func (s *Store) PutReplaceWord(ctx context.Context, w models.ReplaceWord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO replace_words (source, target, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (source) DO UPDATE SET target = EXCLUDED.target, updated_at = EXCLUDED.updated_at
	`, w.Source, w.Target, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put replace_word %s: %w", w.Source, err)
	}
	return nil
}

// PutSpecialWord upserts an approved special-word (user dictionary) entry,
// refreshing updated_at on an existing word (used by the discovery
// approval path, where a re-approved word should look freshly touched).
func (s *Store) PutSpecialWord(ctx context.Context, w models.SpecialWord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO special_words (word, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (word) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, w.Word, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put special_word %s: %w", w.Word, err)
	}
	return nil
}

// PutMeaninglessWord upserts a stop-list entry.
func (s *Store) PutMeaninglessWord(ctx context.Context, w models.MeaninglessWord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO meaningless_words (word, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (word) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, w.Word, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put meaningless_word %s: %w", w.Word, err)
	}
	return nil
}

// InsertSpecialWordIfAbsent adds a special word only if it does not
// already exist (spec §4.5.3: dictionary import uses ON CONFLICT DO
// NOTHING for the two word sets, so a manual curation edit is never
// clobbered by a re-import of the bundled dictionary file).
func (s *Store) InsertSpecialWordIfAbsent(ctx context.Context, w models.SpecialWord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO special_words (word, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (word) DO NOTHING
	`, w.Word, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert special_word %s: %w", w.Word, err)
	}
	return nil
}

// InsertMeaninglessWordIfAbsent adds a stop-list entry only if absent
// (spec §4.5.3).
func (s *Store) InsertMeaninglessWordIfAbsent(ctx context.Context, w models.MeaninglessWord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO meaningless_words (word, updated_at)
		VALUES ($1, $2)
		ON CONFLICT (word) DO NOTHING
	`, w.Word, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert meaningless_word %s: %w", w.Word, err)
	}
	return nil
}

// GetCurrencyRate looks up a currency's TWD conversion rate, returning
// ErrNotFound if absent (spec §4.5.1 monetary normalization step).
func (s *Store) GetCurrencyRate(ctx context.Context, currency string) (*models.CurrencyRate, error) {
	var r models.CurrencyRate
	r.Currency = currency
	err := s.db.QueryRow(ctx, `SELECT rate_to_twd, updated_at FROM currency_rates WHERE currency = $1`, currency).
		Scan(&r.RateToTWD, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get currency rate %s: %w", currency, err)
	}
	return &r, nil
}

// PutCurrencyRate upserts a currency conversion rate.
func (s *Store) PutCurrencyRate(ctx context.Context, r models.CurrencyRate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO currency_rates (currency, rate_to_twd, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (currency) DO UPDATE SET rate_to_twd = EXCLUDED.rate_to_twd, updated_at = EXCLUDED.updated_at
	`, r.Currency, r.RateToTWD, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put currency rate %s: %w", r.Currency, err)
	}
	return nil
}
