package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GallonShih/hermes/pkg/models"
)

// ImportDictStore is the subset of store.Store the import_dicts job needs.
type ImportDictStore interface {
	PutReplaceWord(ctx context.Context, w models.ReplaceWord) error
	InsertSpecialWordIfAbsent(ctx context.Context, w models.SpecialWord) error
	InsertMeaninglessWordIfAbsent(ctx context.Context, w models.MeaninglessWord) error
}

// Dictionary import file names (spec §4.5.3).
const (
	MeaninglessWordsFile = "meaningless_words.json"
	ReplaceWordsFile     = "replace_words.json"
	SpecialWordsFile     = "special_words.json"
)

// DictImportJob runs import_dicts once: reads the three JSON dictionary
// files from a directory and upserts them into the active tables. It is
// reused both by the ETL scheduler (as a manual/operator-triggered job)
// and by the standalone hermes-dictimport CLI, matching the original
// Airflow DAG's dual task/manual-script duality.
type DictImportJob struct {
	Store ImportDictStore
	Dir   string
}

// ImportResult tallies what was upserted.
type ImportResult struct {
	ReplaceCount     int
	SpecialCount     int
	MeaninglessCount int
}

func (j *DictImportJob) Run(ctx context.Context) (recordsProcessed int, err error) {
	result, err := j.importAll(ctx)
	if err != nil {
		return 0, err
	}
	return result.ReplaceCount + result.SpecialCount + result.MeaninglessCount, nil
}

func (j *DictImportJob) importAll(ctx context.Context) (ImportResult, error) {
	var result ImportResult

	replace, err := readReplaceWordsFile(filepath.Join(j.Dir, ReplaceWordsFile))
	if err != nil {
		return result, err
	}
	now := time.Now()
	for source, target := range replace {
		if err := j.Store.PutReplaceWord(ctx, models.ReplaceWord{Source: source, Target: target, UpdatedAt: now}); err != nil {
			return result, fmt.Errorf("etl: import replace word %s: %w", source, err)
		}
		result.ReplaceCount++
	}

	special, err := readWordSetFile(filepath.Join(j.Dir, SpecialWordsFile))
	if err != nil {
		return result, err
	}
	for _, word := range special {
		if err := j.Store.InsertSpecialWordIfAbsent(ctx, models.SpecialWord{Word: word, UpdatedAt: now}); err != nil {
			return result, fmt.Errorf("etl: import special word %s: %w", word, err)
		}
		result.SpecialCount++
	}

	meaningless, err := readWordSetFile(filepath.Join(j.Dir, MeaninglessWordsFile))
	if err != nil {
		return result, err
	}
	for _, word := range meaningless {
		if err := j.Store.InsertMeaninglessWordIfAbsent(ctx, models.MeaninglessWord{Word: word, UpdatedAt: now}); err != nil {
			return result, fmt.Errorf("etl: import meaningless word %s: %w", word, err)
		}
		result.MeaninglessCount++
	}

	return result, nil
}

func readReplaceWordsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("etl: read %s: %w", path, err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("etl: parse %s: %w", path, err)
	}
	return m, nil
}

func readWordSetFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("etl: read %s: %w", path, err)
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("etl: parse %s: %w", path, err)
	}
	return words, nil
}
