package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GallonShih/hermes/pkg/models"
)

// ChatStore is the subset of Store.BatchUpsertChat's contract the
// importer needs, kept narrow so backup doesn't import the store
// package's full surface.
type ChatStore interface {
	BatchUpsertChat(ctx context.Context, msgs []*models.ChatMessage) (failed []string, err error)
}

// Result summarizes one backup file's import outcome.
type Result struct {
	Path      string
	Attempted int
	Failed    int
	Deleted   bool
}

// ImportFile replays one backup file through store.BatchUpsertChat. On
// full success the file is deleted when deleteOnSuccess is set;
// otherwise it is rewritten to contain only the still-failed messages
// (spec §6.3: "the file is rewritten with only the still-failed
// messages"). An empty or already-processed file (zero messages) is
// always deleted, since there's nothing left to retry.
func ImportFile(ctx context.Context, store ChatStore, path string, deleteOnSuccess bool) (Result, error) {
	messages, err := Read(path)
	if err != nil {
		return Result{Path: path}, err
	}

	res := Result{Path: path, Attempted: len(messages)}

	if len(messages) == 0 {
		if err := Delete(path); err != nil {
			return res, err
		}
		res.Deleted = true
		return res, nil
	}

	failedIDs, err := store.BatchUpsertChat(ctx, messages)
	if err != nil {
		slog.Warn("backup import: batch completed with errors", "path", path, "failed", len(failedIDs), "error", err)
	}
	res.Failed = len(failedIDs)

	if len(failedIDs) == 0 {
		if deleteOnSuccess {
			if err := Delete(path); err != nil {
				return res, err
			}
			res.Deleted = true
		} else {
			if err := Rewrite(path, nil); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	failedSet := make(map[string]bool, len(failedIDs))
	for _, id := range failedIDs {
		failedSet[id] = true
	}
	var stillFailed []*models.ChatMessage
	for _, m := range messages {
		if failedSet[m.MessageID] {
			stillFailed = append(stillFailed, m)
		}
	}
	if err := Rewrite(path, stillFailed); err != nil {
		return res, fmt.Errorf("backup: rewrite after partial import: %w", err)
	}
	return res, nil
}

// ImportDir imports every backup file directly under dir, in lexical
// (i.e. timestamp) order, and returns one Result per file.
func ImportDir(ctx context.Context, store ChatStore, dir string, deleteOnSuccess bool) ([]Result, error) {
	paths, err := ListStreamDir(dir)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, p := range paths {
		res, err := ImportFile(ctx, store, p, deleteOnSuccess)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
