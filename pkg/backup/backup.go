// Package backup implements the crash-safety file format shared by the
// Chat Stream Ingestor (C2) and the standalone import CLI (spec §6.3):
// a buffer of chat messages is written to disk before every batch
// upsert attempt, deleted on full success, and rewritten with only the
// still-failed messages on partial failure.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/GallonShih/hermes/pkg/models"
)

// counter disambiguates backup files written within the same process
// during the same unix second (spec §7: "file names are unique by
// unix-timestamp second and in-process counter").
var counter atomic.Uint64

// Dir returns the backup directory for one video id under baseDir
// (spec §6.3: "<data>/backup/<video_id>/").
func Dir(baseDir, videoID string) string {
	return filepath.Join(baseDir, videoID)
}

// Write serializes messages as a JSON array and writes them to a new
// backup file under Dir(baseDir, videoID), returning the file's path.
// An empty messages slice still produces a file, matching the Ingestor's
// write-before-attempt protocol.
func Write(baseDir, videoID string, messages []*models.ChatMessage) (string, error) {
	dir := Dir(baseDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("backup: create dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("chat_buffer_backup_%d_%d.json", time.Now().Unix(), counter.Add(1))
	path := filepath.Join(dir, name)

	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("backup: marshal messages: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("backup: write %s: %w", path, err)
	}
	return path, nil
}

// Read loads the JSON array of chat messages from a backup file.
func Read(path string) ([]*models.ChatMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backup: read %s: %w", path, err)
	}
	var messages []*models.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("backup: unmarshal %s: %w", path, err)
	}
	return messages, nil
}

// Rewrite overwrites path with only the still-failed messages (spec
// §4.2: "rewrites the backup file with only the messages that failed").
// An empty failed slice still rewrites the file as an empty JSON array;
// callers that want the file removed instead should call Delete.
func Rewrite(path string, failed []*models.ChatMessage) error {
	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("backup: marshal failed messages: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("backup: rewrite %s: %w", path, err)
	}
	return nil
}

// Delete removes a backup file after a fully successful import. A
// missing file is not an error — it may have already been cleaned up by
// a concurrent recovery attempt.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("backup: delete %s: %w", path, err)
	}
	return nil
}

// ListStreamDir returns the paths of all backup files directly under a
// single stream's backup directory (spec §6.3: "a stream directory (all
// files within)").
func ListStreamDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// ListRoot returns, for a backup root directory containing one
// subdirectory per video id, a map from video id to that stream's
// backup file paths (spec §6.3: "a root containing per-stream
// subdirectories").
func ListRoot(root string) (map[string][]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("backup: read root %s: %w", root, err)
	}
	out := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		videoID := e.Name()
		paths, err := ListStreamDir(filepath.Join(root, videoID))
		if err != nil {
			return nil, err
		}
		out[videoID] = paths
	}
	return out, nil
}

// VideoIDFromPath infers a video id from a backup file's parent
// directory name (spec §6.3: "infer video id from parent dir if not
// given").
func VideoIDFromPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}
