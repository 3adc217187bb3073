// Command hermes-import replays crash-safety backup files into the store
// (spec §6.3). It accepts a single backup file, a per-stream backup
// directory, or a root directory containing one subdirectory per stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GallonShih/hermes/pkg/backup"
	"github.com/GallonShih/hermes/pkg/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	streamID := flag.String("stream-id", "", "video id for a single backup file whose parent directory is not named after it")
	deleteOnSuccess := flag.Bool("delete", false, "remove each file after an error-free import")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hermes-import [--stream-id ID] [--delete] <path>")
		return 1
	}
	path := flag.Arg(0)

	info, err := os.Stat(path)
	if err != nil {
		slog.Error("path does not exist", "path", path, "error", err)
		return 1
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL must be set")
		return 1
	}

	ctx := context.Background()
	client, err := store.NewClient(ctx, databaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}
	defer client.Close()
	st := store.NewFromClient(client)

	if !info.IsDir() {
		videoID := *streamID
		if videoID == "" {
			videoID = backup.VideoIDFromPath(path)
		}
		res, err := backup.ImportFile(ctx, st, path, *deleteOnSuccess)
		if err != nil {
			slog.Error("import failed", "path", path, "error", err)
			return 1
		}
		logResult(videoID, res)
		return 0
	}

	if isStreamDir(path) {
		videoID := *streamID
		if videoID == "" {
			videoID = filepath.Base(path)
		}
		results, err := backup.ImportDir(ctx, st, path, *deleteOnSuccess)
		if err != nil {
			slog.Error("import failed", "dir", path, "error", err)
			return 1
		}
		for _, res := range results {
			logResult(videoID, res)
		}
		return 0
	}

	byVideo, err := backup.ListRoot(path)
	if err != nil {
		slog.Error("failed to list backup root", "path", path, "error", err)
		return 1
	}
	for videoID, paths := range byVideo {
		for _, p := range paths {
			res, err := backup.ImportFile(ctx, st, p, *deleteOnSuccess)
			if err != nil {
				slog.Error("import failed", "path", p, "error", err)
				return 1
			}
			logResult(videoID, res)
		}
	}
	return 0
}

// isStreamDir reports whether dir looks like a single stream's backup
// directory (contains only files) as opposed to a root of per-stream
// subdirectories (contains only directories).
func isStreamDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	for _, e := range entries {
		if e.IsDir() {
			return false
		}
	}
	return true
}

func logResult(videoID string, res backup.Result) {
	slog.Info("imported backup file",
		"video_id", videoID, "path", res.Path, "attempted", res.Attempted, "failed", res.Failed, "deleted", res.Deleted)
}
