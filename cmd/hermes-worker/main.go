// Command hermes-worker runs the ingestion side of Hermes: the Chat
// Stream Ingestor (C2), the Stats Poller (C3), and the Supervisor (C4)
// that keeps both alive and reacts to operator-driven URL changes.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/GallonShih/hermes/pkg/backup"
	"github.com/GallonShih/hermes/pkg/chatsource"
	"github.com/GallonShih/hermes/pkg/config"
	"github.com/GallonShih/hermes/pkg/models"
	"github.com/GallonShih/hermes/pkg/store"
	"github.com/GallonShih/hermes/pkg/supervisor"
	"github.com/GallonShih/hermes/pkg/version"
	"github.com/GallonShih/hermes/pkg/youtube"
)

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "."), "path to directory containing .env")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		slog.Error("failed to load worker configuration", "error", err)
		os.Exit(1)
	}
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := store.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	st := store.NewFromClient(client)

	videoID, err := resolveInitialVideoID(ctx, st, cfg.YouTubeURL)
	if err != nil {
		slog.Error("failed to resolve initial video id", "error", err)
		os.Exit(1)
	}

	ytClient := youtube.New(cfg.YouTubeAPIKey)

	if cfg.EnableBackfill {
		backfillOnStartup(ctx, st, cfg.BackupDir, videoID)
	}

	sup := supervisor.New(supervisor.Config{
		InitialVideoID:            videoID,
		BackupDir:                 cfg.BackupDir,
		PollInterval:              cfg.PollInterval,
		URLCheckInterval:          cfg.URLCheckInterval,
		ChatWatchdogCheckInterval: cfg.ChatWatchdogCheckInterval,
		ChatWatchdogTimeout:       cfg.ChatWatchdogTimeout,
		IngestRetryMaxAttempts:    cfg.RetryMaxAttempts,
		IngestRetryBaseBackoff:    time.Duration(cfg.RetryBackoffSeconds) * time.Second,
	}, st, st, st, chatsource.Unimplemented, ytClient)

	slog.Info("hermes-worker starting", "version", version.Full(), "video_id", videoID, "backfill_enabled", cfg.EnableBackfill)

	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("supervisor exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("hermes-worker stopped")
}

// resolveInitialVideoID implements the Open Question resolution
// (SPEC_FULL.md): setting[youtube_url] wins if present; on first boot
// (no row yet) the YOUTUBE_URL env var seeds the setting.
func resolveInitialVideoID(ctx context.Context, st *store.Store, envURL string) (string, error) {
	raw, err := st.GetSetting(ctx, models.SettingYouTubeURL)
	if errors.Is(err, store.ErrNotFound) {
		if err := st.PutSetting(ctx, models.SettingYouTubeURL, envURL); err != nil {
			return "", err
		}
		raw = envURL
	} else if err != nil {
		return "", err
	}
	return chatsource.ExtractVideoID(raw)
}

// backfillOnStartup replays any crash-safety backup files left behind by a
// previous process for videoID (spec §6.3 self-heal on restart). A missing
// backup directory just means this is the stream's first-ever boot, which
// is not an error.
func backfillOnStartup(ctx context.Context, st backup.ChatStore, backupDir, videoID string) {
	dir := backup.Dir(backupDir, videoID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return
	}

	results, err := backup.ImportDir(ctx, st, dir, true)
	if err != nil {
		slog.Error("hermes-worker: backfill from backup directory failed", "video_id", videoID, "dir", dir, "error", err)
		return
	}
	for _, res := range results {
		slog.Info("hermes-worker: backfilled chat messages from backup",
			"video_id", videoID, "path", res.Path, "attempted", res.Attempted, "failed", res.Failed, "deleted", res.Deleted)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setLogLevel(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(l)
}
