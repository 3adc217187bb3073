// Command hermes-etl runs the Text-Analysis ETL core (C5): chat
// normalization, word discovery reconciliation, and dictionary import,
// each on its own cadence under a single coalescing scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/GallonShih/hermes/pkg/config"
	"github.com/GallonShih/hermes/pkg/etl"
	"github.com/GallonShih/hermes/pkg/store"
	"github.com/GallonShih/hermes/pkg/version"
)

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "."), "path to directory containing .env")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	cfg, err := config.LoadETLConfig()
	if err != nil {
		slog.Error("failed to load etl configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := store.NewClient(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	st := store.NewFromClient(client)

	sched := etl.NewScheduler(st)
	sched.Register("process_chat_messages", &etl.ChatNormalizationJob{Store: st}, cfg.NormalizeInterval)

	if cfg.AIEndpointURL != "" {
		proposer := etl.NewAIClient(cfg.AIEndpointURL, cfg.AIEndpointAPIKey)
		sched.Register("discover_new_words", &etl.WordDiscoveryJob{
			Store:    st,
			Proposer: proposer,
			Window:   cfg.DiscoveryWindow,
		}, cfg.DiscoveryInterval)
	} else {
		slog.Warn("AI_ENDPOINT_URL not set, discover_new_words job disabled")
	}

	sched.Register("import_dicts", &etl.DictImportJob{Store: st, Dir: cfg.DictImportDir}, 0)

	slog.Info("hermes-etl starting",
		"version", version.Full(),
		"normalize_interval", cfg.NormalizeInterval,
		"discovery_interval", cfg.DiscoveryInterval)

	sched.Start(ctx)
	<-ctx.Done()
	slog.Info("shutdown signal received, stopping etl scheduler")
	sched.Stop()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
