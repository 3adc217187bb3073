// Command hermes-dictimport manually runs the import_dicts job (spec
// §4.5.3) outside the ETL scheduler's cadence, matching the original
// pipeline's Airflow-task/manual-script duality.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/GallonShih/hermes/pkg/etl"
	"github.com/GallonShih/hermes/pkg/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	dir := flag.String("dir", ".", "directory containing meaningless_words.json, replace_words.json, special_words.json")
	flag.Parse()

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

	job := &etl.DictImportJob{Store: st, Dir: *dir}
	records, err := job.Run(ctx)
	if err != nil {
		slog.Error("dictionary import failed", "error", err)
		return 1
	}

	slog.Info("dictionary import completed", "records_processed", records)
	return 0
}
