package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/GallonShih/hermes/pkg/models"
)

// RecordETLExecution writes one completed-or-failed job-run row (spec
// §4.5, §4.6: every job run writes exactly one row regardless of outcome;
// a tick skipped because the job is still running writes none). ErrorMessage is truncated by the caller via
// models.TruncateErrorMessage before being passed in.
func (s *Store) RecordETLExecution(ctx context.Context, log *models.ETLExecutionLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(log.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal etl execution metadata: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO etl_execution_log
			(id, job_id, started_at, completed_at, duration_seconds, status, records_processed, error_message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, log.ID, log.JobID, log.StartedAt, log.CompletedAt, log.DurationSeconds, string(log.Status), log.RecordsProcessed, log.ErrorMessage, metadata)
	if err != nil {
		return fmt.Errorf("store: record etl execution for job %s: %w", log.JobID, err)
	}
	return nil
}
