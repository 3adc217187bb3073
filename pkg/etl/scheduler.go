package etl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GallonShih/hermes/pkg/models"
)

// Job is one schedulable ETL job: it runs once and reports how many
// records it touched.
type Job interface {
	Run(ctx context.Context) (recordsProcessed int, err error)
}

// ExecutionLogStore is the subset of store.Store the scheduler needs to
// record each run.
type ExecutionLogStore interface {
	RecordETLExecution(ctx context.Context, log *models.ETLExecutionLog) error
}

// jobEntry binds a job id to its Job implementation and cadence. A zero
// Interval means the job only runs when triggered manually via RunNow.
type jobEntry struct {
	id       string
	job      Job
	interval time.Duration
	mu       sync.Mutex // per-job-id coalescing lock (spec §5)
}

// Scheduler is a multi-job, ticker-driven runner for an arbitrary named
// job set: each job gets its own goroutine and ticker, so different jobs
// may overlap, but a coalescing lock on each jobEntry guarantees two runs of the same
// job never overlap (spec §5).
type Scheduler struct {
	store ExecutionLogStore
	jobs  []*jobEntry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds an empty scheduler bound to store for execution
// logging.
func NewScheduler(store ExecutionLogStore) *Scheduler {
	return &Scheduler{store: store}
}

// Register adds a named job on a cadence. A zero interval registers the
// job for manual RunNow invocation only (used by import_dicts, spec
// §4.5.3: "Manual job").
func (s *Scheduler) Register(jobID string, job Job, interval time.Duration) {
	s.jobs = append(s.jobs, &jobEntry{id: jobID, job: job, interval: interval})
}

// Start launches one ticker goroutine per registered job with a non-zero
// interval.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, entry := range s.jobs {
		if entry.interval <= 0 {
			continue
		}
		entry := entry
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnSchedule(ctx, entry)
		}()
	}

	slog.Info("etl scheduler started", "job_count", len(s.jobs))
}

// Stop cancels all job loops and waits for them to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	slog.Info("etl scheduler stopped")
}

// RunNow triggers a single registered job immediately, honoring its
// coalescing lock (used for manual jobs like import_dicts, and for
// operator-triggered ad hoc reruns).
func (s *Scheduler) RunNow(ctx context.Context, jobID string) error {
	for _, entry := range s.jobs {
		if entry.id == jobID {
			s.runOnce(ctx, entry)
			return nil
		}
	}
	return errUnknownJob(jobID)
}

func (s *Scheduler) runOnSchedule(ctx context.Context, entry *jobEntry) {
	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, entry)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, entry *jobEntry) {
	if !entry.mu.TryLock() {
		slog.Warn("etl: previous run still in progress, skipping tick", "job_id", entry.id)
		return
	}
	defer entry.mu.Unlock()

	started := time.Now()
	records, err := entry.job.Run(ctx)
	completed := time.Now()

	log := &models.ETLExecutionLog{
		JobID:            entry.id,
		StartedAt:        started,
		CompletedAt:      completed,
		DurationSeconds:  completed.Sub(started).Seconds(),
		RecordsProcessed: records,
	}
	if err != nil {
		log.Status = models.ETLStatusFailed
		log.ErrorMessage = models.TruncateErrorMessage(err.Error())
		slog.Error("etl job failed", "job_id", entry.id, "error", err)
	} else {
		log.Status = models.ETLStatusCompleted
		slog.Info("etl job completed", "job_id", entry.id, "records_processed", records)
	}

	if rerr := s.store.RecordETLExecution(ctx, log); rerr != nil {
		slog.Error("etl: failed to record execution log", "job_id", entry.id, "error", rerr)
	}
}

type errUnknownJob string

func (e errUnknownJob) Error() string {
	return "etl: unknown job id " + string(e)
}
