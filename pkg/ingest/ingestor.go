// Package ingest implements the Chat Stream Ingestor (C2): it drains an
// opaque chat iterator for one video id, buffers and batch-persists
// messages with crash-safe backup, and exposes a liveness heartbeat the
// Supervisor's watchdog polls.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/GallonShih/hermes/pkg/backup"
	"github.com/GallonShih/hermes/pkg/chatsource"
	"github.com/GallonShih/hermes/pkg/models"
)

// State is the Ingestor's internal state (spec §4.2 state machine).
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFlushing State = "flushing"
	StateStopping State = "stopping"
)

// defaultFlushSize and defaultFlushInterval are the buffer triggers
// (spec §4.2, "e.g., 100" / "e.g., 5 s").
const (
	defaultFlushSize     = 100
	defaultFlushInterval = 5 * time.Second
)

// ChatStore is the subset of store.Store the Ingestor needs.
type ChatStore interface {
	BatchUpsertChat(ctx context.Context, msgs []*models.ChatMessage) (failed []string, err error)
}

// Config configures one Ingestor instance.
type Config struct {
	VideoID          string
	BackupDir        string
	FlushSize        int
	FlushInterval    time.Duration
	RetryMaxAttempts int
	RetryBaseBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlushSize <= 0 {
		c.FlushSize = defaultFlushSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = 3
	}
	if c.RetryBaseBackoff <= 0 {
		c.RetryBaseBackoff = time.Second
	}
	return c
}

// Ingestor consumes a chatsource.Iterator for one video id.
type Ingestor struct {
	cfg   Config
	store ChatStore
	iter  chatsource.Iterator

	state        atomic.Value // State
	lastActivity atomic.Int64 // unix nanos
	duplicates   atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an Ingestor bound to one video id's iterator.
func New(cfg Config, store ChatStore, iter chatsource.Iterator) *Ingestor {
	cfg = cfg.withDefaults()
	ing := &Ingestor{
		cfg:    cfg,
		store:  store,
		iter:   iter,
		stopCh: make(chan struct{}),
	}
	ing.state.Store(StateIdle)
	ing.lastActivity.Store(time.Now().UnixNano())
	return ing
}

// State returns the Ingestor's current state.
func (ing *Ingestor) State() State {
	return ing.state.Load().(State)
}

// LastActivityTime returns the last time a message was received from
// the iterator; it is updated on every received message. The value is
// stored as wall-clock Unix nanoseconds, so the returned time carries no
// monotonic clock reading.
func (ing *Ingestor) LastActivityTime() time.Time {
	return time.Unix(0, ing.lastActivity.Load())
}

// DuplicateCount returns the Ingestor's duplicate counter. BatchUpsertChat
// reports only failed message ids, not duplicates, so nothing increments
// the counter and DuplicateCount always returns 0.
func (ing *Ingestor) DuplicateCount() int64 {
	return ing.duplicates.Load()
}

// Stop signals Run to flush and exit. Idempotent (spec §4.2: "stop():
// idempotent").
func (ing *Ingestor) Stop() {
	ing.stopOnce.Do(func() {
		ing.state.Store(StateStopping)
		close(ing.stopCh)
	})
}

// iterResult is one outcome of nextWithRetry, delivered over a channel so
// Run's select can preempt a stalled iterator with a pending flush
// trigger instead of blocking on it between loop iterations.
type iterResult struct {
	action *chatsource.RawAction
	err    error
}

// Run blocks, draining the iterator until Stop is called, the iterator
// is exhausted, or ctx is cancelled. It implements the buffer/flush loop
// described in spec §4.2.
//
// The iterator is drained on its own goroutine so that a slow or stalled
// Next() call (bounded only by the watchdog, per spec §9's "hence the
// watchdog is required" note) can never delay the ticker-triggered flush
// below: both ticker.C and the iterator's results arrive on channels the
// same select statement watches.
func (ing *Ingestor) Run(ctx context.Context) error {
	ing.state.Store(StateRunning)
	defer ing.state.Store(StateIdle)

	buf := make([]*models.ChatMessage, 0, ing.cfg.FlushSize)
	ticker := time.NewTicker(ing.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		ing.state.Store(StateFlushing)
		defer ing.state.Store(StateRunning)

		toFlush := buf
		buf = make([]*models.ChatMessage, 0, ing.cfg.FlushSize)
		return ing.flushBatch(ctx, toFlush)
	}

	pullCtx, cancelPull := context.WithCancel(ctx)
	defer cancelPull()

	resultCh := make(chan iterResult)
	go func() {
		for {
			action, err := ing.nextWithRetry(pullCtx)
			select {
			case resultCh <- iterResult{action: action, err: err}:
			case <-pullCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ing.stopCh:
			return flush()
		case <-ctx.Done():
			_ = flush()
			return ctx.Err()
		case <-ticker.C:
			if err := flush(); err != nil {
				slog.Error("ingestor: periodic flush failed", "video_id", ing.cfg.VideoID, "error", err)
			}
		case res := <-resultCh:
			if res.err != nil {
				if errors.Is(res.err, chatsource.ErrStreamEnded) {
					return flush()
				}
				if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					_ = flush()
					return res.err
				}
				slog.Error("ingestor: iterator exhausted retries", "video_id", ing.cfg.VideoID, "error", res.err)
				_ = flush()
				return res.err
			}

			msg := toChatMessage(ing.cfg.VideoID, res.action)
			buf = append(buf, msg)
			ing.lastActivity.Store(time.Now().UnixNano())

			if len(buf) >= ing.cfg.FlushSize {
				if err := flush(); err != nil {
					slog.Error("ingestor: size-triggered flush failed", "video_id", ing.cfg.VideoID, "error", err)
				}
			}
		}
	}
}

// nextWithRetry wraps iter.Next with exponential backoff for transient
// errors (spec §4.4 algorithm 1: "a retry loop with exponential backoff
// base · 2^attempt is used for transient iterator errors").
func (ing *Ingestor) nextWithRetry(ctx context.Context) (*chatsource.RawAction, error) {
	var action *chatsource.RawAction

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ing.cfg.RetryBaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	bctx := backoff.WithContext(backoff.WithMaxRetries(b, uint64(ing.cfg.RetryMaxAttempts)), ctx)

	err := backoff.Retry(func() error {
		a, err := ing.iter.Next(ctx)
		if err != nil {
			if errors.Is(err, chatsource.ErrStreamEnded) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		action = a
		return nil
	}, bctx)

	return action, err
}

// flushBatch writes the crash-backup file, attempts the batch upsert,
// and reconciles the backup file with the outcome (spec §4.2).
func (ing *Ingestor) flushBatch(ctx context.Context, batch []*models.ChatMessage) error {
	path, err := backup.Write(ing.cfg.BackupDir, ing.cfg.VideoID, batch)
	if err != nil {
		return fmt.Errorf("ingestor: write backup: %w", err)
	}

	failedIDs, err := ing.store.BatchUpsertChat(ctx, batch)
	if len(failedIDs) == 0 && err == nil {
		return backup.Delete(path)
	}

	if len(failedIDs) == len(batch) {
		slog.Error("ingestor: batch upsert failed entirely, backup left intact",
			"video_id", ing.cfg.VideoID, "path", path, "error", err)
		return err
	}

	failedSet := make(map[string]bool, len(failedIDs))
	for _, id := range failedIDs {
		failedSet[id] = true
	}
	var stillFailed []*models.ChatMessage
	for _, m := range batch {
		if failedSet[m.MessageID] {
			stillFailed = append(stillFailed, m)
		}
	}
	slog.Warn("ingestor: partial batch failure, rewriting backup",
		"video_id", ing.cfg.VideoID, "failed", len(stillFailed), "total", len(batch))
	return backup.Rewrite(path, stillFailed)
}

func toChatMessage(videoID string, a *chatsource.RawAction) *models.ChatMessage {
	m := &models.ChatMessage{
		MessageID:     a.MessageID,
		LiveStreamID:  videoID,
		AuthorID:      a.AuthorID,
		AuthorName:    a.AuthorName,
		MessageType:   models.MessageType(a.MessageType),
		Message:       a.Message,
		TimestampUsec: a.TimestampUsec,
		PublishedAt:   time.UnixMicro(a.TimestampUsec),
	}
	for _, e := range a.Emotes {
		m.Emotes = append(m.Emotes, models.Emote{Name: e.Name, URL: e.URL})
	}
	if a.Money != nil {
		m.RawData.Money = &models.Money{Currency: a.Money.Currency, Amount: a.Money.Amount}
	}
	for _, b := range a.Badges {
		badge := models.Badge{Title: b.Title}
		for _, icon := range b.Icons {
			badge.Icons = append(badge.Icons, models.BadgeIcon{ID: icon.ID, URL: icon.URL})
		}
		m.RawData.Badges = append(m.RawData.Badges, badge)
	}
	return m
}
