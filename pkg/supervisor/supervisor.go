// Package supervisor implements the Supervisor (C4): it owns the Chat
// Stream Ingestor and Stats Poller as supervised workers, watches for
// operator-driven URL changes, restarts a stalled ingestor, and
// coordinates graceful shutdown.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/GallonShih/hermes/pkg/chatsource"
	"github.com/GallonShih/hermes/pkg/ingest"
	"github.com/GallonShih/hermes/pkg/models"
	"github.com/GallonShih/hermes/pkg/statspoller"
)

// restart-with-backoff durations (spec §4.4 algorithm 1).
const (
	normalCompletionBackoff = 30 * time.Second
	exceptionBackoff        = 60 * time.Second
)

// SettingsStore is the subset of store.Store the URL monitor needs.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Config configures the Supervisor.
type Config struct {
	InitialVideoID            string
	BackupDir                 string
	PollInterval              time.Duration
	URLCheckInterval          time.Duration
	ChatWatchdogCheckInterval time.Duration
	ChatWatchdogTimeout       time.Duration
	IngestRetryMaxAttempts    int
	IngestRetryBaseBackoff    time.Duration
}

// Supervisor owns ChatIngestor, StatsPoller, the URL-change monitor and
// the chat watchdog as peer long-lived workers (spec §4.4).
type Supervisor struct {
	cfg            Config
	settings       SettingsStore
	chatStore      ingest.ChatStore
	statsStore     statspoller.StatsStore
	newIterator    chatsource.NewFunc
	fetcher        statspoller.VideoFetcher

	restartMu    sync.Mutex // guards videoID, ingestor, poller during hot-swap
	videoID      string
	ingestor     *ingest.Ingestor
	poller       *statspoller.Poller
	pollerCancel context.CancelFunc // stops the current poller's Run independently of the top-level ctx

	wg sync.WaitGroup
}

// New constructs a Supervisor bound to an initial video id.
func New(cfg Config, settings SettingsStore, chatStore ingest.ChatStore, statsStore statspoller.StatsStore,
	newIterator chatsource.NewFunc, fetcher statspoller.VideoFetcher) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		settings:    settings,
		chatStore:   chatStore,
		statsStore:  statsStore,
		newIterator: newIterator,
		fetcher:     fetcher,
		videoID:     cfg.InitialVideoID,
	}
}

// Run starts all four workers and blocks until ctx is cancelled (spec
// §4.4 algorithm 4, shutdown). Callers typically cancel ctx from a
// SIGINT/SIGTERM handler.
func (s *Supervisor) Run(ctx context.Context) error {
	s.restartMu.Lock()
	s.startIngestorLocked(ctx)
	s.startPollerLocked(ctx)
	s.restartMu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.runURLMonitor(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.runChatWatchdog(ctx)
	}()

	<-ctx.Done()
	slog.Info("supervisor: shutdown signal received, stopping workers")

	s.restartMu.Lock()
	if s.ingestor != nil {
		s.ingestor.Stop()
	}
	s.restartMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		slog.Warn("supervisor: shutdown join timed out after 10s")
	}

	return ctx.Err()
}

// startIngestorLocked constructs and launches a new Ingestor bound to
// s.videoID. Caller must hold restartMu.
func (s *Supervisor) startIngestorLocked(ctx context.Context) {
	iter, err := s.newIterator(ctx, s.videoID)
	if err != nil {
		slog.Error("supervisor: failed to construct chat iterator", "video_id", s.videoID, "error", err)
		return
	}

	ing := ingest.New(ingest.Config{
		VideoID:          s.videoID,
		BackupDir:         s.cfg.BackupDir,
		RetryMaxAttempts:  s.cfg.IngestRetryMaxAttempts,
		RetryBaseBackoff:  s.cfg.IngestRetryBaseBackoff,
	}, s.chatStore, iter)
	s.ingestor = ing

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.superviseIngestor(ctx, ing)
	}()
}

// startPollerLocked constructs and launches a new Poller bound to
// s.videoID, on its own cancellable context derived from ctx. Caller
// must hold restartMu.
func (s *Supervisor) startPollerLocked(ctx context.Context) {
	pollerCtx, cancel := context.WithCancel(ctx)
	p := statspoller.New(s.videoID, s.cfg.PollInterval, s.fetcher, s.statsStore)
	s.poller = p
	s.pollerCancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervisePoller(ctx, pollerCtx, p)
	}()
}

// superviseIngestor implements restart-with-backoff for C2 (spec §4.4
// algorithm 1): 30s on normal completion, 60s on exception.
func (s *Supervisor) superviseIngestor(ctx context.Context, ing *ingest.Ingestor) {
	for {
		err := ing.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			slog.Info("supervisor: chat ingestor completed normally, restarting", "wait", normalCompletionBackoff)
			if !sleepOrDone(ctx, normalCompletionBackoff) {
				return
			}
		} else {
			slog.Error("supervisor: chat ingestor exited with error, restarting", "wait", exceptionBackoff, "error", err)
			if !sleepOrDone(ctx, exceptionBackoff) {
				return
			}
		}

		s.restartMu.Lock()
		if s.ingestor != ing {
			// a URL-change or watchdog restart already replaced this instance.
			s.restartMu.Unlock()
			return
		}
		iter, ierr := s.newIterator(ctx, s.videoID)
		if ierr != nil {
			slog.Error("supervisor: failed to reconstruct chat iterator", "error", ierr)
			s.restartMu.Unlock()
			if !sleepOrDone(ctx, exceptionBackoff) {
				return
			}
			continue
		}
		ing = ingest.New(ingest.Config{
			VideoID:          s.videoID,
			BackupDir:         s.cfg.BackupDir,
			RetryMaxAttempts:  s.cfg.IngestRetryMaxAttempts,
			RetryBaseBackoff:  s.cfg.IngestRetryBaseBackoff,
		}, s.chatStore, iter)
		s.ingestor = ing
		s.restartMu.Unlock()
	}
}

// supervisePoller implements restart-with-backoff for C3. pollerCtx is
// this poller instance's own cancellable context (distinct from the
// top-level ctx) so a hot-swap can stop exactly this instance via
// s.pollerCancel without tearing down the whole Supervisor.
func (s *Supervisor) supervisePoller(ctx, pollerCtx context.Context, p *statspoller.Poller) {
	for {
		err := p.Run(pollerCtx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// pollerCtx was cancelled independently of ctx: a hot-swap
			// already replaced this instance, so there's nothing to restart.
			return
		}
		slog.Error("supervisor: stats poller exited, restarting", "wait", exceptionBackoff, "error", err)
		if !sleepOrDone(ctx, exceptionBackoff) {
			return
		}

		s.restartMu.Lock()
		if s.poller != p {
			s.restartMu.Unlock()
			return
		}
		pollerCtx, s.pollerCancel = context.WithCancel(ctx)
		p = statspoller.New(s.videoID, s.cfg.PollInterval, s.fetcher, s.statsStore)
		s.poller = p
		s.restartMu.Unlock()
	}
}

// runURLMonitor implements spec §4.4 algorithm 2: poll
// setting[youtube_url], and on a valid change, swap both workers onto
// the new video id.
func (s *Supervisor) runURLMonitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.URLCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkURLChange(ctx)
		}
	}
}

func (s *Supervisor) checkURLChange(ctx context.Context) {
	raw, err := s.settings.GetSetting(ctx, models.SettingYouTubeURL)
	if err != nil {
		return
	}
	newVideoID, err := chatsource.ExtractVideoID(raw)
	if err != nil {
		slog.Warn("supervisor: ignoring unparseable youtube_url setting", "value", raw, "error", err)
		return
	}

	s.restartMu.Lock()
	defer s.restartMu.Unlock()
	if newVideoID == s.videoID {
		return
	}

	slog.Info("supervisor: youtube_url changed, hot-swapping workers", "old_video_id", s.videoID, "new_video_id", newVideoID)
	if s.ingestor != nil {
		s.ingestor.Stop()
	}
	if s.pollerCancel != nil {
		s.pollerCancel()
	}
	s.videoID = newVideoID
	s.startIngestorLocked(ctx)
	s.startPollerLocked(ctx)
}

// runChatWatchdog implements spec §4.4 algorithm 3: force-restart C2
// when its heartbeat goes stale. It never touches C3.
func (s *Supervisor) runChatWatchdog(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ChatWatchdogCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkWatchdog(ctx)
		}
	}
}

func (s *Supervisor) checkWatchdog(ctx context.Context) {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	if s.ingestor == nil {
		return
	}
	age := time.Since(s.ingestor.LastActivityTime())
	if age <= s.cfg.ChatWatchdogTimeout {
		return
	}

	slog.Warn("supervisor: chat watchdog timeout, forcing ingestor restart", "age", age, "video_id", s.videoID)
	s.ingestor.Stop()
	time.Sleep(100 * time.Millisecond)
	s.startIngestorLocked(ctx)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
