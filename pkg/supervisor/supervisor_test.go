package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/chatsource"
	"github.com/GallonShih/hermes/pkg/models"
)

type fakeSettingsStore struct {
	mu    sync.Mutex
	value string
}

func (f *fakeSettingsStore) GetSetting(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, nil
}

func (f *fakeSettingsStore) PutSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	return nil
}

func (f *fakeSettingsStore) set(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
}

type blockingIterator struct {
	closed atomic.Bool
}

func (b *blockingIterator) Next(ctx context.Context) (*chatsource.RawAction, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingIterator) Close() error {
	b.closed.Store(true)
	return nil
}

type fakeChatStore struct{}

func (f *fakeChatStore) BatchUpsertChat(ctx context.Context, msgs []*models.ChatMessage) ([]string, error) {
	return nil, nil
}

type fakeStatsStore struct{}

func (f *fakeStatsStore) UpsertLiveStream(ctx context.Context, stream *models.LiveStream) error {
	return nil
}
func (f *fakeStatsStore) AppendStats(ctx context.Context, stats *models.StreamStats) error { return nil }

type fakeFetcher struct{}

func (f *fakeFetcher) FetchVideo(ctx context.Context, videoID string) (*models.LiveStream, *models.StreamStats, error) {
	return &models.LiveStream{VideoID: videoID}, &models.StreamStats{LiveStreamID: videoID}, nil
}

// countingFetcher records how many times each video id was polled, so a
// test can confirm a superseded poller actually stops ticking after a
// hot-swap instead of continuing to poll the stale video id forever.
type countingFetcher struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *countingFetcher) FetchVideo(ctx context.Context, videoID string) (*models.LiveStream, *models.StreamStats, error) {
	f.mu.Lock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[videoID]++
	f.mu.Unlock()
	return &models.LiveStream{VideoID: videoID}, &models.StreamStats{LiveStreamID: videoID}, nil
}

func (f *countingFetcher) count(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[videoID]
}

func TestCheckURLChange_SwapsVideoID(t *testing.T) {
	settings := &fakeSettingsStore{value: "https://www.youtube.com/watch?v=aaaaaaaaaaa"}
	var constructedIDs []string
	var mu sync.Mutex
	newIter := func(ctx context.Context, videoID string) (chatsource.Iterator, error) {
		mu.Lock()
		constructedIDs = append(constructedIDs, videoID)
		mu.Unlock()
		return &blockingIterator{}, nil
	}

	sup := New(Config{
		InitialVideoID:            "aaaaaaaaaaa",
		PollInterval:              time.Hour,
		URLCheckInterval:          time.Hour,
		ChatWatchdogCheckInterval: time.Hour,
		ChatWatchdogTimeout:       time.Hour,
	}, settings, &fakeChatStore{}, &fakeStatsStore{}, newIter, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.restartMu.Lock()
	sup.startIngestorLocked(ctx)
	sup.startPollerLocked(ctx)
	sup.restartMu.Unlock()

	settings.set("https://youtu.be/bbbbbbbbbbb")
	sup.checkURLChange(ctx)

	sup.restartMu.Lock()
	assert.Equal(t, "bbbbbbbbbbb", sup.videoID)
	sup.restartMu.Unlock()

	mu.Lock()
	assert.Contains(t, constructedIDs, "bbbbbbbbbbb")
	mu.Unlock()
}

func TestCheckURLChange_StopsOldPoller(t *testing.T) {
	settings := &fakeSettingsStore{value: "https://www.youtube.com/watch?v=aaaaaaaaaaa"}
	newIter := func(ctx context.Context, videoID string) (chatsource.Iterator, error) {
		return &blockingIterator{}, nil
	}
	fetcher := &countingFetcher{}

	sup := New(Config{
		InitialVideoID:            "aaaaaaaaaaa",
		PollInterval:              5 * time.Millisecond,
		URLCheckInterval:          time.Hour,
		ChatWatchdogCheckInterval: time.Hour,
		ChatWatchdogTimeout:       time.Hour,
	}, settings, &fakeChatStore{}, &fakeStatsStore{}, newIter, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.restartMu.Lock()
	sup.startIngestorLocked(ctx)
	sup.startPollerLocked(ctx)
	sup.restartMu.Unlock()

	require.Eventually(t, func() bool { return fetcher.count("aaaaaaaaaaa") >= 1 }, time.Second, time.Millisecond,
		"old video id was never polled before the swap")

	settings.set("https://youtu.be/bbbbbbbbbbb")
	sup.checkURLChange(ctx)

	require.Eventually(t, func() bool { return fetcher.count("bbbbbbbbbbb") >= 1 }, time.Second, time.Millisecond,
		"new video id was never polled after the swap")

	oldCountAfterSwap := fetcher.count("aaaaaaaaaaa")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, oldCountAfterSwap, fetcher.count("aaaaaaaaaaa"),
		"superseded poller kept polling the stale video id after the hot-swap")
}

func TestCheckURLChange_IgnoresUnparseableURL(t *testing.T) {
	settings := &fakeSettingsStore{value: "https://example.com/not-youtube"}
	newIter := func(ctx context.Context, videoID string) (chatsource.Iterator, error) {
		return &blockingIterator{}, nil
	}

	sup := New(Config{InitialVideoID: "aaaaaaaaaaa"}, settings, &fakeChatStore{}, &fakeStatsStore{}, newIter, &fakeFetcher{})

	ctx := context.Background()
	sup.checkURLChange(ctx)

	assert.Equal(t, "aaaaaaaaaaa", sup.videoID)
}

func TestCheckWatchdog_RestartsStaleIngestor(t *testing.T) {
	settings := &fakeSettingsStore{}
	var constructCount atomic.Int64
	newIter := func(ctx context.Context, videoID string) (chatsource.Iterator, error) {
		constructCount.Add(1)
		return &blockingIterator{}, nil
	}

	sup := New(Config{
		InitialVideoID:      "aaaaaaaaaaa",
		ChatWatchdogTimeout: time.Millisecond,
	}, settings, &fakeChatStore{}, &fakeStatsStore{}, newIter, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.restartMu.Lock()
	sup.startIngestorLocked(ctx)
	sup.restartMu.Unlock()

	require.Equal(t, int64(1), constructCount.Load())
	time.Sleep(5 * time.Millisecond)

	sup.checkWatchdog(ctx)

	assert.Equal(t, int64(2), constructCount.Load())
}
