package statspoller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

type fakeFetcher struct {
	stream *models.LiveStream
	stats  *models.StreamStats
	err    error
	calls  int
}

func (f *fakeFetcher) FetchVideo(ctx context.Context, videoID string) (*models.LiveStream, *models.StreamStats, error) {
	f.calls++
	return f.stream, f.stats, f.err
}

type fakeStore struct {
	upsertCalls int
	appendCalls int
	upsertErr   error
	appendErr   error
}

func (f *fakeStore) UpsertLiveStream(ctx context.Context, stream *models.LiveStream) error {
	f.upsertCalls++
	return f.upsertErr
}

func (f *fakeStore) AppendStats(ctx context.Context, stats *models.StreamStats) error {
	f.appendCalls++
	return f.appendErr
}

func TestTick_HappyPath(t *testing.T) {
	fetcher := &fakeFetcher{stream: &models.LiveStream{VideoID: "v1"}, stats: &models.StreamStats{LiveStreamID: "v1"}}
	store := &fakeStore{}
	p := New("v1", time.Minute, fetcher, store)

	p.tick(context.Background())

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, store.upsertCalls)
	assert.Equal(t, 1, store.appendCalls)
}

func TestTick_FetchErrorSkipsTickWithoutCrash(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	store := &fakeStore{}
	p := New("v1", time.Minute, fetcher, store)

	p.tick(context.Background())

	assert.Equal(t, 0, store.upsertCalls)
	assert.Equal(t, 0, store.appendCalls)
}

func TestTick_UpsertErrorSkipsAppend(t *testing.T) {
	fetcher := &fakeFetcher{stream: &models.LiveStream{VideoID: "v1"}, stats: &models.StreamStats{LiveStreamID: "v1"}}
	store := &fakeStore{upsertErr: errors.New("db down")}
	p := New("v1", time.Minute, fetcher, store)

	p.tick(context.Background())

	assert.Equal(t, 1, store.upsertCalls)
	assert.Equal(t, 0, store.appendCalls)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	fetcher := &fakeFetcher{stream: &models.LiveStream{VideoID: "v1"}, stats: &models.StreamStats{LiveStreamID: "v1"}}
	store := &fakeStore{}
	p := New("v1", time.Millisecond, fetcher, store)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, fetcher.calls, 1)
}
