package etl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
	"github.com/GallonShih/hermes/pkg/store"
)

// fakeSegmenter splits on whitespace and drops tokens in meaningless.
type fakeSegmenter struct {
	meaningless map[string]bool
}

func (f *fakeSegmenter) Tokenize(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		if f.meaningless[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func TestNormalizeMessage_FullPipeline(t *testing.T) {
	m := &models.ChatMessage{
		Message: "I like apple pie 😀 :wave: 　extra　",
		Emotes:  []models.Emote{{Name: ":wave:", URL: "http://x"}},
	}
	entries := []replaceEntry{{Source: "apple pie", Target: "Food", Order: 0}}
	seg := &fakeSegmenter{meaningless: map[string]bool{"the": true}}

	text, tokens, emojis := NormalizeMessage(m, entries, seg)

	assert.Equal(t, []string{"😀"}, emojis)
	assert.Equal(t, "I like Food extra", text)
	assert.Equal(t, []string{"I", "like", "Food", "extra"}, tokens)
}

type fakeNormalizeStore struct {
	dicts    *store.ActiveDictionaries
	batches  [][]*models.ChatMessage
	marked   []string
	failMark bool
}

func (f *fakeNormalizeStore) GetActiveDictionaries(ctx context.Context) (*store.ActiveDictionaries, error) {
	return f.dicts, nil
}

func (f *fakeNormalizeStore) UnprocessedMessages(ctx context.Context, afterPublishedAt time.Time, afterID string, limit int) ([]*models.ChatMessage, error) {
	if len(f.batches) == 0 {
		return nil, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func (f *fakeNormalizeStore) MarkProcessed(ctx context.Context, tx pgx.Tx, messageID string, processedText string, tokens, unicodeEmojis []string) error {
	if f.failMark {
		return assert.AnError
	}
	f.marked = append(f.marked, messageID)
	return nil
}

func TestChatNormalizationJob_Run_ProcessesAllBatches(t *testing.T) {
	st := &fakeNormalizeStore{
		dicts: &store.ActiveDictionaries{},
		batches: [][]*models.ChatMessage{
			{
				{MessageID: "m1", Message: "hello world", PublishedAt: time.Now()},
				{MessageID: "m2", Message: "foo bar", PublishedAt: time.Now()},
			},
		},
	}
	job := &ChatNormalizationJob{Store: st}

	processed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, []string{"m1", "m2"}, st.marked)
}

func TestChatNormalizationJob_Run_NoUnprocessedReturnsZero(t *testing.T) {
	st := &fakeNormalizeStore{dicts: &store.ActiveDictionaries{}}
	job := &ChatNormalizationJob{Store: st}

	processed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}
