package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

func sampleMessages() []*models.ChatMessage {
	return []*models.ChatMessage{
		{MessageID: "m1", LiveStreamID: "v1", Message: "hi", PublishedAt: time.Now()},
		{MessageID: "m2", LiveStreamID: "v1", Message: "there", PublishedAt: time.Now()},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "v1", sampleMessages())
	require.NoError(t, err)

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].MessageID)
	assert.Equal(t, "v1", VideoIDFromPath(path))
}

func TestRewriteThenDelete(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "v1", sampleMessages())
	require.NoError(t, err)

	require.NoError(t, Rewrite(path, sampleMessages()[:1]))
	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, Delete(path))
	require.NoError(t, Delete(path)) // idempotent
}

func TestListRoot(t *testing.T) {
	root := t.TempDir()
	_, err := Write(root, "v1", sampleMessages())
	require.NoError(t, err)
	_, err = Write(root, "v2", sampleMessages())
	require.NoError(t, err)

	byStream, err := ListRoot(root)
	require.NoError(t, err)
	assert.Len(t, byStream, 2)
	assert.Len(t, byStream["v1"], 1)
	assert.Len(t, byStream["v2"], 1)
}

type fakeChatStore struct {
	failIDs map[string]bool
}

func (f *fakeChatStore) BatchUpsertChat(ctx context.Context, msgs []*models.ChatMessage) ([]string, error) {
	var failed []string
	for _, m := range msgs {
		if f.failIDs[m.MessageID] {
			failed = append(failed, m.MessageID)
		}
	}
	if len(failed) > 0 {
		return failed, assert.AnError
	}
	return nil, nil
}

func TestImportFile_FullSuccessDeletesByDefaultFlag(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "v1", sampleMessages())
	require.NoError(t, err)

	store := &fakeChatStore{}
	res, err := ImportFile(context.Background(), store, path, true)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, 0, res.Failed)
}

func TestImportFile_PartialFailureRewritesOnlyFailed(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "v1", sampleMessages())
	require.NoError(t, err)

	store := &fakeChatStore{failIDs: map[string]bool{"m2": true}}
	res, err := ImportFile(context.Background(), store, path, true)
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, 1, res.Failed)

	remaining, err := Read(path)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "m2", remaining[0].MessageID)
}

func TestImportFile_EmptyFileIsDeleted(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, "v1", nil)
	require.NoError(t, err)

	store := &fakeChatStore{}
	res, err := ImportFile(context.Background(), store, path, false)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
}
