package etl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallonShih/hermes/pkg/models"
)

type fakeImportDictStore struct {
	replace     map[string]string
	special     []string
	meaningless []string
}

func (f *fakeImportDictStore) PutReplaceWord(ctx context.Context, w models.ReplaceWord) error {
	if f.replace == nil {
		f.replace = map[string]string{}
	}
	f.replace[w.Source] = w.Target
	return nil
}

func (f *fakeImportDictStore) InsertSpecialWordIfAbsent(ctx context.Context, w models.SpecialWord) error {
	f.special = append(f.special, w.Word)
	return nil
}

func (f *fakeImportDictStore) InsertMeaninglessWordIfAbsent(ctx context.Context, w models.MeaninglessWord) error {
	f.meaningless = append(f.meaningless, w.Word)
	return nil
}

func writeJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestDictImportJob_Run_ImportsAllThreeFiles(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, ReplaceWordsFile, map[string]string{"甄嬛": "甄環"})
	writeJSON(t, dir, SpecialWordsFile, []string{"87"})
	writeJSON(t, dir, MeaninglessWordsFile, []string{"呃", "嗯"})

	st := &fakeImportDictStore{}
	job := &DictImportJob{Store: st, Dir: dir}

	processed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, processed)
	assert.Equal(t, "甄環", st.replace["甄嬛"])
	assert.Equal(t, []string{"87"}, st.special)
	assert.Equal(t, []string{"呃", "嗯"}, st.meaningless)
}

func TestDictImportJob_Run_MissingFilesAreTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	st := &fakeImportDictStore{}
	job := &DictImportJob{Store: st, Dir: dir}

	processed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}
