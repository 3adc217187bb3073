package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanyiwu/gojieba"
)

// Tokenizer wraps gojieba with a per-batch user dictionary built from the
// currently active special_words (spec §4.5.1 step 6, §9 design note
// "Tokenizer"). A fresh instance is built once per normalization batch
// and closed when the batch finishes, since gojieba instances hold C++
// resources that must be freed explicitly.
type Tokenizer struct {
	jieba       *gojieba.Jieba
	meaningless map[string]bool
	userDictPath string
}

// NewTokenizer builds a tokenizer for one batch: special words become a
// temporary user dictionary file so gojieba prefers them as whole tokens;
// meaningless words are kept separately and filtered post-segmentation
// (spec §4.5.1 step 6: "drop any token in meaningless_words" is a
// token-level membership test, not gojieba's own stop-word mechanism).
func NewTokenizer(specialWords []string, meaninglessWords []string) (*Tokenizer, error) {
	meaningless := make(map[string]bool, len(meaninglessWords))
	for _, w := range meaninglessWords {
		meaningless[w] = true
	}

	userDictPath, err := writeUserDict(specialWords)
	if err != nil {
		return nil, fmt.Errorf("etl: write user dictionary: %w", err)
	}

	jieba := gojieba.NewJieba(
		gojieba.DICT_PATH,
		gojieba.HMM_PATH,
		userDictPath,
		gojieba.IDF_PATH,
		gojieba.STOP_WORDS_PATH,
	)

	return &Tokenizer{jieba: jieba, meaningless: meaningless, userDictPath: userDictPath}, nil
}

// Close releases the underlying gojieba instance and removes the
// temporary user-dictionary file.
func (t *Tokenizer) Close() {
	if t.jieba != nil {
		t.jieba.Free()
	}
	if t.userDictPath != "" {
		_ = os.Remove(t.userDictPath)
	}
}

// Tokenize segments s, preserving order and repetition, dropping any
// token present in meaningless_words.
func (t *Tokenizer) Tokenize(s string) []string {
	words := t.jieba.Cut(s, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		trimmed := strings.TrimSpace(w)
		if trimmed == "" {
			continue
		}
		if t.meaningless[trimmed] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// writeUserDict materializes special_words as a gojieba user-dictionary
// file: one word per line, each weighted as a whole-word preference.
func writeUserDict(words []string) (string, error) {
	f, err := os.CreateTemp("", "hermes-userdict-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s 100 n\n", w); err != nil {
			_ = os.Remove(f.Name())
			return "", err
		}
	}

	return filepath.Clean(f.Name()), nil
}
