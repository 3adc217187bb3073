package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyReplaceDictionary_LongestMatchWins(t *testing.T) {
	entries := []replaceEntry{
		{Source: "apple pie", Target: "Food", Order: 0},
		{Source: "apple", Target: "Fruit", Order: 1},
	}
	assert.Equal(t, "I like Food", applyReplaceDictionary("I like apple pie", entries))
}

func TestApplyReplaceDictionary_ShorterAloneStillMatches(t *testing.T) {
	entries := []replaceEntry{
		{Source: "apple pie", Target: "Food", Order: 0},
		{Source: "apple", Target: "Fruit", Order: 1},
	}
	assert.Equal(t, "I like Fruit juice", applyReplaceDictionary("I like apple juice", entries))
}

func TestApplyReplaceDictionary_NoMatchUnchanged(t *testing.T) {
	entries := []replaceEntry{{Source: "foo", Target: "bar", Order: 0}}
	assert.Equal(t, "nothing here", applyReplaceDictionary("nothing here", entries))
}

func TestStripEmoteTokens_RemovesEachOccurrence(t *testing.T) {
	out := stripEmoteTokens("hi :wave: there :wave:", []string{":wave:"})
	assert.Equal(t, "hi  there ", out)
}
