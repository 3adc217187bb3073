package etl

import "strings"

// replaceEntry is one ordered replace-dictionary rule; Order preserves
// insertion order for tie-breaking (spec §4.5.1 step 3: "ties broken by
// insertion order in replace_map").
type replaceEntry struct {
	Source string
	Target string
	Order  int
}

// applyReplaceDictionary performs longest-match-first greedy substitution:
// at every position, among all dictionary keys matching starting there,
// the longest wins; a tie is broken by insertion order.
func applyReplaceDictionary(s string, entries []replaceEntry) string {
	if len(entries) == 0 {
		return s
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(runes); {
		best := -1
		bestLen := 0
		bestOrder := 0
		for idx, e := range entries {
			src := []rune(e.Source)
			if len(src) == 0 || i+len(src) > len(runes) {
				continue
			}
			if string(runes[i:i+len(src)]) != e.Source {
				continue
			}
			if len(src) > bestLen || (len(src) == bestLen && best >= 0 && e.Order < bestOrder) {
				best = idx
				bestLen = len(src)
				bestOrder = e.Order
			}
		}
		if best == -1 {
			b.WriteRune(runes[i])
			i++
			continue
		}
		b.WriteString(entries[best].Target)
		i += bestLen
	}

	return b.String()
}

// stripEmoteTokens removes every occurrence of each emote's Name from s
// (spec §4.5.1 step 4, second half).
func stripEmoteTokens(s string, emoteNames []string) string {
	for _, name := range emoteNames {
		if name == "" {
			continue
		}
		s = strings.ReplaceAll(s, name, "")
	}
	return s
}
