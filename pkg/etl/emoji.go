package etl

// emojiRanges covers the Unicode blocks that carry the vast majority of
// emoji seen in YouTube chat text. No example repo in the reference pack
// vendors an emoji-detection library, so this table is hand-rolled
// (documented in the grounding ledger as the one piece with no upstream
// dependency to follow).
var emojiRanges = [][2]rune{
	{0x1F300, 0x1F5FF}, // misc symbols and pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F700, 0x1F77F}, // alchemical symbols
	{0x1F780, 0x1F7FF}, // geometric shapes extended
	{0x1F800, 0x1F8FF}, // supplemental arrows-c
	{0x1F900, 0x1F9FF}, // supplemental symbols and pictographs
	{0x1FA00, 0x1FA6F}, // chess symbols
	{0x1FA70, 0x1FAFF}, // symbols and pictographs extended-a
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
	{0x2300, 0x23FF},   // misc technical (includes ⌚⌛)
	{0x2B00, 0x2BFF},   // misc symbols and arrows (includes ⭐)
	{0xFE00, 0xFE0F},   // variation selectors
	{0x1F1E6, 0x1F1FF}, // regional indicator symbols (flags)
}

func isEmojiRune(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// extractUnicodeEmojis returns every emoji rune in s, in order, with
// repetition preserved (spec §4.5.1 step 1).
func extractUnicodeEmojis(s string) []string {
	var out []string
	for _, r := range s {
		if isEmojiRune(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// stripEmojis removes every emoji rune from s (spec §4.5.1 step 4, first
// half).
func stripEmojis(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if isEmojiRune(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
