package lexical

import (
	"strings"
)

// DefaultSnippetWidth is the extracted snippet window in characters.
const DefaultSnippetWidth = 160

// Snippet extracts a fixed-width window centered on the first occurrence
// of any query term in the text, adding ellipses where truncated. When no
// term occurs in the text (a metadata-only match), it falls back to the
// first sentence.
func Snippet(text string, terms []string, width int) string {
	if text == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultSnippetWidth
	}

	lower := strings.ToLower(text)
	pos := -1
	termLen := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if idx := strings.Index(lower, strings.ToLower(term)); idx >= 0 && (pos < 0 || idx < pos) {
			pos = idx
			termLen = len(term)
		}
	}

	if pos < 0 {
		return firstSentence(text, width)
	}

	start := pos + termLen/2 - width/2
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(text) {
		end = len(text)
		start = end - width
		if start < 0 {
			start = 0
		}
	}

	snippet := strings.TrimSpace(text[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}
	return snippet
}

// firstSentence returns the opening sentence, truncated to maxLen.
func firstSentence(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c == '.' || c == '!' || c == '?' || c == '\n' {
			trimmed = trimmed[:i+1]
			break
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	if len(trimmed) > maxLen {
		trimmed = strings.TrimSpace(trimmed[:maxLen]) + "..."
	}
	return trimmed
}
