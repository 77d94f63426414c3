package lexical

import (
	"regexp"
	"strings"
)

// wordPattern matches lowercase word-boundary tokens.
var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// DefaultStopWords are excluded from free-text scoring. Exact/metadata
// matching (quoted phrases) bypasses tokenization and keeps them.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
	"from", "has", "have", "he", "her", "his", "in", "is", "it", "its",
	"no", "not", "of", "on", "or", "she", "that", "the", "their", "this",
	"to", "was", "were", "which", "with",
}

// Tokenize splits text into lowercase word-boundary tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenizeFiltered tokenizes and removes stop words.
func TokenizeFiltered(text string, stop map[string]struct{}) []string {
	tokens := Tokenize(text)
	if len(stop) == 0 {
		return tokens
	}
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stop[token]; !isStop {
			kept = append(kept, token)
		}
	}
	return kept
}

// BuildStopWordMap converts a stop-word list to a lookup map.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
