package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/clinqa/retriever/internal/source"
)

// paragraphSep matches blank-line paragraph boundaries.
var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// abbreviations that should not terminate a sentence when followed by a
// period. Single-letter initials are handled separately.
var abbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {},
	"jr": {}, "sr": {}, "st": {}, "vs": {}, "no": {},
	"approx": {}, "dept": {}, "fig": {}, "al": {}, "pt": {},
	"hx": {}, "dx": {}, "tx": {}, "rx": {}, "wk": {}, "mo": {},
}

// Split chunks text into passages of at most targetSize characters.
//
// Paragraphs are packed whole when they fit. An oversized paragraph is
// split on sentence boundaries; an oversized sentence is hard-split on the
// nearest preceding space or comma. Each passage after the first is
// prefixed with a sentence-aligned tail of its predecessor, up to overlap
// characters, so context survives passage boundaries.
//
// Empty input yields an empty list. Split never fails on malformed text;
// the worst case is a single oversized passage.
func Split(text string, targetSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	paragraphs := splitParagraphs(text)

	var passages []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			passages = append(passages, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > targetSize {
			flush()
			passages = append(passages, splitLongParagraph(para, targetSize)...)
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(para) > targetSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	if overlap <= 0 || len(passages) < 2 {
		return passages
	}

	// Prefix each passage with a sentence-aligned tail of its predecessor.
	out := make([]string, len(passages))
	out[0] = passages[0]
	for i := 1; i < len(passages); i++ {
		tail := sentenceTail(passages[i-1], overlap)
		if tail != "" {
			out[i] = tail + "\n" + passages[i]
		} else {
			out[i] = passages[i]
		}
	}
	return out
}

// splitParagraphs splits on blank-line boundaries, dropping empty entries.
func splitParagraphs(text string) []string {
	parts := paragraphSep.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// splitLongParagraph packs sentences into passages of at most targetSize.
func splitLongParagraph(para string, targetSize int) []string {
	sentences := SplitSentences(para)

	var passages []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			passages = append(passages, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > targetSize {
			flush()
			passages = append(passages, hardSplit(sentence, targetSize)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(sentence) > targetSize {
			flush()
		}
		current.WriteString(sentence)
	}
	flush()

	return passages
}

// hardSplit cuts an oversized sentence on the nearest space or comma before
// the size limit, or mid-word when neither exists.
func hardSplit(sentence string, targetSize int) []string {
	var pieces []string
	rest := sentence
	for len(rest) > targetSize {
		cut := -1
		for i := targetSize; i > 0; i-- {
			if rest[i] == ' ' || rest[i] == ',' {
				cut = i + 1
				break
			}
		}
		if cut <= 0 {
			cut = targetSize
		}
		pieces = append(pieces, strings.TrimSpace(rest[:cut]))
		rest = strings.TrimLeft(rest[cut:], " ")
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}

// SplitSentences splits text on heuristic sentence boundaries: terminal
// punctuation followed by whitespace and an uppercase or digit start.
// Abbreviations like "Dr." and single initials do not end a sentence.
// Each returned sentence retains its trailing whitespace so that
// concatenating the result reproduces the input.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}

		// Consume trailing closers attached to the punctuation.
		j := i + 1
		for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?' ||
			text[j] == '"' || text[j] == '\'' || text[j] == ')') {
			j++
		}
		if j >= len(text) {
			break
		}
		if text[j] != ' ' && text[j] != '\t' && text[j] != '\n' && text[j] != '\r' {
			continue
		}

		// The boundary only counts when the next sentence starts with an
		// uppercase letter or a digit.
		k := j
		for k < len(text) && (text[k] == ' ' || text[k] == '\t' || text[k] == '\n' || text[k] == '\r') {
			k++
		}
		if k >= len(text) {
			break
		}
		next := rune(text[k])
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) {
			continue
		}

		if c == '.' && isAbbreviation(text[start:i]) {
			continue
		}

		sentences = append(sentences, text[start:k])
		start = k
		i = k - 1
	}

	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// isAbbreviation reports whether the text ends in a token that makes a
// following period non-terminal.
func isAbbreviation(prefix string) bool {
	end := len(prefix)
	begin := end
	for begin > 0 {
		r := prefix[begin-1]
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			begin--
			continue
		}
		break
	}
	token := strings.ToLower(prefix[begin:end])
	if token == "" {
		return false
	}
	if len(token) == 1 {
		// Single initial, e.g. "John Q. Public" or "e.g.".
		return true
	}
	_, ok := abbreviations[token]
	return ok
}

// sentenceTail returns whole sentences from the end of a passage totaling
// at most maxLen characters, never cutting mid-sentence. Returns "" when
// even the final sentence exceeds maxLen.
func sentenceTail(passage string, maxLen int) string {
	sentences := SplitSentences(passage)
	if len(sentences) == 0 {
		return ""
	}

	total := 0
	begin := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		n := len(sentences[i])
		if total+n > maxLen {
			break
		}
		total += n
		begin = i
	}
	if begin == len(sentences) {
		return ""
	}
	return strings.TrimSpace(strings.Join(sentences[begin:], ""))
}

// Document runs the full chunking pipeline for one source record:
// boilerplate removal, passage splitting, and section/tabular tagging.
// Malformed or empty text yields an empty passage list, never an error.
func Document(rec source.Record, opts Options, policy Policy) []*Passage {
	opts = opts.withDefaults()

	clean := policy.StripBoilerplate(rec.Text)
	parts := Split(clean, opts.TargetSize, opts.Overlap)
	if len(parts) == 0 {
		return nil
	}

	passages := make([]*Passage, 0, len(parts))
	for i, part := range parts {
		passages = append(passages, &Passage{
			ID:       fmt.Sprintf("%s#%04d", rec.ID, i),
			SourceID: rec.ID,
			Text:     part,
			Section:  policy.DetectSection(part),
			Date:     rec.Date,
			Tabular:  policy.IsTabular(part),
			Seq:      i,
		})
	}
	return passages
}
