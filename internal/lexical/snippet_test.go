package lexical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetCentersOnFirstTerm(t *testing.T) {
	text := strings.Repeat("filler words here ", 20) +
		"the cardiac rehab program started" +
		strings.Repeat(" trailing words", 20)

	snippet := Snippet(text, []string{"cardiac"}, 60)
	assert.Contains(t, snippet, "cardiac")
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, len(snippet), 60+6)
}

func TestSnippetCaseInsensitive(t *testing.T) {
	snippet := Snippet("Started CARDIAC rehab today.", []string{"cardiac"}, 160)
	assert.Contains(t, snippet, "CARDIAC")
}

func TestSnippetShortTextNoEllipses(t *testing.T) {
	text := "Cardiac rehab going well."
	snippet := Snippet(text, []string{"rehab"}, 160)
	assert.Equal(t, text, snippet)
}

func TestSnippetFallbackFirstSentence(t *testing.T) {
	text := "Opening sentence of the note. Second sentence continues."
	snippet := Snippet(text, []string{"absent"}, 160)
	assert.Equal(t, "Opening sentence of the note.", snippet)
}

func TestSnippetEmptyText(t *testing.T) {
	assert.Equal(t, "", Snippet("", []string{"term"}, 160))
}
