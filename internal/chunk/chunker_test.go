package chunk

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinqa/retriever/internal/source"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, Split("", 1200, 200))
	assert.Nil(t, Split("   \n\n  ", 1200, 200))
}

func TestSplitShortTextSinglePassage(t *testing.T) {
	text := "Patient seen today for follow-up. Doing well."
	passages := Split(text, 1200, 200)
	require.Len(t, passages, 1)
	assert.Equal(t, text, passages[0])
}

func TestSplitRespectsTargetSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Paragraph %d with enough words to take up meaningful space in the passage.\n\n", i)
	}

	passages := Split(sb.String(), 300, 0)
	require.NotEmpty(t, passages)
	for _, p := range passages {
		assert.LessOrEqual(t, len(p), 300, "passage exceeds target size: %q", p)
	}
}

func TestSplitPreservesParagraphOrder(t *testing.T) {
	paragraphs := []string{
		"Alpha paragraph about the first visit.",
		"Bravo paragraph about medication changes.",
		"Charlie paragraph about discharge planning.",
		"Delta paragraph about follow-up scheduling.",
	}
	text := strings.Join(paragraphs, "\n\n")

	passages := Split(text, 80, 0)
	joined := strings.Join(passages, "\n\n")
	lastIdx := -1
	for _, para := range paragraphs {
		idx := strings.Index(joined, para)
		require.GreaterOrEqual(t, idx, 0, "paragraph dropped: %q", para)
		assert.Greater(t, idx, lastIdx, "paragraph out of order: %q", para)
		lastIdx = idx
	}
}

func TestSplitOverlapCarriesPriorSentence(t *testing.T) {
	text := "First fact about the patient history. Second fact continues here.\n\n" +
		"Third paragraph starts a new topic entirely and runs long enough to land in its own passage."

	passages := Split(text, 70, 60)
	require.GreaterOrEqual(t, len(passages), 2)
	assert.Contains(t, passages[1], "Second fact continues here.")
}

func TestSplitHardSplitsOversizedSentence(t *testing.T) {
	sentence := strings.Repeat("word ", 100) // no terminal punctuation
	passages := Split(sentence, 120, 0)
	require.Greater(t, len(passages), 1)
	for _, p := range passages {
		assert.LessOrEqual(t, len(p), 120)
	}

	// No words lost.
	total := 0
	for _, p := range passages {
		total += len(strings.Fields(p))
	}
	assert.Equal(t, 100, total)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple boundaries",
			text: "First sentence. Second sentence. Third one.",
			want: []string{"First sentence. ", "Second sentence. ", "Third one."},
		},
		{
			name: "abbreviation does not split",
			text: "Seen by Dr. Smith today. Plan unchanged.",
			want: []string{"Seen by Dr. Smith today. ", "Plan unchanged."},
		},
		{
			name: "clinical shorthand",
			text: "Pt. reports improvement. Hx. of hypertension noted.",
			want: []string{"Pt. reports improvement. ", "Hx. of hypertension noted."},
		},
		{
			name: "single initial",
			text: "Patient John Q. Public arrived. Vitals stable.",
			want: []string{"Patient John Q. Public arrived. ", "Vitals stable."},
		},
		{
			name: "lowercase continuation is not a boundary",
			text: "Dose was 2.5 mg daily. continue as before",
			want: []string{"Dose was 2.5 mg daily. continue as before"},
		},
		{
			name: "digit starts next sentence",
			text: "Follow up in two weeks. 2 liters of fluid daily.",
			want: []string{"Follow up in two weeks. ", "2 liters of fluid daily."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitSentencesReconstructsInput(t *testing.T) {
	text := "Alpha bravo. Charlie delta! Echo foxtrot? Golf hotel.\nNew line sentence. Done."
	sentences := SplitSentences(text)
	assert.Equal(t, text, strings.Join(sentences, ""))
}

func TestDocumentAssignsStableIDs(t *testing.T) {
	rec := source.Record{
		ID:   "note-1",
		Text: strings.Repeat("Sentence one about cardiology follow-up. ", 60),
		Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	passages := Document(rec, Options{TargetSize: 400, Overlap: 100}, DefaultPolicy())
	require.Greater(t, len(passages), 1)
	for i, p := range passages {
		assert.Equal(t, fmt.Sprintf("note-1#%04d", i), p.ID)
		assert.Equal(t, "note-1", p.SourceID)
		assert.Equal(t, i, p.Seq)
		assert.Equal(t, rec.Date, p.Date)
	}
}

func TestDocumentEmptyTextYieldsNoPassages(t *testing.T) {
	rec := source.Record{ID: "note-2", Text: "   "}
	assert.Empty(t, Document(rec, DefaultOptions(), DefaultPolicy()))
}

func TestDocumentTagsSectionsAndTabular(t *testing.T) {
	rec := source.Record{
		ID: "note-3",
		Text: "Assessment and Plan:\nContinue current regimen.\n\n" +
			"Medications:\n- lisinopril 10mg\n- metformin 500mg",
	}

	passages := Document(rec, Options{TargetSize: 60, Overlap: 0}, DefaultPolicy())
	require.Len(t, passages, 2)
	assert.Equal(t, SectionAssessmentPlan, passages[0].Section)
	assert.False(t, passages[0].Tabular)
	assert.Equal(t, SectionNone, passages[1].Section)
	assert.True(t, passages[1].Tabular)
}
