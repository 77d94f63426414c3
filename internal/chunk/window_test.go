package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowEmpty(t *testing.T) {
	assert.Nil(t, SlidingWindow("", 100, 80))
}

func TestSlidingWindowOffsets(t *testing.T) {
	text := strings.Repeat("a", 250)
	windows := SlidingWindow(text, 100, 80)

	require.Len(t, windows, 3)
	assert.Equal(t, 0, windows[0].Offset)
	assert.Equal(t, 80, windows[1].Offset)
	assert.Equal(t, 160, windows[2].Offset)
	assert.Len(t, windows[0].Text, 100)
	assert.Len(t, windows[2].Text, 90) // truncated final window
}

func TestSlidingWindowCoversWholeText(t *testing.T) {
	text := strings.Repeat("xyz", 137)
	windows := SlidingWindow(text, 100, 100) // step == window, no overlap

	var sb strings.Builder
	for _, w := range windows {
		sb.WriteString(w.Text)
	}
	assert.Equal(t, text, sb.String())
}

func TestSlidingWindowDefaultPage(t *testing.T) {
	windows := SlidingWindow(strings.Repeat("b", 50), 100, 80)
	require.Len(t, windows, 1)
	assert.Equal(t, 1, windows[0].Page)
}

func TestSlidingWindowFormFeedIncrementsPage(t *testing.T) {
	text := strings.Repeat("a", 90) + "\f" + strings.Repeat("b", 90)
	windows := SlidingWindow(text, 50, 50)

	require.GreaterOrEqual(t, len(windows), 3)
	assert.Equal(t, 1, windows[0].Page)
	last := windows[len(windows)-1]
	assert.Equal(t, 2, last.Page)
}

func TestSlidingWindowExplicitPageMarkers(t *testing.T) {
	text := strings.Repeat("a", 60) +
		"Page 4 of 10\n" + strings.Repeat("b", 60) +
		"\n## Page 7\n" + strings.Repeat("c", 60)
	windows := SlidingWindow(text, 40, 40)

	require.NotEmpty(t, windows)
	assert.Equal(t, 1, windows[0].Page)
	last := windows[len(windows)-1]
	assert.Equal(t, 7, last.Page)

	sawFour := false
	for _, w := range windows {
		if w.Page == 4 {
			sawFour = true
		}
	}
	assert.True(t, sawFour, "expected a window on page 4")
}
