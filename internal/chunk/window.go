package chunk

import (
	"regexp"
	"strconv"
	"strings"
)

// Page-break marker patterns. Explicit page numbers win over form feeds.
var (
	pageOfPattern   = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+\d+`)
	pageHeadPattern = regexp.MustCompile(`(?im)^##\s*page\s+(\d+)`)
)

type pageMarker struct {
	offset int
	page   int // 0 means "increment previous page" (form feed)
}

// SlidingWindow produces fixed-size overlapping windows by raw character
// offset, for documents where paragraph structure is unreliable. Each
// window carries the page number of the last page-break marker preceding
// it; documents without markers are page 1 throughout.
func SlidingWindow(text string, window, step int) []Window {
	if text == "" {
		return nil
	}
	if window <= 0 {
		window = DefaultWindowSize
	}
	if step <= 0 {
		step = window
	}

	markers := detectPageMarkers(text)

	var windows []Window
	for offset := 0; offset < len(text); offset += step {
		end := offset + window
		if end > len(text) {
			end = len(text)
		}
		windows = append(windows, Window{
			Text:   text[offset:end],
			Offset: offset,
			Page:   pageAt(markers, offset),
		})
		if end == len(text) {
			break
		}
	}
	return windows
}

// detectPageMarkers collects page-break markers in offset order and assigns
// each a page number. Form feeds increment the running page; "Page N"
// patterns set it explicitly.
func detectPageMarkers(text string) []pageMarker {
	var markers []pageMarker

	for idx := 0; ; {
		ff := strings.IndexByte(text[idx:], '\f')
		if ff < 0 {
			break
		}
		markers = append(markers, pageMarker{offset: idx + ff})
		idx += ff + 1
	}

	for _, pattern := range []*regexp.Regexp{pageOfPattern, pageHeadPattern} {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			n, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil || n <= 0 {
				continue
			}
			markers = append(markers, pageMarker{offset: m[0], page: n})
		}
	}

	sortMarkers(markers)

	// Resolve form-feed markers against the running page number.
	page := 1
	for i := range markers {
		if markers[i].page == 0 {
			page++
			markers[i].page = page
		} else {
			page = markers[i].page
		}
	}
	return markers
}

func sortMarkers(markers []pageMarker) {
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].offset < markers[j-1].offset; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}
}

// pageAt returns the page in effect at the given offset.
func pageAt(markers []pageMarker, offset int) int {
	page := 1
	for _, m := range markers {
		if m.offset > offset {
			break
		}
		page = m.page
	}
	return page
}
