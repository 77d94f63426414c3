// Package chunk splits free-text clinical documents into overlapping
// passages for indexing. It strips boilerplate, tags section types, and
// flags tabular passages that should be excluded from semantic scoring.
package chunk

import (
	"time"
)

// Section labels the clinical note section a passage begins in.
type Section string

const (
	SectionNone           Section = ""
	SectionAssessmentPlan Section = "assessment-and-plan"
	SectionHPI            Section = "history-of-present-illness"
	SectionSubjective     Section = "subjective"
	SectionObjective      Section = "objective"
	SectionHospitalCourse Section = "hospital-course"
)

// Passage is the atomic unit of retrieval: a bounded span of text derived
// from one source document. Immutable once created; the ID is stable for
// the lifetime of an index generation.
type Passage struct {
	ID       string
	SourceID string
	Text     string
	Section  Section
	Date     time.Time // zero means unknown
	Tabular  bool      // excluded from semantic scoring, lexical still applies
	Seq      int       // position within the source document
}

// Window is a fixed-size overlapping span produced by SlidingWindow, with
// the page number derived from detected page-break markers.
type Window struct {
	Text   string
	Offset int
	Page   int
}

// Default chunking parameters.
const (
	DefaultTargetSize = 1200
	DefaultOverlap    = 200
	DefaultWindowSize = 1000
	DefaultWindowStep = 800
)

// Options configures passage chunking.
type Options struct {
	TargetSize int // maximum passage size in characters
	Overlap    int // sentence-aligned overlap carried from the previous passage
}

// DefaultOptions returns the default chunking parameters.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, Overlap: DefaultOverlap}
}

func (o Options) withDefaults() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}
