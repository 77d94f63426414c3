package chunk

import (
	"regexp"
	"strings"
)

// Policy holds the replaceable pattern tables driving boilerplate removal,
// section detection, and tabular-passage flagging. The defaults match
// common US clinical note conventions; hosts with other conventions supply
// their own tables via configuration.
type Policy struct {
	boilerplate    []*regexp.Regexp
	sectionPrefix  []sectionPattern
	tabularHeaders []string
}

type sectionPattern struct {
	prefix  string
	section Section
}

// defaultBoilerplatePatterns match signature blocks, disclaimers, and
// letterhead lines that add noise to both lexical and semantic matching.
var defaultBoilerplatePatterns = []string{
	`^\s*electronically signed\b`,
	`^\s*signed by\b`,
	`^\s*dictated (by|but not read)\b`,
	`^\s*transcribed by\b`,
	`confidentiality notice`,
	`^\s*this (message|document|fax) (is|contains|may contain).*confidential`,
	`^\s*if you (have received|are not the intended)`,
	`^\s*cc:\s`,
	`^\s*fax:?\s*\(?\d`,
	`^\s*phone:?\s*\(?\d`,
	`^\s*tel:?\s*\(?\d`,
	`^[\*\-_=]{5,}\s*$`,
}

// defaultSectionPrefixes map the first non-blank line of a passage to a
// section label. Ordered: more specific prefixes first.
var defaultSectionPrefixes = []sectionPattern{
	{"assessment and plan", SectionAssessmentPlan},
	{"assessment & plan", SectionAssessmentPlan},
	{"assessment/plan", SectionAssessmentPlan},
	{"a/p:", SectionAssessmentPlan},
	{"impression and plan", SectionAssessmentPlan},
	{"history of present illness", SectionHPI},
	{"hpi:", SectionHPI},
	{"hpi ", SectionHPI},
	{"hospital course", SectionHospitalCourse},
	{"subjective", SectionSubjective},
	{"objective", SectionObjective},
}

// defaultTabularHeaders flag passages that begin with list/table sections.
// These stay searchable lexically but are excluded from semantic scoring.
var defaultTabularHeaders = []string{
	"medications",
	"current medications",
	"medication list",
	"home medications",
	"allergies",
	"vital signs",
	"vitals",
	"labs",
	"lab results",
	"laboratory",
}

// DefaultPolicy returns the built-in pattern tables.
func DefaultPolicy() Policy {
	return NewPolicy(defaultBoilerplatePatterns, nil, nil)
}

// NewPolicy builds a Policy from pattern tables. Empty slices fall back to
// the defaults for that table. Boilerplate patterns are compiled
// case-insensitively; invalid patterns are skipped.
func NewPolicy(boilerplate []string, tabularHeaders []string, sectionPrefixes map[string]string) Policy {
	if len(boilerplate) == 0 {
		boilerplate = defaultBoilerplatePatterns
	}
	if len(tabularHeaders) == 0 {
		tabularHeaders = defaultTabularHeaders
	}

	p := Policy{tabularHeaders: tabularHeaders}
	for _, pat := range boilerplate {
		re, err := regexp.Compile(`(?i)` + pat)
		if err != nil {
			continue
		}
		p.boilerplate = append(p.boilerplate, re)
	}

	if len(sectionPrefixes) == 0 {
		p.sectionPrefix = defaultSectionPrefixes
	} else {
		for prefix, label := range sectionPrefixes {
			p.sectionPrefix = append(p.sectionPrefix, sectionPattern{
				prefix:  strings.ToLower(prefix),
				section: Section(label),
			})
		}
	}

	return p
}

// StripBoilerplate removes lines matching the boilerplate tables.
func (p Policy) StripBoilerplate(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if p.isBoilerplate(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (p Policy) isBoilerplate(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, re := range p.boilerplate {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// DetectSection labels a passage from its first non-blank line.
func (p Policy) DetectSection(text string) Section {
	line := firstNonBlankLine(text)
	if line == "" {
		return SectionNone
	}
	lower := strings.ToLower(line)
	for _, sp := range p.sectionPrefix {
		if strings.HasPrefix(lower, sp.prefix) {
			return sp.section
		}
	}
	return SectionNone
}

// IsTabular reports whether a passage begins with a purely tabular or list
// section (medications, allergies, vitals, labs).
func (p Policy) IsTabular(text string) bool {
	line := firstNonBlankLine(text)
	if line == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimRight(line, ": \t"))
	for _, header := range p.tabularHeaders {
		if lower == header {
			return true
		}
	}
	return false
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
