package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripBoilerplate(t *testing.T) {
	policy := DefaultPolicy()

	text := "Patient doing well on current regimen.\n" +
		"Electronically signed by J. Smith MD\n" +
		"CONFIDENTIALITY NOTICE: this fax is intended only for the addressee.\n" +
		"Fax: (555) 123-4567\n" +
		"Follow up in 3 months."

	clean := policy.StripBoilerplate(text)
	assert.Contains(t, clean, "Patient doing well")
	assert.Contains(t, clean, "Follow up in 3 months.")
	assert.NotContains(t, clean, "Electronically signed")
	assert.NotContains(t, clean, "CONFIDENTIALITY")
	assert.NotContains(t, clean, "Fax:")
}

func TestDetectSection(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name string
		text string
		want Section
	}{
		{"assessment and plan", "Assessment and Plan:\ncontinue meds", SectionAssessmentPlan},
		{"a/p shorthand", "A/P: stable", SectionAssessmentPlan},
		{"hpi", "History of Present Illness\n55yo male...", SectionHPI},
		{"hospital course", "HOSPITAL COURSE:\nadmitted for...", SectionHospitalCourse},
		{"subjective", "Subjective: feels better", SectionSubjective},
		{"objective", "Objective: afebrile", SectionObjective},
		{"leading blank lines", "\n\n  Assessment and Plan\nstable", SectionAssessmentPlan},
		{"no section", "Patient seen in clinic today.", SectionNone},
		{"empty", "", SectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.DetectSection(tt.text))
		})
	}
}

func TestIsTabular(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"medications header", "Medications:\n- aspirin 81mg", true},
		{"vitals header", "VITAL SIGNS\nBP 120/80", true},
		{"labs header", "Labs:\nWBC 7.2", true},
		{"prose mentioning medications", "Medications were reviewed with the patient.", false},
		{"narrative", "Patient reports chest pain.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsTabular(tt.text))
		})
	}
}

func TestNewPolicyCustomTables(t *testing.T) {
	policy := NewPolicy(
		[]string{`^\s*draft only\b`},
		[]string{"problem list"},
		map[string]string{"plan": string(SectionAssessmentPlan)},
	)

	assert.NotContains(t, policy.StripBoilerplate("keep this\nDRAFT ONLY do not file\nand this"), "DRAFT ONLY")
	assert.True(t, policy.IsTabular("Problem List:\n1. HTN"))
	assert.Equal(t, SectionAssessmentPlan, policy.DetectSection("Plan: continue"))
	// Custom section table replaces the defaults.
	assert.Equal(t, SectionNone, policy.DetectSection("Subjective: fine"))
}
