// Package source defines the normalized document record consumed by the
// indexing engine and the adapter that converts heterogeneous upstream
// gateway shapes into it. The engine performs no network I/O for source
// retrieval; the gateway collaborator hands it ordered record lists.
package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinqa/retriever/internal/errors"
)

// Category classifies a source document. Categories drive the selective
// embedding policy: some categories are embedded unconditionally.
type Category string

const (
	CategoryGeneral          Category = "general"
	CategoryProgressNote     Category = "progress-note"
	CategoryDischargeSummary Category = "discharge-summary"
	CategoryConsult          Category = "consult"
	CategoryImagingReport    Category = "imaging-report"
)

// Record is a normalized source document. Title, Date, and Category are
// optional; zero values mean unknown.
type Record struct {
	ID       string
	Text     string
	Title    string
	Date     time.Time
	Category Category
}

// Validate reports whether the record can be indexed.
func (r Record) Validate() error {
	if r.ID == "" {
		return errors.MalformedSource("", fmt.Errorf("missing source id"))
	}
	return nil
}

// dateLayouts are the timestamp formats accepted from upstream records.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// FromMap normalizes a raw upstream record into a Record. Upstream systems
// disagree on field names, so each logical field probes a list of aliases.
// Returns a MalformedSource error when no usable id can be found.
func FromMap(raw map[string]any) (Record, error) {
	id := firstString(raw, "source_id", "id", "document_id", "documentId", "doc_id")
	if id == "" {
		return Record{}, errors.MalformedSource("", fmt.Errorf("no id field in record"))
	}

	rec := Record{
		ID:       id,
		Text:     firstString(raw, "text", "content", "body", "note_text"),
		Title:    firstString(raw, "title", "name", "display", "description"),
		Category: ParseCategory(firstString(raw, "category", "type", "document_type", "class")),
	}

	if ds := firstString(raw, "date", "effective_date", "created_at", "service_date"); ds != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, ds); err == nil {
				rec.Date = t
				break
			}
		}
	}

	return rec, nil
}

// ParseCategory maps free-form upstream category strings onto the known
// category set. Unrecognized values map to CategoryGeneral.
func ParseCategory(s string) Category {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")

	switch {
	case normalized == "":
		return CategoryGeneral
	case strings.Contains(normalized, "discharge"):
		return CategoryDischargeSummary
	case strings.Contains(normalized, "consult"):
		return CategoryConsult
	case strings.Contains(normalized, "imaging"), strings.Contains(normalized, "radiology"),
		strings.Contains(normalized, "x-ray"), strings.Contains(normalized, "mri"),
		strings.Contains(normalized, "ct-"):
		return CategoryImagingReport
	case strings.Contains(normalized, "progress"):
		return CategoryProgressNote
	default:
		return CategoryGeneral
	}
}

// firstString returns the first non-empty string value among the given keys.
func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
