// Package export writes generated memos as JSON or Markdown and reads them
// back for re-validation.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/dusk-indust/memoforge/internal/validator"
)

// DocumentExport is the top-level JSON export structure.
type DocumentExport struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	RunID      string            `json:"runId,omitempty"`
	ExportedAt string            `json:"exportedAt"`
	Sections   []SectionExport   `json:"sections"`
	Validation *ValidationExport `json:"validation,omitempty"`
}

// SectionExport describes one section.
type SectionExport struct {
	Title      string                 `json:"title"`
	Paragraphs []string               `json:"paragraphs"`
	Failed     bool                   `json:"failed,omitempty"`
	Metadata   *orchestrator.Metadata `json:"metadata,omitempty"`
}

// ValidationExport summarizes a validation result.
type ValidationExport struct {
	IsValid  bool             `json:"isValid"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Totals   validator.Totals `json:"totals"`
}

// ExportDocument builds a DocumentExport from a generated document. name is
// the human-readable document type name.
func ExportDocument(doc *orchestrator.Document, name string) *DocumentExport {
	out := &DocumentExport{
		Type:       doc.Type,
		Name:       name,
		RunID:      doc.RunID,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Sections:   make([]SectionExport, len(doc.Sections)),
	}
	for i, s := range doc.Sections {
		meta := s.Metadata
		out.Sections[i] = SectionExport{
			Title:      s.Title,
			Paragraphs: s.Paragraphs,
			Failed:     s.Failed(),
			Metadata:   &meta,
		}
	}
	if doc.Validation != nil {
		out.Validation = exportValidation(doc.Validation)
	}
	return out
}

func exportValidation(res *validator.Result) *ValidationExport {
	return &ValidationExport{
		IsValid:  res.IsValid,
		Errors:   res.Errors,
		Warnings: res.Warnings,
		Totals:   res.Totals,
	}
}

// WriteJSON writes the export of doc as indented JSON.
func WriteJSON(w io.Writer, doc *orchestrator.Document, name string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ExportDocument(doc, name)); err != nil {
		return fmt.Errorf("encode document %s: %w", doc.Type, err)
	}
	return nil
}

// ReadJSON decodes an export written by WriteJSON.
func ReadJSON(r io.Reader) (*DocumentExport, error) {
	var out DocumentExport
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode document export: %w", err)
	}
	return &out, nil
}

// GeneratedSections converts the export back into orchestrator sections.
// Sections exported as failed keep that state so the validator skips them.
func (e *DocumentExport) GeneratedSections() []orchestrator.GeneratedSection {
	out := make([]orchestrator.GeneratedSection, len(e.Sections))
	for i, s := range e.Sections {
		sec := orchestrator.GeneratedSection{Title: s.Title, Paragraphs: s.Paragraphs}
		if s.Metadata != nil {
			sec.Metadata = *s.Metadata
		}
		if s.Failed {
			sec.Metadata.State = orchestrator.StateFailed
		}
		out[i] = sec
	}
	return out
}
