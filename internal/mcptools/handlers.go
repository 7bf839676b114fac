package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/export"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/dusk-indust/memoforge/internal/validator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// errNoFacts is returned when a tool call carries neither facts nor a path.
var errNoFacts = errors.New("facts or factsPath is required")

// Generator is the slice of orchestrator.Service the tools call.
type Generator interface {
	Types() []string
	DocumentType(docType string) (*catalog.DocumentType, error)
	GenerateFullDocument(ctx context.Context, docType string, f facts.Facts, opts orchestrator.RunOptions) (*orchestrator.Document, error)
	GenerateSection(ctx context.Context, docType, title string, f facts.Facts, opts orchestrator.RunOptions) (*orchestrator.GeneratedSection, error)
	RegenerateParagraph(ctx context.Context, docType string, req orchestrator.ParagraphRequest) (string, error)
	Validate(docType string, f facts.Facts, sections []orchestrator.GeneratedSection) (*validator.Result, error)
}

// MemoService handles MCP tool calls by delegating to a Generator.
type MemoService struct {
	gen    Generator
	logger *zap.Logger
}

// NewMemoService creates a MemoService.
func NewMemoService(gen Generator, logger *zap.Logger) *MemoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoService{gen: gen, logger: logger}
}

// GenerateDocument generates every section of a document type.
func (s *MemoService) GenerateDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateDocumentInput,
) (*mcp.CallToolResult, GenerateDocumentOutput, error) {
	dt, err := s.gen.DocumentType(input.DocumentType)
	if err != nil {
		return nil, GenerateDocumentOutput{}, err
	}
	f, err := loadFacts(input.Facts, input.FactsPath)
	if err != nil {
		return nil, GenerateDocumentOutput{}, err
	}

	doc, err := s.gen.GenerateFullDocument(ctx, input.DocumentType, f, orchestrator.RunOptions{
		DocumentID:    input.DocumentID,
		SharedContext: input.SharedContext,
		Model:         agent.ModelParams{Model: input.Model, Temperature: input.Temperature},
	})
	if err != nil {
		return nil, GenerateDocumentOutput{}, fmt.Errorf("generate %s: %w", input.DocumentType, err)
	}

	out := GenerateDocumentOutput{
		RunID:        doc.RunID,
		DocumentType: doc.Type,
		Sections:     make([]SectionOutput, len(doc.Sections)),
		Markdown:     export.Markdown(doc, dt.Name),
	}
	for i, sec := range doc.Sections {
		out.Sections[i] = sectionOutput(sec)
		if sec.Failed() {
			out.Failed++
		}
	}
	if doc.Validation != nil {
		out.Valid = doc.Validation.IsValid
		out.Report = doc.Validation.Format()
	}
	s.logger.Info("generate_document completed",
		zap.String("type", doc.Type),
		zap.String("run", doc.RunID),
		zap.Int("failed", out.Failed),
	)
	return nil, out, nil
}

// GenerateSection generates a single section.
func (s *MemoService) GenerateSection(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateSectionInput,
) (*mcp.CallToolResult, SectionOutput, error) {
	f, err := loadFacts(input.Facts, input.FactsPath)
	if err != nil {
		return nil, SectionOutput{}, err
	}
	sec, err := s.gen.GenerateSection(ctx, input.DocumentType, input.Section, f, orchestrator.RunOptions{
		DocumentID:    input.DocumentID,
		SharedContext: input.SharedContext,
		Model:         agent.ModelParams{Model: input.Model, Temperature: input.Temperature},
	})
	if err != nil {
		return nil, SectionOutput{}, err
	}
	return nil, sectionOutput(*sec), nil
}

// RegenerateParagraph rewrites one paragraph of a section.
func (s *MemoService) RegenerateParagraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RegenerateParagraphInput,
) (*mcp.CallToolResult, RegenerateParagraphOutput, error) {
	f, err := loadFacts(input.Facts, input.FactsPath)
	if err != nil {
		return nil, RegenerateParagraphOutput{}, err
	}
	p, err := s.gen.RegenerateParagraph(ctx, input.DocumentType, orchestrator.ParagraphRequest{
		Section:      input.Section,
		Index:        input.Index,
		Current:      input.Paragraphs,
		Facts:        f,
		Instructions: input.Instructions,
		Temperature:  input.Temperature,
		Model:        input.Model,
	})
	if err != nil {
		return nil, RegenerateParagraphOutput{}, err
	}
	return nil, RegenerateParagraphOutput{
		Section:   input.Section,
		Index:     input.Index,
		Paragraph: p,
	}, nil
}

// ValidateDocument checks submitted sections against a document type.
func (s *MemoService) ValidateDocument(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ValidateDocumentInput,
) (*mcp.CallToolResult, ValidateDocumentOutput, error) {
	f, err := loadFacts(input.Facts, input.FactsPath)
	if err != nil {
		return nil, ValidateDocumentOutput{}, err
	}
	sections := make([]orchestrator.GeneratedSection, len(input.Sections))
	for i, sec := range input.Sections {
		sections[i] = orchestrator.GeneratedSection{Title: sec.Title, Paragraphs: sec.Paragraphs}
	}
	res, err := s.gen.Validate(input.DocumentType, f, sections)
	if err != nil {
		return nil, ValidateDocumentOutput{}, err
	}
	return nil, ValidateDocumentOutput{
		Valid:          res.IsValid,
		Errors:         nonNil(res.Errors),
		Warnings:       nonNil(res.Warnings),
		EstimatedPages: res.Totals.EstimatedPages,
		Report:         res.Format(),
	}, nil
}

// ListDocumentTypes lists the generatable document types.
func (s *MemoService) ListDocumentTypes(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentTypesInput,
) (*mcp.CallToolResult, ListDocumentTypesOutput, error) {
	var out ListDocumentTypesOutput
	for _, key := range s.gen.Types() {
		dt, err := s.gen.DocumentType(key)
		if err != nil {
			return nil, ListDocumentTypesOutput{}, err
		}
		out.Types = append(out.Types, DocumentTypeSummary{
			Key:      dt.Key,
			Name:     dt.Name,
			Domain:   dt.Domain,
			Sections: dt.Titles(),
		})
	}
	return nil, out, nil
}

// loadFacts reads facts from path when set, otherwise normalizes the inline
// map the same way a JSON facts file is.
func loadFacts(inline map[string]map[string]any, path string) (facts.Facts, error) {
	if path != "" {
		return facts.LoadFile(path)
	}
	if inline == nil {
		return nil, errNoFacts
	}
	data, err := json.Marshal(inline)
	if err != nil {
		return nil, fmt.Errorf("encode inline facts: %w", err)
	}
	f, err := facts.Parse(data, ".json")
	if err != nil {
		return nil, fmt.Errorf("parse inline facts: %w", err)
	}
	return f, nil
}

func sectionOutput(sec orchestrator.GeneratedSection) SectionOutput {
	return SectionOutput{
		Title:            sec.Title,
		Paragraphs:       nonNil(sec.Paragraphs),
		Failed:           sec.Failed(),
		Attempts:         sec.Metadata.Attempts,
		Model:            sec.Metadata.Model,
		ContextAvailable: sec.Metadata.ContextAvailable,
		GeneratedAt:      sec.Metadata.GeneratedAt.UTC().Format(time.RFC3339),
		Error:            sec.Metadata.Error,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
