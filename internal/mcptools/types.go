package mcptools

// --- MCP tool types for memoforge serve-mcp ---
// Every tool takes facts either inline (facts) or from a file (factsPath).

// GenerateDocumentInput is the input for the generate_document MCP tool.
type GenerateDocumentInput struct {
	DocumentType  string                    `json:"documentType" jsonschema:"document type key, see list_document_types"`
	Facts         map[string]map[string]any `json:"facts,omitempty" jsonschema:"structured facts by section and field"`
	FactsPath     string                    `json:"factsPath,omitempty" jsonschema:"path to a .json, .yaml or .toml facts file"`
	DocumentID    string                    `json:"documentId,omitempty" jsonschema:"indexed source document used for retrieval"`
	SharedContext string                    `json:"sharedContext,omitempty" jsonschema:"text used for sections without retrieved context"`
	Model         string                    `json:"model,omitempty" jsonschema:"model override"`
	Temperature   *float64                  `json:"temperature,omitempty" jsonschema:"temperature for every section (omit to keep the document type default)"`
}

// GenerateDocumentOutput is the result of the generate_document MCP tool.
type GenerateDocumentOutput struct {
	RunID        string          `json:"runId"`
	DocumentType string          `json:"documentType"`
	Sections     []SectionOutput `json:"sections"`
	Failed       int             `json:"failed"`
	Valid        bool            `json:"valid"`
	Report       string          `json:"report"`
	Markdown     string          `json:"markdown"`
}

// SectionOutput is one generated section.
type SectionOutput struct {
	Title            string   `json:"title"`
	Paragraphs       []string `json:"paragraphs"`
	Failed           bool     `json:"failed"`
	Attempts         int      `json:"attempts"`
	Model            string   `json:"model,omitempty"`
	ContextAvailable bool     `json:"contextAvailable"`
	GeneratedAt      string   `json:"generatedAt"`
	Error            string   `json:"error,omitempty"`
}

// GenerateSectionInput is the input for the generate_section MCP tool.
type GenerateSectionInput struct {
	DocumentType  string                    `json:"documentType" jsonschema:"document type key"`
	Section       string                    `json:"section" jsonschema:"section title exactly as defined by the document type"`
	Facts         map[string]map[string]any `json:"facts,omitempty" jsonschema:"structured facts by section and field"`
	FactsPath     string                    `json:"factsPath,omitempty" jsonschema:"path to a facts file"`
	DocumentID    string                    `json:"documentId,omitempty" jsonschema:"indexed source document used for retrieval"`
	SharedContext string                    `json:"sharedContext,omitempty" jsonschema:"text used when nothing is retrieved"`
	Model         string                    `json:"model,omitempty" jsonschema:"model override"`
	Temperature   *float64                  `json:"temperature,omitempty" jsonschema:"temperature override (omit to keep the document type default)"`
}

// RegenerateParagraphInput is the input for the regenerate_paragraph MCP tool.
type RegenerateParagraphInput struct {
	DocumentType string                    `json:"documentType" jsonschema:"document type key"`
	Section      string                    `json:"section" jsonschema:"section title"`
	Paragraphs   []string                  `json:"paragraphs" jsonschema:"the section's current paragraphs"`
	Index        int                       `json:"index" jsonschema:"zero-based index of the paragraph to rewrite"`
	Instructions string                    `json:"instructions,omitempty" jsonschema:"what to change in the paragraph"`
	Facts        map[string]map[string]any `json:"facts,omitempty" jsonschema:"structured facts by section and field"`
	FactsPath    string                    `json:"factsPath,omitempty" jsonschema:"path to a facts file"`
	Model        string                    `json:"model,omitempty" jsonschema:"model override"`
	Temperature  *float64                  `json:"temperature,omitempty" jsonschema:"temperature (default 0.5)"`
}

// RegenerateParagraphOutput is the result of the regenerate_paragraph MCP tool.
type RegenerateParagraphOutput struct {
	Section   string `json:"section"`
	Index     int    `json:"index"`
	Paragraph string `json:"paragraph"`
}

// SectionInput is one section submitted for validation.
type SectionInput struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

// ValidateDocumentInput is the input for the validate_document MCP tool.
type ValidateDocumentInput struct {
	DocumentType string                    `json:"documentType" jsonschema:"document type key"`
	Sections     []SectionInput            `json:"sections" jsonschema:"sections in document order"`
	Facts        map[string]map[string]any `json:"facts,omitempty" jsonschema:"structured facts by section and field"`
	FactsPath    string                    `json:"factsPath,omitempty" jsonschema:"path to a facts file"`
}

// ValidateDocumentOutput is the result of the validate_document MCP tool.
type ValidateDocumentOutput struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	EstimatedPages float64  `json:"estimatedPages"`
	Report         string   `json:"report"`
}

// ListDocumentTypesInput is the input for the list_document_types MCP tool.
type ListDocumentTypesInput struct{}

// ListDocumentTypesOutput is the result of the list_document_types MCP tool.
type ListDocumentTypesOutput struct {
	Types []DocumentTypeSummary `json:"types"`
}

// DocumentTypeSummary is a brief overview of one document type.
type DocumentTypeSummary struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Domain   string   `json:"domain,omitempty"`
	Sections []string `json:"sections"`
}
