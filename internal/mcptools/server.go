package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMemoMCPServer creates an MCP server with the 5 memo tools registered:
// generate_document, generate_section, regenerate_paragraph,
// validate_document and list_document_types.
func NewMemoMCPServer(svc *MemoService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "memoforge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_document",
		Description: "Generate every section of an investment memo concurrently from structured facts, optionally grounded in an indexed source document. Failed sections carry an error placeholder. Returns the sections, a Markdown rendering and the validation report.",
	}, svc.GenerateDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_section",
		Description: "Generate a single memo section with the same retrieval, retry and post-processing as a full document run.",
	}, svc.GenerateSection)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "regenerate_paragraph",
		Description: "Rewrite one paragraph of a section, keeping its neighbours as context and following optional user instructions. Returns only the replacement paragraph.",
	}, svc.RegenerateParagraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_document",
		Description: "Check memo sections for paragraph counts, paragraph length, required facts, financial coherence and cross-section redundancy.",
	}, svc.ValidateDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_document_types",
		Description: "List the memo layouts that can be generated and their section titles.",
	}, svc.ListDocumentTypes)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr. A non-nil
// metrics handler is mounted at /metrics.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string, metrics http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
