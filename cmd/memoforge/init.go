package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// memoforgeMCPEntry is the MCP server configuration for the memoforge binary.
var memoforgeMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "memoforge",
  "args": ["serve-mcp"]
}`)

// starterConfig is written to memoforge.yml by init.
const starterConfig = `# memoforge settings. MEMOFORGE_* environment variables override these,
# e.g. MEMOFORGE_LLM_API_KEY for llm.api_key.
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 2m
  rate_limit: 2
  burst: 4

# Leave embedding.model empty to disable retrieval.
embedding:
  model: ""
  base_url: ""

index:
  path: .memoforge/index
  compress: true
  top_k: 3

orchestrator:
  retries: 2
  retry_backoff: 1s

validator:
  redundancy_threshold: 0.3

# Extra document type definitions (*.yaml) merged over the built-in ones.
catalog:
  dir: ""

log:
  level: info
  format: console
`

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing memoforge entries")
}

// initCmd writes a starter config and registers the MCP server.
var initCmd = &cobra.Command{
	Use:   "init [project-root]",
	Short: "Write memoforge.yml and register the MCP server in .mcp.json",
	Long: `Write a starter memoforge.yml and add a memoforge entry to .mcp.json in the
project root (default: the working directory). Existing files are kept
unless --force is set; other .mcp.json servers are always preserved.

Examples:
  memoforge init
  memoforge init ../deals --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runInit(cmd.OutOrStdout(), root, initForce)
	},
}

// runInit installs the starter config and MCP configuration into the
// target project directory.
func runInit(w io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	if err := writeStarterConfig(w, filepath.Join(abs, "memoforge.yml"), force); err != nil {
		return err
	}
	if err := mergeMCPConfig(w, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSetup complete. Set MEMOFORGE_LLM_API_KEY and run 'memoforge types'.")
	return nil
}

func writeStarterConfig(w io.Writer, path string, force bool) error {
	_, err := os.Stat(path)
	switch {
	case err == nil && !force:
		fmt.Fprintln(w, "  skipped memoforge.yml (exists, use --force to overwrite)")
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintln(w, "  created memoforge.yml")
	return nil
}

// mergeMCPConfig creates or merges the memoforge entry into .mcp.json.
func mergeMCPConfig(w io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["memoforge"]; exists && !force {
		fmt.Fprintln(w, "  skipped .mcp.json memoforge entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["memoforge"] = memoforgeMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(w, "  %s .mcp.json with memoforge MCP server\n", action)
	return nil
}
