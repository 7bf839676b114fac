package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/export"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// runFlags are shared by generate and section.
type runFlags struct {
	factsPath   string
	documentID  string
	contextFile string
	model       string
	temperature float64
	quiet       bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.factsPath, "facts", "f", "", "facts file (.json, .yaml or .toml)")
	cmd.Flags().StringVar(&f.documentID, "document-id", "", "indexed source document to retrieve context from")
	cmd.Flags().StringVar(&f.contextFile, "context-file", "", "text used for sections without retrieved context")
	cmd.Flags().StringVar(&f.model, "model", "", "model override")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "temperature for every section (default: the document type's)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	_ = cmd.MarkFlagRequired("facts")
}

// options loads the facts and builds the run options. An explicit
// --temperature, zero included, wins over llm.temperature.
func (f *runFlags) options(cmd *cobra.Command, a *app) (facts.Facts, orchestrator.RunOptions, error) {
	loaded, err := facts.LoadFile(f.factsPath)
	if err != nil {
		return nil, orchestrator.RunOptions{}, err
	}

	opts := orchestrator.RunOptions{
		DocumentID: f.documentID,
		Model: agent.ModelParams{
			Model:       f.model,
			Temperature: a.cfg.LLM.Temperature,
		},
	}
	if cmd.Flags().Changed("temperature") {
		opts.Model.Temperature = agent.Float(f.temperature)
	}
	if f.contextFile != "" {
		data, err := os.ReadFile(f.contextFile)
		if err != nil {
			return nil, orchestrator.RunOptions{}, fmt.Errorf("reading context file: %w", err)
		}
		opts.SharedContext = string(data)
	}
	return loaded, opts, nil
}

var (
	generateFlags  runFlags
	generateFormat string
	generateOutput string
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVar(&generateFormat, "format", formatMarkdown, "output format: markdown or json")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output file (default stdout)")
}

// generateCmd generates every section of a document type.
var generateCmd = &cobra.Command{
	Use:   "generate <document-type>",
	Short: "Generate a complete memo",
	Long: `Generate every section of a memo concurrently and validate the result.

Sections that fail after all retries hold an error placeholder; the rest of
the memo is still written. The validation report goes to stderr.

Examples:
  # Short memo for a primary fund commitment
  memoforge generate short_primario --facts facts.yaml

  # Ground sections in an indexed pitch deck and write JSON
  memoforge generate memo_searchfund -f facts.json --document-id deck-acme \
    --format json -o memo.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateFormat != formatMarkdown && generateFormat != formatJSON {
		return fmt.Errorf("unknown format %q (want %s or %s)", generateFormat, formatMarkdown, formatJSON)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dt, err := a.catalog.Get(args[0])
	if err != nil {
		return err
	}
	f, opts, err := generateFlags.options(cmd, a)
	if err != nil {
		return err
	}

	svc, err := a.service(nil)
	if err != nil {
		return err
	}
	wait := func() {}
	if !generateFlags.quiet {
		wait = printProgress(cmd.ErrOrStderr(), svc.Progress())
	}

	doc, err := svc.GenerateFullDocument(cmd.Context(), dt.Key, f, opts)
	svc.Close()
	wait()
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if generateFormat == formatJSON {
		if err := export.WriteJSON(&out, doc, dt.Name); err != nil {
			return err
		}
	} else {
		out.WriteString(export.Markdown(doc, dt.Name))
	}
	if err := writeOutput(generateOutput, out.Bytes()); err != nil {
		return err
	}

	if doc.Validation != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), doc.Validation.Format())
	}
	a.logger.Info("memo generated",
		zap.String("type", dt.Key),
		zap.String("run", doc.RunID),
		zap.Int("failed", countFailed(doc)),
	)
	return nil
}

func countFailed(doc *orchestrator.Document) int {
	n := 0
	for _, s := range doc.Sections {
		if s.Failed() {
			n++
		}
	}
	return n
}
