package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/export"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/spf13/cobra"
)

var (
	paragraphFacts        string
	paragraphIndex        int
	paragraphInstructions string
	paragraphModel        string
	paragraphTemperature  float64
	paragraphInPlace      bool
)

func init() {
	rootCmd.AddCommand(paragraphCmd)
	paragraphCmd.Flags().StringVarP(&paragraphFacts, "facts", "f", "", "facts file (.json, .yaml or .toml)")
	paragraphCmd.Flags().IntVarP(&paragraphIndex, "index", "i", 0, "zero-based paragraph index")
	paragraphCmd.Flags().StringVar(&paragraphInstructions, "instructions", "", "what to change in the paragraph")
	paragraphCmd.Flags().StringVar(&paragraphModel, "model", "", "model override")
	paragraphCmd.Flags().Float64Var(&paragraphTemperature, "temperature", 0, "temperature (default 0.5)")
	paragraphCmd.Flags().BoolVar(&paragraphInPlace, "in-place", false, "write the rewritten paragraph back into the memo file")
	_ = paragraphCmd.MarkFlagRequired("facts")
}

// paragraphCmd rewrites one paragraph of a generated memo.
var paragraphCmd = &cobra.Command{
	Use:   "paragraph <document-type> <memo-file> <section-title>",
	Short: "Rewrite one paragraph of a section",
	Long: `Rewrite one paragraph of a section of a memo written by generate, keeping
the neighbouring paragraphs as context. The memo file is JSON when it ends in
.json and Markdown otherwise.

The replacement is printed unless --in-place is set.

Examples:
  memoforge paragraph short_primario memo.md "Portfolio Atual" -i 1 \
    -f facts.yaml --instructions "Cite o MOIC dos fundos anteriores."`,
	Args: cobra.ExactArgs(3),
	RunE: runParagraph,
}

func runParagraph(cmd *cobra.Command, args []string) error {
	docType, memoPath, title := args[0], args[1], args[2]

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dt, err := a.catalog.Get(docType)
	if err != nil {
		return err
	}
	f, err := facts.LoadFile(paragraphFacts)
	if err != nil {
		return err
	}
	sections, err := readSections(memoPath)
	if err != nil {
		return err
	}
	doc := &orchestrator.Document{Type: dt.Key, Sections: sections}
	sec, ok := doc.Section(title)
	if !ok {
		return fmt.Errorf("section %q not found in %s", title, memoPath)
	}

	svc, err := a.service(nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := orchestrator.ParagraphRequest{
		Section:      title,
		Index:        paragraphIndex,
		Current:      sec.Paragraphs,
		Facts:        f,
		Instructions: paragraphInstructions,
		Model:        paragraphModel,
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = agent.Float(paragraphTemperature)
	}
	p, err := svc.RegenerateParagraph(cmd.Context(), dt.Key, req)
	if err != nil {
		return err
	}

	if !paragraphInPlace {
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	}

	replaceParagraph(doc, title, paragraphIndex, p)
	var out bytes.Buffer
	if strings.EqualFold(filepath.Ext(memoPath), ".json") {
		if err := export.WriteJSON(&out, doc, dt.Name); err != nil {
			return err
		}
	} else {
		out.WriteString(export.Markdown(doc, dt.Name))
	}
	if err := writeOutput(memoPath, out.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "  updated %s (%s, paragraph %d)\n", memoPath, title, paragraphIndex)
	return nil
}

// replaceParagraph swaps one paragraph in a copy of the section's slice.
func replaceParagraph(doc *orchestrator.Document, title string, index int, p string) {
	for i, s := range doc.Sections {
		if s.Title != title {
			continue
		}
		paragraphs := append([]string(nil), s.Paragraphs...)
		paragraphs[index] = p
		doc.Sections[i].Paragraphs = paragraphs
		return
	}
}
