package main

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/spf13/cobra"
)

// errInvalid makes validate exit non-zero without repeating the report.
var errInvalid = errors.New("memo failed validation")

var validateFacts string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateFacts, "facts", "f", "", "facts file (.json, .yaml or .toml)")
	_ = validateCmd.MarkFlagRequired("facts")
}

// validateCmd checks an existing memo.
var validateCmd = &cobra.Command{
	Use:   "validate <document-type> <memo-file>",
	Short: "Validate a memo against its document type",
	Long: `Check paragraph counts, paragraph length, required facts, financial
coherence and cross-section redundancy of a memo written by generate, and
print the validation report. Exits non-zero when the memo has errors.

Examples:
  memoforge validate short_primario memo.md --facts facts.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	dt, err := a.catalog.Get(args[0])
	if err != nil {
		return err
	}
	f, err := facts.LoadFile(validateFacts)
	if err != nil {
		return err
	}
	sections, err := readSections(args[1])
	if err != nil {
		return err
	}

	res := a.validator().Validate(f, orchestrator.ValidatorSections(sections), dt.Rules())
	fmt.Fprintln(cmd.OutOrStdout(), res.Format())
	if !res.IsValid {
		return fmt.Errorf("%s: %w", args[1], errInvalid)
	}
	return nil
}
