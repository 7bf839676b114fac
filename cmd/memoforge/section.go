package main

import (
	"fmt"

	"github.com/dusk-indust/memoforge/internal/export"
	"github.com/spf13/cobra"
)

var sectionFlags runFlags

func init() {
	rootCmd.AddCommand(sectionCmd)
	sectionFlags.register(sectionCmd)
}

// sectionCmd generates one section.
var sectionCmd = &cobra.Command{
	Use:   "section <document-type> <title>",
	Short: "Generate a single section",
	Long: `Generate one section with the same retrieval, retry and post-processing
as a full memo run, and print it as Markdown.

Examples:
  memoforge section short_primario "Portfolio Atual" --facts facts.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runSection,
}

func runSection(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	f, opts, err := sectionFlags.options(cmd, a)
	if err != nil {
		return err
	}
	svc, err := a.service(nil)
	if err != nil {
		return err
	}
	wait := func() {}
	if !sectionFlags.quiet {
		wait = printProgress(cmd.ErrOrStderr(), svc.Progress())
	}

	sec, err := svc.GenerateSection(cmd.Context(), args[0], args[1], f, opts)
	svc.Close()
	wait()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), export.SectionMarkdown(*sec))
	if sec.Failed() {
		return fmt.Errorf("section %q failed after %d attempts: %s", sec.Title, sec.Metadata.Attempts, sec.Metadata.Error)
	}
	return nil
}
