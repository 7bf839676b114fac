package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var typesVerbose bool

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().BoolVarP(&typesVerbose, "verbose", "v", false, "list section titles")
}

// typesCmd lists the document types of the catalog.
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List document types",
	Args:  cobra.NoArgs,
	RunE:  runTypes,
}

func runTypes(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	for _, key := range a.catalog.Keys() {
		dt, err := a.catalog.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-18s %-2d sections  %s\n", dt.Key, len(dt.Sections), dt.Name)
		if !typesVerbose {
			continue
		}
		for _, title := range dt.Titles() {
			fmt.Fprintf(w, "    - %s\n", title)
		}
	}
	return nil
}
