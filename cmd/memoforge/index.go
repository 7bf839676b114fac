package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexPassageChars int

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().IntVar(&indexPassageChars, "passage-chars", retrieval.DefaultPassageChars, "target passage size in characters")
}

// indexCmd indexes source documents for retrieval.
var indexCmd = &cobra.Command{
	Use:   "index <document-id> <file>...",
	Short: "Index a source document for retrieval",
	Long: `Split text files into passages, embed them and store them in the passage
index under a document id. Pass the same id to generate --document-id.

Requires embedding.model and index.path to be configured, since an
in-memory index would be lost when the command exits.

Examples:
  # Index an extracted pitch deck
  memoforge index deck-acme deck.txt

  # Index several files under one id with smaller passages
  memoforge index deck-acme deck.txt qa.txt --passage-chars 400`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	documentID, files := args[0], args[1:]

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Index.Path == "" {
		return errors.New("index.path is not configured (set it in memoforge.yml or MEMOFORGE_INDEX_PATH)")
	}
	idx, err := a.index()
	if err != nil {
		return err
	}
	if idx == nil {
		return errors.New("embedding.model is not configured (set it in memoforge.yml or MEMOFORGE_EMBEDDING_MODEL)")
	}

	var passages []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		passages = append(passages, retrieval.SplitPassages(string(data), indexPassageChars)...)
	}

	ids, err := idx.Index(cmd.Context(), documentID, passages)
	if err != nil {
		return err
	}
	a.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("passages", len(ids)),
		zap.Int("collection_size", idx.Count()),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d passages as %s\n", len(ids), documentID)
	return nil
}
