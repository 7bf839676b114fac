// Package main implements the memoforge CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides config file discovery.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// version is set by goreleaser at build time.
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memoforge",
	Short: "Generate fact-grounded investment memos",
	Long: `memoforge drafts investment memos section by section from a structured
facts file, optionally grounded in passages retrieved from an indexed source
document, and validates the result.

Settings come from memoforge.yml in the working directory (or --config) and
MEMOFORGE_* environment variables, for example MEMOFORGE_LLM_API_KEY.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./memoforge.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
