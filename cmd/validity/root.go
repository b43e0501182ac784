// validity is the command line front end: analyze documents locally, print
// the taxonomy and apply database migrations.
//
// Usage:
//
//	validity analyze memo.txt --timeout 120s --pretty
//	cat memo.txt | validity analyze -
//	validity taxonomy
//	validity migrate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "validity",
	Short: "Audit a document for reasoning-quality defects",
	Long: "Validity splits a document into chunks, asks the configured oracle to find\n" +
		"reasoning failures in each, and merges the answers into one scored report.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
