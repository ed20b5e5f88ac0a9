package main

import (
	"fmt"
	"os"

	"github.com/cortexnotes/cortex/internal/cli"
	"github.com/cortexnotes/cortex/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cortex",
		Short: "Cortex CLI - Retrieval-augmented answers over your notes",
		Long: `Cortex CLI ingests documents into notebooks and answers questions over them.

Environment variables:
  CORTEX_API_KEY   API key for authentication (required)
  CORTEX_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.NotebookCmd())
	rootCmd.AddCommand(client.DocumentCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
