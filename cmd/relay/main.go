package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knowledgerelay/relay/internal/cli"
	"github.com/knowledgerelay/relay/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "Relay CLI - capture and query project knowledge",
		Long: `Relay CLI turns what a departing team member knows into a queryable
knowledge base: ingest documents and Q&A pairs, run guided interviews,
then ask questions against the collected knowledge.

Environment variables:
  RELAY_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ProjectCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.InterviewCmd())
	rootCmd.AddCommand(client.AskCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
