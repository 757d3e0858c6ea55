package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knowledgerelay/relay/internal/cli"
	"github.com/knowledgerelay/relay/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relayd",
		Short: "Knowledge relay daemon",
		Long:  "Knowledge relay daemon for running the API server and maintenance tasks",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
