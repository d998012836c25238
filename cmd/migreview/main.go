package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/migreview/internal/cli"
	"github.com/example/migreview/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "migreview",
		Short:   "migreview - review PostgreSQL to CockroachDB schema translations",
		Version: version.String(),
		Long: `migreview is a CLI tool for reviewing and correcting the statements a
migration service translated from PostgreSQL to CockroachDB.
Batches are fetched from the service, fixed locally and saved back or exported.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.BatchCmd())
	rootCmd.AddCommand(cli.FixCmd())
	rootCmd.AddCommand(cli.ConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
