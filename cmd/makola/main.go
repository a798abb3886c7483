package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Register migrations via their init() funcs.
	_ "github.com/kgyan/makola/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "makola",
	Short: "Makola — market delivery platform CLI",
	Long:  "Makola connects consumers, market vendors, and pickup shoppers. Use this CLI to run the server and manage the database.",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
}
