// Package cli implements the bluecarbon command-line client for the registry API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "bluecarbon",
	Short: "Blue carbon MRV registry client",
	Long: `bluecarbon drives the registry API from a terminal.

Field workers submit restoration sites, NGOs review them, administrators
issue credits and corporate buyers purchase and retire them.

Environment Variables:
  BLUECARBON_API    API endpoint (default: http://localhost:8080/api)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(purchaseCmd)
	rootCmd.AddCommand(retireCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(summaryCmd)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// warn prints a persistence warning returned with a receipt
func warn(msg string) {
	if msg != "" {
		fmt.Fprintf(os.Stderr, "! %s\n", msg)
	}
}
