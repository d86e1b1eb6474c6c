package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lavender",
	Short: "Query form submissions by field and value",
	Long: `lavender serves the submission query API for jocarsa-lavender forms.

Clients name a form by its public hash, a field by its title (tolerating
accent, casing and wording drift) and a value to match. Only the form's
owner may query it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: lavender.yaml in ., ./config or /etc/lavender)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(seedCmd)
}
