// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-user-panel",
	Short: "GoUserPanel is a web-based user and role management panel",
	Long: `GoUserPanel is a web-based management panel providing user accounts,
precedence-ranked roles and combined per-page permissions through a REST API.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
