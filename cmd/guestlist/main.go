// Command guestlist runs the promoter guestlist API.
//
// @title Guestlist API
// @version 1.0
// @description Events, collector invitation links, guestlists with RSVP tracking and notification templates.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token from /auth/signin.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "guestlist",
	Short: "Guestlist - events, collector links and RSVP tracking for promoters",
	Long: `Guestlist serves the promoter API: events with embedded guestlists, tokenized
collector invitation links, RSVP tracking, notification templates and a live change stream.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "guestlist %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
