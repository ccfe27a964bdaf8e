package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"guestlist/config"
	"guestlist/internal/repository/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the document tables",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := postgres.Open(cmd.Context(), cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.Migrate(cmd.Context(), db)
	if err != nil {
		return err
	}
	for _, name := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}
