package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := RequireApp()
		if err != nil {
			return err
		}

		var applied []string
		if c.DBDriver == database.DriverPostgres {
			applied, err = migrations.RunPostgres(cmd.Context(), c.Config.DatabaseURL)
		} else {
			applied, err = migrations.Run(cmd.Context(), c.DB)
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database is up to date.")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(out, "applied %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
