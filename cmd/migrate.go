package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/migrations"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: heredoc.Doc(`
		Manage database migrations and schema changes.

		This command provides utilities to check migration status and manage database schema changes.
	`),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of database migrations",
	Long: heredoc.Doc(`
		Display which database migrations have been applied and which are pending.

		This helps you understand the current state of your database schema.
	`),
	RunE: showMigrationStatus,
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pending database migrations",
	Long: heredoc.Doc(`
		Manually run any pending database migrations.

		Note: Migrations are automatically run when the database is opened, so this
		command is typically only needed for troubleshooting or after a rollback.
	`),
	RunE: runMigrations,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback [migration-id]",
	Short: "Roll back a single applied migration",
	Long: heredoc.Doc(`
		Run the down step of an applied migration and forget that it was applied.

		Migrations without a down step cannot be rolled back. The next run of
		'memo migrate run' (or any command that opens the database) applies it again.
	`),
	Args: cobra.ExactArgs(1),
	RunE: rollbackMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

func showMigrationStatus(cmd *cobra.Command, args []string) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	migrationRunner := migrations.NewMigrationRunner(db.Conn())

	status, err := migrationRunner.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "MIGRATION ID\tSTATUS\tREVERSIBLE\tDESCRIPTION\n")
	fmt.Fprintf(w, "------------\t------\t----------\t-----------\n")

	appliedCount := 0
	for _, migration := range status {
		statusText := "PENDING"
		if migration.Applied {
			statusText = "APPLIED"
			appliedCount++
		}
		reversible := "no"
		if migration.Reversible {
			reversible = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", migration.ID, statusText, reversible, migration.Description)
	}

	w.Flush()

	fmt.Fprintf(out, "\nTotal migrations: %d\n", len(status))
	fmt.Fprintf(out, "Applied: %d\n", appliedCount)
	fmt.Fprintf(out, "Pending: %d\n", len(status)-appliedCount)

	return nil
}

func runMigrations(cmd *cobra.Command, args []string) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	migrationRunner := migrations.NewMigrationRunner(db.Conn())

	applied, err := migrationRunner.Run()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if applied == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully!\n", applied)
	return nil
}

func rollbackMigration(cmd *cobra.Command, args []string) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	migrationRunner := migrations.NewMigrationRunner(db.Conn())
	if err := migrationRunner.RollbackMigration(args[0]); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rolled back migration %s\n", args[0])
	return nil
}
