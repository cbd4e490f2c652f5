package cmd

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var trashCmd = &cobra.Command{
	Use:   "trash [note IDs...]",
	Short: "Move notes to the trash",
	Long: heredoc.Doc(`
		Move notes to the trash. Trashed notes are hidden from normal searches
		and can be found with 'memo search --trashed' or 'memo trash list'.

		Examples:
		  memo trash 12 13          # Move notes 12 and 13 to the trash
		  memo trash restore 12     # Bring note 12 back
		  memo trash empty          # Permanently delete everything in the trash
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: runTrash,
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <note IDs...>",
	Short: "Restore notes from the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrashRestore,
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Permanently delete every note in the trash",
	Args:  cobra.NoArgs,
	RunE:  runTrashEmpty,
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes in the trash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		trashListOpts.trashed = true
		return searchNotes(cmd, &trashListOpts, nil)
	},
}

var (
	forceEmpty    bool
	trashListOpts searchFlags
)

func init() {
	rootCmd.AddCommand(trashCmd)
	trashCmd.AddCommand(trashRestoreCmd)
	trashCmd.AddCommand(trashEmptyCmd)
	trashCmd.AddCommand(trashListCmd)
	addSearchFlags(trashListCmd, &trashListOpts)
	trashEmptyCmd.Flags().BoolVarP(&forceEmpty, "force", "f", false, "Skip confirmation prompt")
}

func runTrash(cmd *cobra.Command, args []string) error {
	return applyToNotes(cmd, args, noteRepo.MoveToTrash, "Moved note %d to the trash\n")
}

func runTrashRestore(cmd *cobra.Command, args []string) error {
	return applyToNotes(cmd, args, noteRepo.Restore, "Restored note %d\n")
}

func applyToNotes(cmd *cobra.Command, args []string, apply func(int) error, format string) error {
	for _, arg := range args {
		id, err := parseNoteID(arg)
		if err != nil {
			return err
		}
		if err := apply(id); err != nil {
			return fmt.Errorf("note %d: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), format, id)
	}
	return nil
}

func runTrashEmpty(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !forceEmpty && !confirm(cmd.InOrStdin(), out, "Permanently delete every note in the trash? (y/N): ") {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	deleted, err := noteRepo.EmptyTrash()
	if err != nil {
		return fmt.Errorf("failed to empty trash: %w", err)
	}

	fmt.Fprintf(out, "Deleted %d note(s) from the trash.\n", deleted)
	return nil
}
