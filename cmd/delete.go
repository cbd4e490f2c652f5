package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/logger"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [note IDs...]",
	Short: "Permanently delete one or more notes",
	Long: heredoc.Doc(`
		Permanently delete notes by their IDs, bypassing the trash.

		By default, you will be prompted for confirmation before deletion.
		Use --force to skip the confirmation prompt. To keep a note recoverable
		use 'memo trash <id>' instead.
	`),
	Args:    cobra.MinimumNArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runDelete,
}

var forceDelete bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	noteIDs := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseNoteID(arg)
		if err != nil {
			return err
		}
		noteIDs = append(noteIDs, id)
	}

	// Keep argument order for stable output.
	var ids []int
	titles := make(map[int]string)
	for _, id := range noteIDs {
		if _, seen := titles[id]; seen {
			continue
		}
		note, err := noteRepo.GetByID(id)
		if err != nil {
			logger.Error("Note with ID %d not found: %v", id, err)
			fmt.Fprintf(out, "Warning: Note with ID %d not found\n", id)
			continue
		}
		ids = append(ids, id)
		titles[id] = note.Title
	}

	if len(ids) == 0 {
		fmt.Fprintln(out, "No valid notes to delete.")
		return nil
	}

	fmt.Fprintln(out, "The following notes will be deleted:")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, id := range ids {
		fmt.Fprintf(out, "  [%d] %s\n", id, titles[id])
	}
	fmt.Fprintln(out, strings.Repeat("-", 60))

	if !forceDelete && !confirm(cmd.InOrStdin(), out, deletePrompt(len(ids))) {
		fmt.Fprintln(out, "Deletion cancelled.")
		return nil
	}

	successCount := 0
	failCount := 0
	for _, id := range ids {
		if err := noteRepo.Delete(id); err != nil {
			logger.Error("Failed to delete note %d: %v", id, err)
			fmt.Fprintf(out, "✗ Failed to delete note %d: %v\n", id, err)
			failCount++
			continue
		}
		fmt.Fprintf(out, "✓ Deleted note %d: %s\n", id, titles[id])
		successCount++
	}

	fmt.Fprintln(out, strings.Repeat("=", 60))
	if failCount == 0 {
		fmt.Fprintf(out, "Successfully deleted %d note(s).\n", successCount)
	} else {
		fmt.Fprintf(out, "Deleted %d note(s), failed to delete %d note(s).\n", successCount, failCount)
	}

	return nil
}

func deletePrompt(count int) string {
	if count == 1 {
		return "Are you sure you want to delete this note? (y/N): "
	}
	return fmt.Sprintf("Are you sure you want to delete %d notes? (y/N): ", count)
}

// confirm prints prompt and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	reader := bufio.NewReader(in)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes"
}
