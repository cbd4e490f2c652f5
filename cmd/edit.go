package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/models"
)

var editCmd = &cobra.Command{
	Use:   "edit <note-id>",
	Short: "Edit an existing note",
	Long: heredoc.Doc(`
		Change the title or content of a note.

		With --title or --content only the given fields are updated. Without
		either flag the note opens in your $EDITOR (or vi if not set) as:

		  Title: [note title]
		  ---
		  [note content]

		Everything after the "---" separator becomes the content.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editTitle   string
	editContent string
	editor      string
)

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editContent, "content", "c", "", "New content")
	editCmd.Flags().StringVarP(&editor, "editor", "e", "", "Specify editor to use (overrides $EDITOR)")
}

func runEdit(cmd *cobra.Command, args []string) error {
	noteID, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	var title, content *string
	if cmd.Flags().Changed("title") {
		title = &editTitle
	}
	if cmd.Flags().Changed("content") {
		content = &editContent
	}

	if title == nil && content == nil {
		note, err := noteRepo.GetByID(noteID)
		if err != nil {
			return fmt.Errorf("failed to get note %d: %w", noteID, err)
		}

		edited, err := editInEditor(formatForEditor(note), noteID)
		if err != nil {
			return err
		}

		newTitle, newContent := parseEditedNote(edited, note)
		if newTitle != note.Title {
			title = &newTitle
		}
		if newContent != note.Content {
			content = &newContent
		}
		if title == nil && content == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes detected.")
			return nil
		}
	}

	note, err := noteRepo.Update(noteID, title, content)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Note updated successfully")
	fmt.Fprintf(out, "ID: %d\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	return nil
}

func formatForEditor(note *models.Note) string {
	return fmt.Sprintf("Title: %s\n---\n%s", note.Title, note.Content)
}

// parseEditedNote reads back the editor format. Text without the header is
// taken as content and the original title is kept.
func parseEditedNote(edited string, original *models.Note) (title, content string) {
	lines := strings.Split(edited, "\n")

	title = original.Title
	sawTitle := false
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "Title:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
			sawTitle = true
		case line == "---":
			return title, strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}

	if sawTitle {
		return title, ""
	}
	return original.Title, strings.TrimSpace(edited)
}

// editInEditor writes text to a temp file, opens it in the editor and
// returns the result.
func editInEditor(text string, noteID int) (string, error) {
	tempFile, err := os.CreateTemp("", fmt.Sprintf("memo-%d-*.md", noteID))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(text); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tempFile.Close()

	if err := openInEditor(tempFile.Name()); err != nil {
		return "", err
	}

	editedBytes, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}

	return string(editedBytes), nil
}

func resolveEditor() string {
	for _, candidate := range []string{editor, os.Getenv("EDITOR"), os.Getenv("VISUAL")} {
		if candidate != "" {
			return candidate
		}
	}
	return "vi"
}

func openInEditor(filename string) error {
	editorCmd := resolveEditor()
	logger.Debug("Opening file in editor: %s %s", editorCmd, filename)

	// Editors may carry arguments, e.g. "code --wait".
	parts := strings.Fields(editorCmd)
	cmd := exec.Command(parts[0], append(parts[1:], filename)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editorCmd, err)
	}
	return nil
}
