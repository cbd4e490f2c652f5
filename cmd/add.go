package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/models"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new note",
	Long: heredoc.Doc(`
		Add a new note. A note without a title gets a placeholder title.

		Content can be provided in two ways:
		  1. Via --content flag: memo add -t "Title" -c "Content"
		  2. Via stdin:          echo "Content" | memo add -t "Title"
	`),
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var (
	addTitle   string
	addContent string
	addTags    []string
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Note title")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Note content")
	addCmd.Flags().StringSliceVarP(&addTags, "tags", "T", []string{}, "Tags for the note (comma-separated)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	content := addContent
	if !cmd.Flags().Changed("content") && stdinIsPiped(cmd) {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read content from stdin: %w", err)
		}
		content = strings.TrimRight(string(data), "\n")
	}

	note, err := createNote(addTitle, content, addTags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Note created successfully!\n")
	fmt.Fprintf(out, "ID: %d\n", note.ID)
	fmt.Fprintf(out, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.TagNames(), ", "))
	}
	fmt.Fprintf(out, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	return nil
}

// createNote stores a note and attaches tags, skipping blank names.
func createNote(title, content string, tags []string) (*models.Note, error) {
	note, err := noteRepo.Create(title, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		refs, err := tagRepo.AddToNote(note.ID, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to tag note %d: %w", note.ID, err)
		}
		note.Tags = refs
	}

	return note, nil
}

// stdinIsPiped reports whether input comes from a pipe or a test reader
// rather than an interactive terminal.
func stdinIsPiped(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
