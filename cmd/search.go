package cmd

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/constants"
	"github.com/streed/memo/internal/models"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search notes",
	Long: heredoc.Doc(`
		Search notes with the memo query language. Results are ordered by last
		update, newest first.

		Examples:
		  memo search meeting notes
		  memo search '@tags:work AND NOT @tags:done'
		  memo search --trashed '"old draft"'
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return searchNotes(cmd, &searchOpts, args)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Long:  `List notes newest first, one page at a time.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return searchNotes(cmd, &listOpts, nil)
	},
}

type searchFlags struct {
	page    int
	limit   int
	trashed bool
	short   bool
	output  string
}

var (
	searchOpts searchFlags
	listOpts   searchFlags
)

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	addSearchFlags(searchCmd, &searchOpts)
	addSearchFlags(listCmd, &listOpts)
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().IntVarP(&f.page, "page", "p", constants.DefaultPage, "Page number")
	cmd.Flags().IntVarP(&f.limit, "limit", "l", 0, "Notes per page (default from config)")
	cmd.Flags().BoolVar(&f.trashed, "trashed", false, "Search the trash instead of active notes")
	cmd.Flags().BoolVarP(&f.short, "short", "s", false, "Show only ID and title")
	cmd.Flags().StringVarP(&f.output, "output", "o", outputText, "Output format: text, json or yaml")
}

func searchNotes(cmd *cobra.Command, f *searchFlags, args []string) error {
	if err := validateOutput(f.output); err != nil {
		return err
	}

	limit := f.limit
	if limit == 0 {
		limit = appConfig.PageSize
	}

	result, err := searcher.Search(models.SearchOptions{
		Query:   strings.Join(args, " "),
		Trashed: f.trashed,
		Page:    f.page,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(out, f.output, result); done {
		return err
	}

	if len(result.Notes) == 0 {
		fmt.Fprintln(out, "No matching notes found.")
		return nil
	}

	if len(result.Notes) == 1 && result.Total == 1 {
		fmt.Fprintln(out, "Found 1 matching note:")
	} else {
		fmt.Fprintf(out, "Found %d matching notes (page %d of %d):\n", result.Total, result.CurrentPage, result.TotalPages)
	}
	fmt.Fprintln(out)

	printNoteList(out, result.Notes, f.short)
	return nil
}
