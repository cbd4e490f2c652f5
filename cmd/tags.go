package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/models"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage note tags",
	Long: heredoc.Doc(`
		Manage tags for notes. Tags help organize your notes and can be searched
		with @tags:name.

		Commands:
		  list                 List all tags with their note counts
		  favorites            List favorite tags
		  others               List non-favorite tags, most used first
		  add <id> <tag>...    Add tags to a note
		  remove <id> <tag>... Remove tags from a note
		  favorite <tag>       Toggle the favorite flag of a tag
	`),
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	Long:  `List all tags in the system with their usage count.`,
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsFavoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "List favorite tags",
	Args:  cobra.NoArgs,
	RunE:  runTagsFavorites,
}

var tagsOthersCmd = &cobra.Command{
	Use:   "others",
	Short: "List non-favorite tags, most used first",
	Args:  cobra.NoArgs,
	RunE:  runTagsOthers,
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <note-id> <tag>...",
	Short: "Add tags to a note",
	Long: heredoc.Doc(`
		Add one or more tags to an existing note. Missing tags are created.

		Example:
		  memo tags add 123 research ai
	`),
	Args: cobra.MinimumNArgs(2),
	RunE: runTagsAdd,
}

var tagsRemoveCmd = &cobra.Command{
	Use:   "remove <note-id> <tag>...",
	Short: "Remove tags from a note",
	Long: heredoc.Doc(`
		Remove specific tags from a note. The tags themselves are kept.

		Example:
		  memo tags remove 123 outdated
	`),
	Args: cobra.MinimumNArgs(2),
	RunE: runTagsRemove,
}

var tagsFavoriteCmd = &cobra.Command{
	Use:   "favorite <tag>",
	Short: "Toggle the favorite flag of a tag",
	Long:  `Toggle whether a tag is a favorite. The tag may be given by name or by numeric ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsFavorite,
}

var (
	tagsPage  int
	tagsLimit int
)

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsFavoritesCmd)
	tagsCmd.AddCommand(tagsOthersCmd)
	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsRemoveCmd)
	tagsCmd.AddCommand(tagsFavoriteCmd)

	tagsOthersCmd.Flags().IntVarP(&tagsPage, "page", "p", constants.DefaultPage, "Page number")
	tagsOthersCmd.Flags().IntVarP(&tagsLimit, "limit", "l", 0, "Tags per page (default from config)")
}

func printTags(cmd *cobra.Command, tags []*models.Tag) {
	out := cmd.OutOrStdout()
	if len(tags) == 0 {
		fmt.Fprintln(out, "No tags found.")
		return
	}

	fmt.Fprintf(out, "Found %d tags:\n\n", len(tags))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tNOTES\tFAVORITE")
	for _, tag := range tags {
		fav := ""
		if tag.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", tag.ID, tag.Name, tag.MemoCount, fav)
	}
	w.Flush()
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	tags, err := tagRepo.All()
	if err != nil {
		return fmt.Errorf("failed to get tags: %w", err)
	}
	printTags(cmd, tags)
	return nil
}

func runTagsFavorites(cmd *cobra.Command, _ []string) error {
	tags, err := tagRepo.Favorites()
	if err != nil {
		return fmt.Errorf("failed to get favorite tags: %w", err)
	}
	printTags(cmd, tags)
	return nil
}

func runTagsOthers(cmd *cobra.Command, _ []string) error {
	limit := tagsLimit
	if limit == 0 {
		limit = appConfig.PageSize
	}
	page, err := tagRepo.Others(tagsPage, limit)
	if err != nil {
		return fmt.Errorf("failed to get tags: %w", err)
	}
	printTags(cmd, page.Tags)
	if page.TotalPages > 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d\n", page.CurrentPage, page.TotalPages)
	}
	return nil
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	noteID, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	var refs []models.TagRef
	for _, name := range args[1:] {
		refs, err = tagRepo.AddToNote(noteID, name)
		if err != nil {
			return fmt.Errorf("failed to add tag %q: %w", name, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Note %d tags: %s\n", noteID, formatRefs(refs))
	return nil
}

func runTagsRemove(cmd *cobra.Command, args []string) error {
	noteID, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	var refs []models.TagRef
	for _, name := range args[1:] {
		refs, err = tagRepo.RemoveFromNote(noteID, name)
		if err != nil {
			return fmt.Errorf("failed to remove tag %q: %w", name, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Note %d tags: %s\n", noteID, formatRefs(refs))
	return nil
}

func runTagsFavorite(cmd *cobra.Command, args []string) error {
	tag, err := lookupTag(args[0])
	if err != nil {
		return err
	}

	toggled, err := tagRepo.ToggleFavorite(tag.ID)
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}

	state := "no longer a favorite"
	if toggled.IsFavorite {
		state = "now a favorite"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tag %q is %s\n", toggled.Name, state)
	return nil
}

// lookupTag resolves a tag by name, falling back to a numeric ID.
func lookupTag(arg string) (*models.Tag, error) {
	tag, err := tagRepo.GetByName(arg)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, interrors.ErrTagNotFound) {
		return nil, err
	}
	if id, convErr := strconv.Atoi(arg); convErr == nil {
		return tagRepo.GetByID(id)
	}
	return nil, fmt.Errorf("%w: %s", interrors.ErrTagNotFound, arg)
}

func formatRefs(refs []models.TagRef) string {
	if len(refs) == 0 {
		return "(none)"
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return strings.Join(names, ", ")
}
