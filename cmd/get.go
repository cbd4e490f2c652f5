package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	interrors "github.com/streed/memo/internal/errors"
)

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a note by ID",
	Long:  `Display the full content of a note by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var getOutput string

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringVarP(&getOutput, "output", "o", outputText, "Output format: text, json or yaml")
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := validateOutput(getOutput); err != nil {
		return err
	}

	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	note, err := noteRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	out := cmd.OutOrStdout()
	if done, err := writeStructured(out, getOutput, note); done {
		return err
	}

	printNote(out, note)
	return nil
}

func parseNoteID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s", interrors.ErrInvalidNoteID, arg)
	}
	return id, nil
}
