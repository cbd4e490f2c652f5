package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/streed/memo/internal/models"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// writeStructured encodes v as JSON or YAML. It returns false for text
// output so the caller can render its own layout.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func printNoteList(w io.Writer, notes []*models.Note, short bool) {
	for _, note := range notes {
		if short {
			fmt.Fprintf(w, "[%d] %s\n", note.ID, note.Title)
			continue
		}
		fmt.Fprintf(w, "ID: %d\n", note.ID)
		fmt.Fprintf(w, "Title: %s\n", note.Title)
		if len(note.Tags) > 0 {
			fmt.Fprintf(w, "Tags: %s\n", strings.Join(note.TagNames(), ", "))
		}
		fmt.Fprintf(w, "Updated: %s\n", formatTime(note.UpdatedAt))
		fmt.Fprintf(w, "Preview: %s\n", strings.ReplaceAll(note.Preview(), "\n", " "))
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}
}

func printNote(w io.Writer, note *models.Note) {
	fmt.Fprintf(w, "================================================================================\n")
	fmt.Fprintf(w, "ID: %d\n", note.ID)
	fmt.Fprintf(w, "Title: %s\n", note.Title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(note.TagNames(), ", "))
	}
	if note.IsTrashed {
		fmt.Fprintf(w, "Status: in trash\n")
	}
	fmt.Fprintf(w, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated: %s\n", note.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "================================================================================\n\n")
	fmt.Fprintln(w, note.Content)
	fmt.Fprintln(w)
}

func formatTime(t time.Time) string {
	return formatTimeSince(t, time.Now())
}

func formatTimeSince(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
