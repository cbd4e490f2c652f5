package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: heredoc.Doc(`
		Start a Model Context Protocol (MCP) server on stdio so LLM clients can
		read and search your notes.

		Tools:
		  add_note, get_note, update_note, trash_note, delete_note
		  search_notes   search with the memo query language
		  add_tag, remove_tag, list_tags
		  explain_query  show how a query is tokenized, parsed and compiled

		Resources:
		  notes://recent  most recently updated notes
		  notes://stats   note and tag counts

		To use with an MCP client, register the command:
		{
		  "mcpServers": {
		    "memo": {
		      "command": "memo",
		      "args": ["mcp"]
		    }
		  }
		}
	`),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger.Info("Starting MCP server...")

	notesServer := mcp.NewNotesServer(appConfig, db.Conn(), noteRepo, tagRepo, searcher)
	mcpServer := notesServer.GetMCPServer()

	logger.Info("MCP server ready. Listening on stdio...")
	if err := server.ServeStdio(mcpServer); err != nil {
		if err.Error() != "EOF" {
			logger.Error("MCP server error: %v", err)
			return err
		}
	}

	logger.Info("MCP server shutting down")
	return nil
}
