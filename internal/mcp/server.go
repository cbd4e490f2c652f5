package mcp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/streed/memo/internal/config"
	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/query"
	"github.com/streed/memo/internal/search"
)

// querySyntaxHelp is shared by the search tool description and prompt.
const querySyntaxHelp = `Query syntax:
- bare words and "quoted phrases" match title or body (case-insensitive substring)
- @title:word, @body:word and @tags:name restrict a term to one field (@tags: is exact)
- AND, OR, NOT (case-insensitive) combine terms; "-term" is shorthand for NOT term
- adjacent terms are ANDed; AND binds tighter than OR; parentheses group`

type NotesServer struct {
	cfg       *config.Config
	db        *sql.DB
	notes     *models.NoteRepository
	tags      *models.TagRepository
	searcher  search.SearchProvider
	mcpServer *server.MCPServer
}

func NewNotesServer(cfg *config.Config, db *sql.DB, notes *models.NoteRepository, tags *models.TagRepository, searcher search.SearchProvider) *NotesServer {
	ns := &NotesServer{
		cfg:      cfg,
		db:       db,
		notes:    notes,
		tags:     tags,
		searcher: searcher,
	}

	ns.mcpServer = server.NewMCPServer(
		"memo",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	ns.registerTools()
	ns.registerResources()
	ns.registerPrompts()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *NotesServer) registerTools() {
	addNoteTool := mcp.NewTool("add_note",
		mcp.WithDescription("Add a new note"),
		mcp.WithString("title",
			mcp.Description("The title of the note (defaults to an untitled placeholder)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The content of the note"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for the note (optional)"),
		),
	)
	s.mcpServer.AddTool(addNoteTool, s.handleAddNote)

	searchTool := mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes with the memo query language. Results are ordered by last update, newest first.\n\n"+querySyntaxHelp),
		mcp.WithString("query",
			mcp.Description("Query string; empty lists every note"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number (default: 1)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Notes per page (default: configured page size)"),
		),
		mcp.WithBoolean("trashed",
			mcp.Description("Search the trash instead of active notes (default: false)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchNotes)

	getNoteTool := mcp.NewTool("get_note",
		mcp.WithDescription("Get a specific note by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to retrieve"),
		),
	)
	s.mcpServer.AddTool(getNoteTool, s.handleGetNote)

	updateNoteTool := mcp.NewTool("update_note",
		mcp.WithDescription("Update the title and/or content of a note"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to update"),
		),
		mcp.WithString("title",
			mcp.Description("New title for the note (optional)"),
		),
		mcp.WithString("content",
			mcp.Description("New content for the note (optional)"),
		),
	)
	s.mcpServer.AddTool(updateNoteTool, s.handleUpdateNote)

	trashNoteTool := mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the trash, or restore it"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
		mcp.WithBoolean("restore",
			mcp.Description("Restore the note from the trash instead (default: false)"),
		),
	)
	s.mcpServer.AddTool(trashNoteTool, s.handleTrashNote)

	deleteNoteTool := mcp.NewTool("delete_note",
		mcp.WithDescription("Permanently delete a note by ID"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to delete"),
		),
	)
	s.mcpServer.AddTool(deleteNoteTool, s.handleDeleteNote)

	addTagTool := mcp.NewTool("add_tag",
		mcp.WithDescription("Attach a tag to a note, creating the tag if needed"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Tag name"),
		),
	)
	s.mcpServer.AddTool(addTagTool, s.handleAddTag)

	removeTagTool := mcp.NewTool("remove_tag",
		mcp.WithDescription("Detach a tag from a note"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
		mcp.WithString("tag",
			mcp.Required(),
			mcp.Description("Tag name"),
		),
	)
	s.mcpServer.AddTool(removeTagTool, s.handleRemoveTag)

	listTagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with their note counts"),
	)
	s.mcpServer.AddTool(listTagsTool, s.handleListTags)

	explainTool := mcp.NewTool("explain_query",
		mcp.WithDescription("Show how a search query is tokenized, parsed and compiled to SQL"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query string to explain"),
		),
	)
	s.mcpServer.AddTool(explainTool, s.handleExplainQuery)
}

func (s *NotesServer) registerResources() {
	recentResource := mcp.NewResource("notes://recent",
		"Recent Notes",
		mcp.WithResourceDescription("The most recently updated notes"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(recentResource, s.handleRecentNotes)

	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Counts of notes, trashed notes and tags"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)
}

func (s *NotesServer) registerPrompts() {
	searchPrompt := mcp.NewPrompt("search_notes",
		mcp.WithPromptDescription("Build a memo query for a natural-language request"),
		mcp.WithArgument("request",
			mcp.ArgumentDescription("What you are looking for"),
		),
	)
	s.mcpServer.AddPrompt(searchPrompt, s.handleSearchPrompt)
}

// Tool handlers

func (s *NotesServer) handleAddNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_note")

	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}
	title := request.GetString("title", "")

	note, err := s.notes.Create(title, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	for _, tag := range splitTags(request.GetString("tags", "")) {
		refs, err := s.tags.AddToNote(note.ID, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to tag note: %w", err)
		}
		note.Tags = refs
	}

	result := fmt.Sprintf("Note created successfully with ID: %d\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.TagNames(), ", "))
	}

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleSearchNotes(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: search_notes")

	opts := models.SearchOptions{
		Query:   request.GetString("query", ""),
		Trashed: request.GetBool("trashed", false),
		Page:    request.GetInt("page", constants.DefaultPage),
		Limit:   request.GetInt("limit", s.cfg.PageSize),
	}

	result, err := s.searcher.Search(opts)
	if err != nil {
		return toolError(err, "search failed")
	}

	if len(result.Notes) == 0 {
		return mcp.NewToolResultText("No notes found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes (page %d of %d):\n\n", result.Total, result.CurrentPage, result.TotalPages)
	for i, note := range result.Notes {
		tagsInfo := ""
		if len(note.Tags) > 0 {
			tagsInfo = fmt.Sprintf(" [Tags: %s]", strings.Join(note.TagNames(), ", "))
		}
		fmt.Fprintf(&b, "%d. [ID: %d] %s%s (Updated: %s)\n   %s\n\n",
			(result.CurrentPage-1)*opts.Limit+i+1, note.ID, note.Title, tagsInfo,
			note.UpdatedAt.Format("2006-01-02 15:04"),
			note.Preview())
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleGetNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_note")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	note, err := s.notes.GetByID(id)
	if err != nil {
		return toolError(err, "failed to get note")
	}

	return mcp.NewToolResultText(formatNote(note)), nil
}

func (s *NotesServer) handleUpdateNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: update_note")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	args := request.GetArguments()
	var title, content *string
	if v, ok := args["title"].(string); ok {
		title = &v
	}
	if v, ok := args["content"].(string); ok {
		content = &v
	}

	note, err := s.notes.Update(id, title, content)
	if err != nil {
		return toolError(err, "failed to update note")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note %d updated successfully.\nTitle: %s", note.ID, note.Title)), nil
}

func (s *NotesServer) handleTrashNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: trash_note")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	if request.GetBool("restore", false) {
		if err := s.notes.Restore(id); err != nil {
			return toolError(err, "failed to restore note")
		}
		return mcp.NewToolResultText(fmt.Sprintf("Restored note %d from the trash", id)), nil
	}

	if err := s.notes.MoveToTrash(id); err != nil {
		return toolError(err, "failed to trash note")
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved note %d to the trash", id)), nil
}

func (s *NotesServer) handleDeleteNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: delete_note")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	if err := s.notes.Delete(id); err != nil {
		return toolError(err, "failed to delete note")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted note %d", id)), nil
}

func (s *NotesServer) handleAddTag(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_tag")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}
	tag, err := request.RequireString("tag")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'tag': %w", err)
	}

	refs, err := s.tags.AddToNote(id, tag)
	if err != nil {
		return toolError(err, "failed to add tag")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note %d tags: %s", id, joinRefs(refs))), nil
}

func (s *NotesServer) handleRemoveTag(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: remove_tag")

	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}
	tag, err := request.RequireString("tag")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'tag': %w", err)
	}

	refs, err := s.tags.RemoveFromNote(id, tag)
	if err != nil {
		return toolError(err, "failed to remove tag")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note %d tags: %s", id, joinRefs(refs))), nil
}

func (s *NotesServer) handleListTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_tags")

	tags, err := s.tags.All()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tags:\n", len(tags))
	for _, tag := range tags {
		star := ""
		if tag.IsFavorite {
			star = " *"
		}
		fmt.Fprintf(&b, "- %s (%d)%s\n", tag.Name, tag.MemoCount, star)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleExplainQuery(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: explain_query")

	raw, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'query': %w", err)
	}

	exp, err := s.searcher.Explain(raw)
	if err != nil {
		return toolError(err, "failed to explain query")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nTokens:\n", exp.Query)
	for _, tok := range exp.Tokens {
		fmt.Fprintf(&b, "  %s %q\n", tok.Kind, tok.Text)
	}
	if exp.Predicate == nil {
		b.WriteString("\nThe query has no filter terms and matches every note.\n")
		return mcp.NewToolResultText(b.String()), nil
	}
	fmt.Fprintf(&b, "\nTree: %s\n\nSQL: %s\nParams: %v\n", exp.Tree, exp.Predicate.Fragment, exp.Predicate.Params)

	return mcp.NewToolResultText(b.String()), nil
}

// Resource handlers

func (s *NotesServer) handleRecentNotes(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://recent")

	result, err := s.searcher.Search(models.SearchOptions{Page: constants.DefaultPage, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent notes: %w", err)
	}

	var b strings.Builder
	b.WriteString("Recent Notes:\n\n")
	for i, note := range result.Notes {
		fmt.Fprintf(&b, "%d. [ID: %d] %s\n   Updated: %s\n   %s\n\n",
			i+1, note.ID, note.Title,
			note.UpdatedAt.Format("2006-01-02 15:04:05"),
			note.Preview())
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      "notes://recent",
			MIMEType: "text/plain",
			Text:     b.String(),
		},
	}, nil
}

func (s *NotesServer) handleStats(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://stats")

	var active, trashed, tagCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM notes WHERE is_trashed = 0),
			(SELECT COUNT(*) FROM notes WHERE is_trashed = 1),
			(SELECT COUNT(*) FROM tags)`).Scan(&active, &trashed, &tagCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get note counts: %w", err)
	}

	content := fmt.Sprintf(`Notes Database Statistics:
- Active Notes: %d
- Trashed Notes: %d
- Tags: %d
- Database Path: %s`,
		active, trashed, tagCount, s.cfg.GetDatabasePath())

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      "notes://stats",
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

// Prompt handlers

func (s *NotesServer) handleSearchPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	req := request.Params.Arguments["request"]

	prompt := fmt.Sprintf("Find notes matching this request: %s\n\n%s\n\nCall the search_notes tool with a query written in this syntax.", req, querySyntaxHelp)

	return &mcp.GetPromptResult{
		Description: "Search prompt for notes",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(prompt),
			},
		},
	}, nil
}

// toolError reports caller mistakes (bad syntax, unknown IDs) as tool
// results the model can read, and everything else as a protocol error.
func toolError(err error, action string) (*mcp.CallToolResult, error) {
	var perr *query.ParseError
	if errors.As(err, &perr) {
		return mcp.NewToolResultError("Invalid query syntax: " + perr.Error()), nil
	}
	if isUserError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, fmt.Errorf("%s: %w", action, err)
}

func isUserError(err error) bool {
	for _, target := range []error{
		interrors.ErrNoteNotFound,
		interrors.ErrTagNotFound,
		interrors.ErrTagAssociationNotFound,
		interrors.ErrNothingToUpdate,
		interrors.ErrEmptyTagName,
		interrors.ErrInvalidPage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func formatNote(note *models.Note) string {
	result := fmt.Sprintf("Note ID: %d\nTitle: %s", note.ID, note.Title)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.TagNames(), ", "))
	}
	if note.IsTrashed {
		result += "\nIn trash: yes"
	}
	result += fmt.Sprintf("\nCreated: %s\nUpdated: %s\n\nContent:\n%s",
		note.CreatedAt.Format("2006-01-02 15:04:05"),
		note.UpdatedAt.Format("2006-01-02 15:04:05"),
		note.Content)
	return result
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if clean := strings.TrimSpace(tag); clean != "" {
			tags = append(tags, clean)
		}
	}
	return tags
}

func joinRefs(refs []models.TagRef) string {
	if len(refs) == 0 {
		return "(none)"
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return strings.Join(names, ", ")
}
