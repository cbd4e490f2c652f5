package mcp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/memo/internal/config"
	"github.com/streed/memo/internal/database"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/search"
)

func newTestNotesServer(t *testing.T) *NotesServer {
	t.Helper()
	tempDir := t.TempDir()

	cfg := config.Default()
	cfg.DataDirectory = tempDir
	cfg.DatabasePath = filepath.Join(tempDir, "mcp.db")

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notes := models.NewNoteRepository(db.Conn())
	tags := models.NewTagRepository(db.Conn())
	searcher := search.NewSearcher(notes, search.Options{CacheSize: 8, CacheTTL: time.Minute}, nil)

	return NewNotesServer(cfg, db.Conn(), notes, tags, searcher)
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func TestAddAndGetNote(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	res, err := s.handleAddNote(ctx, callTool("add_note", map[string]any{
		"title":   "Standup",
		"content": "Discussed the release",
		"tags":    "work, meetings ,",
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Note created successfully with ID: 1")
	assert.Contains(t, text, "Tags: meetings, work")

	res, err = s.handleGetNote(ctx, callTool("get_note", map[string]any{"id": float64(1)}))
	require.NoError(t, err)
	text = resultText(t, res)
	assert.Contains(t, text, "Title: Standup")
	assert.Contains(t, text, "Discussed the release")

	res, err = s.handleGetNote(ctx, callTool("get_note", map[string]any{"id": float64(42)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "note not found")

	_, err = s.handleAddNote(ctx, callTool("add_note", map[string]any{"title": "no content"}))
	assert.Error(t, err)
}

func TestAddNoteDefaultTitle(t *testing.T) {
	s := newTestNotesServer(t)

	res, err := s.handleAddNote(context.Background(), callTool("add_note", map[string]any{"content": "body"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Title: 無題のメモ")
}

func TestSearchNotesTool(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	plan, err := s.notes.Create("Project plan", "Q3 goals")
	require.NoError(t, err)
	_, err = s.notes.Create("Groceries", "milk")
	require.NoError(t, err)
	_, err = s.tags.AddToNote(plan.ID, "work")
	require.NoError(t, err)

	res, err := s.handleSearchNotes(ctx, callTool("search_notes", map[string]any{"query": "@tags:work"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Found 1 notes (page 1 of 1)")
	assert.Contains(t, text, "Project plan [Tags: work]")
	assert.NotContains(t, text, "Groceries")

	res, err = s.handleSearchNotes(ctx, callTool("search_notes", map[string]any{"query": "nothing-matches"}))
	require.NoError(t, err)
	assert.Equal(t, "No notes found matching your query.", resultText(t, res))

	res, err = s.handleSearchNotes(ctx, callTool("search_notes", map[string]any{"query": "(a OR b"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Invalid query syntax")

	res, err = s.handleSearchNotes(ctx, callTool("search_notes", map[string]any{"limit": float64(1), "page": float64(2)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "page 2 of 2")
}

func TestTrashTool(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	note, err := s.notes.Create("old", "")
	require.NoError(t, err)

	res, err := s.handleTrashNote(ctx, callTool("trash_note", map[string]any{"id": float64(note.ID)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Moved note")

	res, err = s.handleSearchNotes(ctx, callTool("search_notes", map[string]any{"trashed": true}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "old")

	res, err = s.handleTrashNote(ctx, callTool("trash_note", map[string]any{"id": float64(note.ID), "restore": true}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Restored note")

	got, err := s.notes.GetByID(note.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTrashed)
}

func TestUpdateAndDeleteTools(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	note, err := s.notes.Create("title", "content")
	require.NoError(t, err)

	res, err := s.handleUpdateNote(ctx, callTool("update_note", map[string]any{"id": float64(note.ID), "content": ""}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	got, err := s.notes.GetByID(note.ID)
	require.NoError(t, err)
	assert.Equal(t, "title", got.Title)
	assert.Equal(t, "", got.Content)

	res, err = s.handleUpdateNote(ctx, callTool("update_note", map[string]any{"id": float64(note.ID)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleDeleteNote(ctx, callTool("delete_note", map[string]any{"id": float64(note.ID)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Successfully deleted note")

	res, err = s.handleDeleteNote(ctx, callTool("delete_note", map[string]any{"id": float64(note.ID)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTagTools(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	note, err := s.notes.Create("n", "")
	require.NoError(t, err)

	res, err := s.handleAddTag(ctx, callTool("add_tag", map[string]any{"id": float64(note.ID), "tag": "go"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "tags: go")

	res, err = s.handleListTags(ctx, callTool("list_tags", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "- go (1)")

	res, err = s.handleRemoveTag(ctx, callTool("remove_tag", map[string]any{"id": float64(note.ID), "tag": "go"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "(none)")

	res, err = s.handleRemoveTag(ctx, callTool("remove_tag", map[string]any{"id": float64(note.ID), "tag": "go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleAddTag(ctx, callTool("add_tag", map[string]any{"id": float64(note.ID), "tag": "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExplainTool(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	res, err := s.handleExplainQuery(ctx, callTool("explain_query", map[string]any{"query": "a -b"}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, `Tree: And(Term("a"), Not(Term("b")))`)
	assert.Contains(t, text, "SQL: ")
	assert.Contains(t, text, "MINUS")

	res, err = s.handleExplainQuery(ctx, callTool("explain_query", map[string]any{"query": "   "}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "matches every note")
}

func TestResources(t *testing.T) {
	s := newTestNotesServer(t)
	ctx := context.Background()

	note, err := s.notes.Create("recent one", "")
	require.NoError(t, err)
	_, err = s.tags.AddToNote(note.ID, "x")
	require.NoError(t, err)
	trashed, err := s.notes.Create("gone", "")
	require.NoError(t, err)
	require.NoError(t, s.notes.MoveToTrash(trashed.ID))

	contents, err := s.handleStats(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	stats := contents[0].(*mcp.TextResourceContents).Text
	assert.Contains(t, stats, "Active Notes: 1")
	assert.Contains(t, stats, "Trashed Notes: 1")
	assert.Contains(t, stats, "Tags: 1")

	contents, err = s.handleRecentNotes(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	recent := contents[0].(*mcp.TextResourceContents).Text
	assert.Contains(t, recent, "recent one")
	assert.NotContains(t, recent, "gone")
}

func TestSearchPrompt(t *testing.T) {
	s := newTestNotesServer(t)

	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"request": "unfinished work notes"}

	res, err := s.handleSearchPrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, mcp.RoleUser, res.Messages[0].Role)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTags(" a,,b , "))
	assert.Nil(t, splitTags(""))
}
