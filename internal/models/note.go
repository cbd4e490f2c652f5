package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/query"
)

// TimestampLayout is the fixed-width UTC layout stored in created_at and
// updated_at so that text ordering matches time ordering.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// legacyLayouts are accepted when reading rows written by older versions.
var legacyLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

type TagRef struct {
	Name string `json:"name" yaml:"name"`
}

type Note struct {
	ID        int       `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	IsTrashed bool      `json:"is_trashed" yaml:"is_trashed"`
	Tags      []TagRef  `json:"tags" yaml:"tags"`
}

// TagNames returns the names of the note's tags in order.
func (n *Note) TagNames() []string {
	names := make([]string, len(n.Tags))
	for i, t := range n.Tags {
		names[i] = t.Name
	}
	return names
}

// Preview returns at most constants.PreviewLength runes of the content.
func (n *Note) Preview() string {
	runes := []rune(n.Content)
	if len(runes) <= constants.PreviewLength {
		return n.Content
	}
	return string(runes[:constants.PreviewLength]) + "..."
}

// PredicateCompiler turns a raw query string into a SQL predicate.
// A nil predicate means no filter.
type PredicateCompiler interface {
	Compile(raw string) (*query.Predicate, error)
}

type compilerFunc func(string) (*query.Predicate, error)

func (f compilerFunc) Compile(raw string) (*query.Predicate, error) { return f(raw) }

type NoteRepository struct {
	db       *sql.DB
	compiler PredicateCompiler
	now      func() time.Time
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{
		db:       db,
		compiler: compilerFunc(query.Compile),
		now:      time.Now,
	}
}

// WithCompiler replaces the query compiler used by Search.
func (r *NoteRepository) WithCompiler(c PredicateCompiler) *NoteRepository {
	r.compiler = c
	return r
}

func (r *NoteRepository) timestamp() string {
	return r.now().UTC().Format(TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

const noteColumns = "n.id, n.title, n.content, n.created_at, n.updated_at, n.is_trashed"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var note Note
	var createdAt, updatedAt string
	if err := row.Scan(&note.ID, &note.Title, &note.Content, &createdAt, &updatedAt, &note.IsTrashed); err != nil {
		return nil, err
	}

	var err error
	if note.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if note.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	note.Tags = []TagRef{}
	return &note, nil
}

// Create inserts a note. An empty title falls back to constants.DefaultNoteTitle.
func (r *NoteRepository) Create(title, content string) (*Note, error) {
	if strings.TrimSpace(title) == "" {
		title = constants.DefaultNoteTitle
	}
	now := r.timestamp()

	result, err := r.db.Exec(
		"INSERT INTO notes (title, content, created_at, updated_at) VALUES (?, ?, ?, ?)",
		title, content, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert id: %w", err)
	}

	return r.GetByID(int(id))
}

func (r *NoteRepository) GetByID(id int) (*Note, error) {
	note, err := scanNote(r.db.QueryRow("SELECT "+noteColumns+" FROM notes n WHERE n.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	if err := r.attachTags([]*Note{note}); err != nil {
		return nil, err
	}
	return note, nil
}

// Update changes the non-nil fields and bumps updated_at.
func (r *NoteRepository) Update(id int, title, content *string) (*Note, error) {
	if title == nil && content == nil {
		return nil, interrors.ErrNothingToUpdate
	}

	var sets []string
	var args []any
	if title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *title)
	}
	if content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *content)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.timestamp(), id)

	result, err := r.db.Exec("UPDATE notes SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *NoteRepository) Delete(id int) error {
	result, err := r.db.Exec("DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return requireRow(result)
}

func (r *NoteRepository) MoveToTrash(id int) error {
	return r.setTrashed(id, true)
}

func (r *NoteRepository) Restore(id int) error {
	return r.setTrashed(id, false)
}

func (r *NoteRepository) setTrashed(id int, trashed bool) error {
	result, err := r.db.Exec("UPDATE notes SET is_trashed = ? WHERE id = ?", trashed, id)
	if err != nil {
		return fmt.Errorf("failed to update trash state: %w", err)
	}
	return requireRow(result)
}

// EmptyTrash permanently deletes every trashed note and returns how many
// were removed. Tag links go with them via ON DELETE CASCADE.
func (r *NoteRepository) EmptyTrash() (int, error) {
	result, err := r.db.Exec("DELETE FROM notes WHERE is_trashed = 1")
	if err != nil {
		return 0, fmt.Errorf("failed to empty trash: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return interrors.ErrNoteNotFound
	}
	return nil
}

type SearchOptions struct {
	Query   string
	Trashed bool
	Page    int
	Limit   int
}

type SearchResult struct {
	Notes       []*Note `json:"notes" yaml:"notes"`
	TotalPages  int     `json:"total_pages" yaml:"total_pages"`
	CurrentPage int     `json:"current_page" yaml:"current_page"`
	Total       int     `json:"total" yaml:"total"`
}

// Search returns one page of notes matching opts.Query, newest first.
// Query parse errors are returned unwrapped as *query.ParseError.
func (r *NoteRepository) Search(opts SearchOptions) (*SearchResult, error) {
	if opts.Page < 1 || opts.Limit < 1 {
		return nil, interrors.ErrInvalidPage
	}
	if opts.Limit > constants.MaxPageLimit {
		opts.Limit = constants.MaxPageLimit
	}

	conditions := []string{"n.is_trashed = ?"}
	params := []any{opts.Trashed}

	if opts.Query != "" {
		pred, err := r.compiler.Compile(opts.Query)
		if err != nil {
			return nil, err
		}
		if pred != nil {
			conditions = append(conditions, pred.Fragment)
			params = append(params, pred.Params...)
		}
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow("SELECT COUNT(DISTINCT n.id) FROM notes n"+where, params...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	pageArgs := append(append([]any{}, params...), opts.Limit, offset)
	rows, err := r.db.Query(
		"SELECT DISTINCT "+noteColumns+" FROM notes n"+where+" ORDER BY n.updated_at DESC, n.id DESC LIMIT ? OFFSET ?",
		pageArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	rows.Close()

	if err := r.attachTags(notes); err != nil {
		return nil, err
	}

	return &SearchResult{
		Notes:       notes,
		TotalPages:  (total + opts.Limit - 1) / opts.Limit,
		CurrentPage: opts.Page,
		Total:       total,
	}, nil
}

// attachTags fills Tags for every note with a single query.
func (r *NoteRepository) attachTags(notes []*Note) error {
	if len(notes) == 0 {
		return nil
	}

	byID := make(map[int]*Note, len(notes))
	placeholders := make([]string, len(notes))
	args := make([]any, len(notes))
	for i, n := range notes {
		byID[n.ID] = n
		placeholders[i] = "?"
		args[i] = n.ID
	}

	rows, err := r.db.Query(
		`SELECT nt.note_id, t.name FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY t.name ASC`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to load note tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int
		var name string
		if err := rows.Scan(&noteID, &name); err != nil {
			return fmt.Errorf("failed to scan note tag: %w", err)
		}
		if n, ok := byID[noteID]; ok {
			n.Tags = append(n.Tags, TagRef{Name: name})
		}
	}
	return rows.Err()
}
