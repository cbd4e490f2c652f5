package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
)

type Tag struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	IsFavorite bool   `json:"is_favorite" yaml:"is_favorite"`
	MemoCount  int    `json:"memo_count" yaml:"memo_count"`
}

type TagPage struct {
	Tags        []*Tag `json:"tags" yaml:"tags"`
	TotalPages  int    `json:"total_pages" yaml:"total_pages"`
	CurrentPage int    `json:"current_page" yaml:"current_page"`
}

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

const tagColumns = `t.id, t.name, t.is_favorite,
	(SELECT COUNT(nt.note_id) FROM note_tags nt WHERE nt.tag_id = t.id) AS memo_count`

func scanTags(rows *sql.Rows) ([]*Tag, error) {
	defer rows.Close()

	tags := []*Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.IsFavorite, &tag.MemoCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tags, nil
}

// AddToNote links the named tag to a note, creating the tag if needed.
// Linking an already linked tag is a no-op. Returns the note's tags.
func (r *TagRepository) AddToNote(noteID int, name string) ([]TagRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, interrors.ErrEmptyTagName
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM notes WHERE id = ?", noteID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check note: %w", err)
	}
	if exists == 0 {
		return nil, interrors.ErrNoteNotFound
	}

	if _, err := tx.Exec("INSERT OR IGNORE INTO tags (name) VALUES (?)", name); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	var tagID int
	if err := tx.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&tagID); err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	if _, err := tx.Exec("INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)", noteID, tagID); err != nil {
		return nil, fmt.Errorf("failed to link tag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tag link: %w", err)
	}

	return r.NoteTags(noteID)
}

// RemoveFromNote unlinks the named tag from a note. The tag itself is kept.
func (r *TagRepository) RemoveFromNote(noteID int, name string) ([]TagRef, error) {
	var tagID int
	err := r.db.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&tagID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	result, err := r.db.Exec("DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?", noteID, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to unlink tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, interrors.ErrTagAssociationNotFound
	}

	return r.NoteTags(noteID)
}

// NoteTags returns the tags linked to a note ordered by name.
func (r *TagRepository) NoteTags(noteID int) ([]TagRef, error) {
	rows, err := r.db.Query(`
		SELECT t.name FROM tags t
		JOIN note_tags nt ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY t.name ASC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list note tags: %w", err)
	}
	defer rows.Close()

	tags := []TagRef{}
	for rows.Next() {
		var ref TagRef
		if err := rows.Scan(&ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, ref)
	}
	return tags, rows.Err()
}

// Favorites returns favorite tags ordered by name.
func (r *TagRepository) Favorites() ([]*Tag, error) {
	rows, err := r.db.Query("SELECT " + tagColumns + " FROM tags t WHERE t.is_favorite = 1 ORDER BY t.name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite tags: %w", err)
	}
	return scanTags(rows)
}

// Others returns one page of non-favorite tags, most used first.
func (r *TagRepository) Others(page, limit int) (*TagPage, error) {
	if page < 1 || limit < 1 {
		return nil, interrors.ErrInvalidPage
	}
	if limit > constants.MaxPageLimit {
		limit = constants.MaxPageLimit
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(id) FROM tags WHERE is_favorite = 0").Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}

	rows, err := r.db.Query(
		"SELECT "+tagColumns+" FROM tags t WHERE t.is_favorite = 0 ORDER BY memo_count DESC, t.name ASC LIMIT ? OFFSET ?",
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	tags, err := scanTags(rows)
	if err != nil {
		return nil, err
	}

	return &TagPage{
		Tags:        tags,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	}, nil
}

// All returns every tag ordered by name.
func (r *TagRepository) All() ([]*Tag, error) {
	rows, err := r.db.Query("SELECT " + tagColumns + " FROM tags t ORDER BY t.name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return scanTags(rows)
}

func (r *TagRepository) GetByID(id int) (*Tag, error) {
	var tag Tag
	err := r.db.QueryRow("SELECT "+tagColumns+" FROM tags t WHERE t.id = ?", id).
		Scan(&tag.ID, &tag.Name, &tag.IsFavorite, &tag.MemoCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// GetByName looks a tag up by its exact name.
func (r *TagRepository) GetByName(name string) (*Tag, error) {
	var id int
	err := r.db.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interrors.ErrTagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}
	return r.GetByID(id)
}

// ToggleFavorite flips is_favorite and returns the updated tag.
func (r *TagRepository) ToggleFavorite(id int) (*Tag, error) {
	result, err := r.db.Exec("UPDATE tags SET is_favorite = 1 - is_favorite WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, interrors.ErrTagNotFound
	}
	return r.GetByID(id)
}
