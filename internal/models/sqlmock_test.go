package models

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interrors "github.com/streed/memo/internal/errors"
)

func newMockRepo(t *testing.T) (*NoteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewNoteRepository(db)
	repo.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return repo, mock
}

func TestSearchBindsFilterBeforePagination(t *testing.T) {
	repo, mock := newMockRepo(t)

	where := " WHERE n.is_trashed = ? AND (n.title LIKE ? AND NOT (n.content LIKE ?))"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT n.id) FROM notes n" + where)).
		WithArgs(true, "%plan%", "%draft%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	mock.ExpectQuery(regexp.QuoteMeta("FROM notes n" + where + " ORDER BY n.updated_at DESC, n.id DESC LIMIT ? OFFSET ?")).
		WithArgs(true, "%plan%", "%draft%", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "created_at", "updated_at", "is_trashed"}).
			AddRow(3, "plan", "final", "2024-01-01T00:00:00.000000Z", "2024-01-02T00:00:00.000000Z", 1))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT nt.note_id, t.name FROM note_tags nt")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "name"}).AddRow(3, "work"))

	result, err := repo.Search(SearchOptions{
		Query:   "@title:plan -@body:draft",
		Trashed: true,
		Page:    3,
		Limit:   20,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 3, result.CurrentPage)
	require.Len(t, result.Notes, 1)
	assert.True(t, result.Notes[0].IsTrashed)
	assert.Equal(t, []string{"work"}, result.Notes[0].TagNames())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchWithoutQueryBindsOnlyTrashFlag(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT n.id) FROM notes n WHERE n.is_trashed = ?")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE n.is_trashed = ? ORDER BY")).
		WithArgs(false, 500, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "created_at", "updated_at", "is_trashed"}))

	result, err := repo.Search(SearchOptions{Page: 1, Limit: 10000})
	require.NoError(t, err)
	assert.Empty(t, result.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBindsOnlyProvidedFields(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notes SET content = ?, updated_at = ? WHERE id = ?")).
		WithArgs("body", "2024-05-06T07:08:09.000000Z", 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(9, nil, strPtr("body"))
	assert.ErrorIs(t, err, interrors.ErrNoteNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchCountFailureIsWrapped(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)

	_, err := repo.Search(SearchOptions{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "failed to count notes")
}
