package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/streed/memo/internal/models"
)

func (s *APIServer) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	page, limit, err := s.pagination(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	trashed, err := queryBool(r, "trashed")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.searcher.Search(models.SearchOptions{
		Query:   r.URL.Query().Get("query"),
		Trashed: trashed,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	note, err := s.notes.GetByID(id)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	note, err := s.notes.Create(req.Title, req.Content)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, note)
}

func (s *APIServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	note, err := s.notes.Update(id, req.Title, req.Content)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.notes.Delete(id); err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Note deleted successfully",
	})
}

func (s *APIServer) handleTrashNote(w http.ResponseWriter, r *http.Request) {
	s.setTrashed(w, r, s.notes.MoveToTrash)
}

func (s *APIServer) handleRestoreNote(w http.ResponseWriter, r *http.Request) {
	s.setTrashed(w, r, s.notes.Restore)
}

func (s *APIServer) setTrashed(w http.ResponseWriter, r *http.Request, apply func(int) error) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := apply(id); err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *APIServer) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.notes.EmptyTrash()
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}
