package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (s *APIServer) handleAddTag(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req AddTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	tags, err := s.tags.AddToNote(id, req.TagName)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, TagsResponse{Tags: tags})
}

func (s *APIServer) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	name, err := s.pathParam(r, "tagName")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid tag name: %w", err))
		return
	}

	tags, err := s.tags.RemoveFromNote(id, name)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, TagsResponse{Message: "Tag removed successfully", Tags: tags})
}

func (s *APIServer) handleFavoriteTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.Favorites()
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *APIServer) handleOtherTags(w http.ResponseWriter, r *http.Request) {
	page, limit, err := s.pagination(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.tags.Others(page, limit)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) handleAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.All()
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *APIServer) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := s.parseIntParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	tag, err := s.tags.ToggleFavorite(id)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tag)
}
