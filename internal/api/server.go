package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"

	"github.com/streed/memo/internal/config"
	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/logger"
	"github.com/streed/memo/internal/metrics"
	"github.com/streed/memo/internal/models"
	"github.com/streed/memo/internal/query"
	"github.com/streed/memo/internal/search"
)

// Version is reported by /api/health.
var Version = "dev"

type APIServer struct {
	cfg      *config.Config
	db       *sql.DB
	notes    *models.NoteRepository
	tags     *models.TagRepository
	searcher search.SearchProvider
	metrics  *metrics.Metrics
	server   *http.Server
	webDir   string
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest distinguishes absent fields (nil) from empty ones.
type UpdateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type AddTagRequest struct {
	TagName string `json:"tag_name"`
}

type TagsResponse struct {
	Message string          `json:"message,omitempty"`
	Tags    []models.TagRef `json:"tags"`
}

// NewAPIServer wires the HTTP layer. m may be nil to disable metrics.
func NewAPIServer(cfg *config.Config, db *sql.DB, notes *models.NoteRepository, tags *models.TagRepository, searcher search.SearchProvider, m *metrics.Metrics) *APIServer {
	webDir := findWebAssetsDir(cfg.WebDirectory)
	if webDir == "" {
		logger.Debug("Web assets directory not found (web UI will be disabled)")
	} else {
		logger.Debug("Serving web UI from %s", webDir)
	}

	return &APIServer{
		cfg:      cfg,
		db:       db,
		notes:    notes,
		tags:     tags,
		searcher: searcher,
		metrics:  m,
		webDir:   webDir,
	}
}

// findWebAssetsDir returns configured if it exists, otherwise the first
// conventional location holding an index.html.
func findWebAssetsDir(configured string) string {
	if configured != "" {
		if dirExists(configured) {
			return configured
		}
		logger.Warn("Configured web directory %s does not exist", configured)
		return ""
	}

	candidates := []string{"web"}
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		candidates = append(candidates, filepath.Join(execDir, "web"), filepath.Join(execDir, "..", "web"))
	}
	candidates = append(candidates, "/usr/share/memo/web")

	for _, path := range candidates {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Handler builds the full middleware chain around the router.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.UseEncodedPath()
	router.Use(s.instrument)

	api := router.PathPrefix("/api").Subrouter()

	// Notes endpoints
	api.HandleFunc("/notes", s.handleSearchNotes).Methods("GET")
	api.HandleFunc("/search/notes", s.handleSearchNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/empty_trash", s.handleEmptyTrash).Methods("DELETE")
	api.HandleFunc("/notes/{id:[0-9]+}", s.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id:[0-9]+}", s.handleUpdateNote).Methods("PUT")
	api.HandleFunc("/notes/{id:[0-9]+}", s.handleDeleteNote).Methods("DELETE")
	api.HandleFunc("/notes/{id:[0-9]+}/trash", s.handleTrashNote).Methods("PUT")
	api.HandleFunc("/notes/{id:[0-9]+}/restore", s.handleRestoreNote).Methods("PUT")

	// Tags endpoints
	api.HandleFunc("/notes/{id:[0-9]+}/tags", s.handleAddTag).Methods("POST")
	api.HandleFunc("/notes/{id:[0-9]+}/tags/{tagName}", s.handleRemoveTag).Methods("DELETE")
	api.HandleFunc("/tags/favorites", s.handleFavoriteTags).Methods("GET")
	api.HandleFunc("/tags/others", s.handleOtherTags).Methods("GET")
	api.HandleFunc("/tags/all", s.handleAllTags).Methods("GET")
	api.HandleFunc("/tags/{id:[0-9]+}/toggle_favorite", s.handleToggleFavorite).Methods("PUT")

	// Query tooling and health
	api.HandleFunc("/query/explain", s.handleExplainQuery).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeMessage(w, http.StatusNotFound, "API endpoint not found")
	})

	if s.metrics != nil && s.cfg.EnableMetrics {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// Web UI
	router.HandleFunc("/", s.handleIndex).Methods("GET")
	if s.webDir != "" {
		staticDir := filepath.Join(s.webDir, "static")
		router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	})

	return c.Handler(gzhttp.GzipHandler(router))
}

func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, err error) {
	s.writeMessage(w, statusCode, err.Error())
}

func (s *APIServer) writeMessage(w http.ResponseWriter, statusCode int, msg string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: msg})
}

// writeRepoError maps repository and query errors onto HTTP statuses.
func (s *APIServer) writeRepoError(w http.ResponseWriter, err error) {
	var perr *query.ParseError
	switch {
	case errors.As(err, &perr):
		s.writeMessage(w, http.StatusBadRequest, "Invalid query syntax: "+perr.Error())
	case errors.Is(err, interrors.ErrNoteNotFound),
		errors.Is(err, interrors.ErrTagNotFound),
		errors.Is(err, interrors.ErrTagAssociationNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, interrors.ErrNothingToUpdate),
		errors.Is(err, interrors.ErrEmptyTagName),
		errors.Is(err, interrors.ErrInvalidPage):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		logger.Error("Request failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *APIServer) parseIntParam(r *http.Request, param string) (int, error) {
	vars := mux.Vars(r)
	str, exists := vars[param]
	if !exists {
		return 0, fmt.Errorf("missing parameter: %s", param)
	}
	return strconv.Atoi(str)
}

// pathParam returns a decoded route variable; the router matches on the
// encoded path so tag names may contain "/".
func (s *APIServer) pathParam(r *http.Request, param string) (string, error) {
	return url.PathUnescape(mux.Vars(r)[param])
}

// queryInt reads a positive integer query parameter, or def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	switch raw := r.URL.Query().Get(name); raw {
	case "", constants.BoolZero, constants.BoolFalse:
		return false, nil
	case constants.BoolOne, constants.BoolTrue:
		return true, nil
	default:
		return false, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
}

func (s *APIServer) pagination(r *http.Request) (page, limit int, err error) {
	if page, err = queryInt(r, "page", constants.DefaultPage); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", s.cfg.PageSize); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	if err := s.db.PingContext(r.Context()); err != nil {
		health["status"] = "unhealthy"
		health["database_error"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *APIServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.webDir == "" {
		s.writeError(w, http.StatusNotFound, errors.New("index.html not found"))
		return
	}
	index := filepath.Join(s.webDir, "index.html")
	if !fileExists(index) {
		s.writeError(w, http.StatusNotFound, errors.New("index.html not found"))
		return
	}
	http.ServeFile(w, r, index)
}

func (s *APIServer) handleExplainQuery(w http.ResponseWriter, r *http.Request) {
	exp, err := s.searcher.Explain(r.URL.Query().Get("query"))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exp)
}
