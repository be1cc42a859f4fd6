package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// environment resolves the {env} path segment, writing a 404 when it names no
// environment.
func (s *Server) environment(w http.ResponseWriter, r *http.Request) (*environ.Environment, bool) {
	env, err := s.envs.GetOrOpen(chi.URLParam(r, "env"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return env, true
}

// operatorError maps operator failures to HTTP statuses. Anything that is not
// one of the contract's typed errors came from the environment itself.
func operatorError(w http.ResponseWriter, err error) {
	var (
		readErr    *operator.ReadError
		writeErr   *operator.WriteError
		timeoutErr *operator.TimeoutError
	)
	switch {
	case errors.As(err, &readErr):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &writeErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &timeoutErr):
		writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// --- Operator handlers ---

type fileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	env, ok := s.environment(w, r)
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	content, err := env.Operator.ReadFile(r.Context(), path)
	if err != nil {
		operatorError(w, err)
		return
	}

	if start, end := queryInt(r, "start_line"), queryInt(r, "end_line"); start != 0 || end != 0 {
		content, err = operator.SliceLines(content, start, end)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, fileResponse{Path: path, Content: content})
}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	env, ok := s.environment(w, r)
	if !ok {
		return
	}

	var req writeFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := env.Operator.WriteFile(r.Context(), req.Path, req.Content); err != nil {
		operatorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statResponse struct {
	Path        string `json:"path"`
	Exists      bool   `json:"exists"`
	IsDirectory bool   `json:"is_directory"`
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	env, ok := s.environment(w, r)
	if !ok {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	exists, err := env.Operator.Exists(r.Context(), path)
	if err != nil {
		operatorError(w, err)
		return
	}
	resp := statResponse{Path: path, Exists: exists}
	if exists {
		if resp.IsDirectory, err = env.Operator.IsDirectory(r.Context(), path); err != nil {
			operatorError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type runCommandRequest struct {
	Command        string  `json:"command"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

func (req runCommandRequest) timeout() time.Duration {
	return time.Duration(req.TimeoutSeconds * float64(time.Second))
}

func (s *Server) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	env, ok := s.environment(w, r)
	if !ok {
		return
	}

	var req runCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	res, err := env.Operator.RunCommand(r.Context(), req.Command, env.Timeout(req.timeout()))
	if err != nil {
		operatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- History handlers ---

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "command journal is disabled")
		return false
	}
	return true
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	opts := storage.ListOptions{
		Env:    q.Get("env"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	opts.Failed, _ = strconv.ParseBool(q.Get("failed"))

	records, err := s.store.ListCommands(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []storage.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.GetCommand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		historyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.DeleteCommand(r.Context(), chi.URLParam(r, "id")); err != nil {
		historyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func historyError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "command record not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// --- Health and metrics ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"environments": s.envs.States(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics are disabled", http.StatusServiceUnavailable)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
