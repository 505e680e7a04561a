package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/urlmatch/internal/extract"
	"github.com/hyperjump/urlmatch/internal/matcher"
	"github.com/hyperjump/urlmatch/internal/models"
	"github.com/hyperjump/urlmatch/internal/session"
	"github.com/hyperjump/urlmatch/internal/storage"
)

type pageData struct {
	View   *models.View
	Accept string
}

// sessionID returns the visitor's session ID from the cookie, issuing a new one if absent or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	name := s.config.Session.CookieName
	if c, err := r.Cookie(name); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, s.sessionID(w, r), http.StatusOK, nil)
}

// renderPage writes the form for session id. A non-nil actionErr replaces the stored error text.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, id string, status int, actionErr error) {
	view, err := s.sessions.View(r.Context(), id)
	if err != nil {
		s.logger.Error("build view failed", zap.String("session", id), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if actionErr != nil {
		view.Error = actionErr.Error()
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{View: view, Accept: acceptAttr()}); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// afterAction redirects back to the form, or re-renders it with the error.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, id string, err error) {
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	status := http.StatusBadRequest
	if !isUserError(err) {
		s.logger.Error("action failed", zap.String("path", r.URL.Path), zap.Error(err))
		status = http.StatusInternalServerError
	}
	s.renderPage(w, r, id, status, err)
}

func isUserError(err error) bool {
	var perr *extract.ParseError
	return errors.As(err, &perr) ||
		errors.Is(err, extract.ErrUnknownColumn) ||
		errors.Is(err, models.ErrIndexOutOfRange) ||
		errors.Is(err, models.ErrLastTerm) ||
		errors.Is(err, session.ErrNoFile) ||
		errors.Is(err, errBadRequest)
}

var errBadRequest = errors.New("bad request")

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.afterAction(w, r, id, fmt.Errorf("%w: file exceeds %d bytes", errBadRequest, tooLarge.Limit))
			return
		}
		s.afterAction(w, r, id, fmt.Errorf("%w: no file selected", errBadRequest))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.afterAction(w, r, id, fmt.Errorf("%w: read upload: %v", errBadRequest, err))
		return
	}
	s.logger.Debug("upload request", zap.String("session", id), zap.String("file", header.Filename), zap.Int64("size", header.Size))
	if err := s.sessions.Upload(r.Context(), id, header.Filename, content); err != nil {
		var perr *extract.ParseError
		if errors.As(err, &perr) {
			// The message is kept on the session; show it via the normal page.
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.afterAction(w, r, id, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSelectColumn(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	column := r.FormValue("column")
	s.logger.Debug("select column request", zap.String("session", id), zap.String("column", column))
	s.afterAction(w, r, id, s.sessions.SelectColumn(r.Context(), id, column))
}

// applyFormTerms saves the term inputs posted with the form, so text typed
// before pressing add/remove is kept.
func (s *Server) applyFormTerms(r *http.Request, id string) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	terms, ok := r.PostForm["term"]
	if !ok {
		return nil
	}
	return s.sessions.SetTerms(r.Context(), id, terms)
}

func (s *Server) handleSetTerms(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	if err := r.ParseForm(); err != nil {
		s.afterAction(w, r, id, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	terms := r.PostForm["term"]
	s.logger.Debug("set terms request", zap.String("session", id), zap.Int("count", len(terms)))
	s.afterAction(w, r, id, s.sessions.SetTerms(r.Context(), id, terms))
}

func (s *Server) handleAddTerm(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	if err := s.applyFormTerms(r, id); err != nil {
		s.afterAction(w, r, id, err)
		return
	}
	s.afterAction(w, r, id, s.sessions.AddTerm(r.Context(), id))
}

func (s *Server) handleSetTerm(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	index, err := termIndex(r)
	if err != nil {
		s.afterAction(w, r, id, err)
		return
	}
	s.afterAction(w, r, id, s.sessions.SetTerm(r.Context(), id, index, r.FormValue("value")))
}

func (s *Server) handleRemoveTerm(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	index, err := termIndex(r)
	if err != nil {
		s.afterAction(w, r, id, err)
		return
	}
	if err := s.applyFormTerms(r, id); err != nil {
		s.afterAction(w, r, id, err)
		return
	}
	s.logger.Debug("remove term request", zap.String("session", id), zap.Int("index", index))
	s.afterAction(w, r, id, s.sessions.RemoveTerm(r.Context(), id, index))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	s.afterAction(w, r, id, s.sessions.Reset(r.Context(), id))
}

func termIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid term index %q", errBadRequest, raw)
	}
	return index, nil
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("evaluate request", zap.Int("terms", len(req.Terms)), zap.Int("references", len(req.References)))
	s.respondJSON(w, http.StatusOK, matcher.Evaluate(req.Terms, req.ReferenceSet()))
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	view, err := s.sessions.View(r.Context(), id)
	if err != nil {
		s.logger.Error("session view failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"sessions":      count,
		"session_store": s.config.Session.Store,
		"formats":       extract.SupportedExtensions,
	}
	if _, ok := s.store.(*storage.SQLiteStore); ok {
		if n, err := storage.DiskUsageBytes(storage.SQLiteFiles(s.config.Session.DatabasePath)...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
