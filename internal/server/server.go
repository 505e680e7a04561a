// Package server provides the HTML form and JSON API for urlmatch.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/urlmatch/internal/config"
	"github.com/hyperjump/urlmatch/internal/extract"
	"github.com/hyperjump/urlmatch/internal/matcher"
	"github.com/hyperjump/urlmatch/internal/session"
	"github.com/hyperjump/urlmatch/internal/storage"
	"github.com/hyperjump/urlmatch/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"inc":       func(i int) int { return i + 1 },
	"highlight": matcher.Highlight,
}).ParseFS(templateFS, "templates/index.html"))

// Server is the HTTP server for the URL analyzer.
type Server struct {
	sessions *session.Manager
	store    storage.Store
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	sessions *session.Manager,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		sessions: sessions,
		store:    store,
		config:   cfg,
		logger:   utils.NopLogger(logger),
	}
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Post("/column", s.handleSelectColumn)
	r.Post("/terms", s.handleSetTerms)
	r.Post("/terms/add", s.handleAddTerm)
	r.Post("/terms/{index}", s.handleSetTerm)
	r.Post("/terms/{index}/remove", s.handleRemoveTerm)
	r.Post("/reset", s.handleReset)

	r.Post("/api/v1/evaluate", s.handleEvaluate)
	r.Get("/api/v1/session", s.handleSessionView)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func acceptAttr() string {
	return strings.Join(extract.SupportedExtensions, ",")
}
