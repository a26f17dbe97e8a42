// Package api serves dataset profiles over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"civicprofile/domain/core"
	"civicprofile/domain/profiling"
	"civicprofile/internal/config"
	apperrors "civicprofile/internal/errors"
	"civicprofile/internal/geo"
	"civicprofile/internal/report"
)

// Profiler builds the profile of one manifest entry
type Profiler interface {
	ProfileEntry(ctx context.Context, entry config.DatasetEntry) (profiling.DatasetProfile, error)
}

// Server exposes manifest datasets read-only. Profiles are computed on first
// request and cached until refreshed.
type Server struct {
	router   *chi.Mux
	manifest *config.Manifest
	profiler Profiler
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]profiling.DatasetProfile
}

// DatasetSummary is one entry of the dataset listing
type DatasetSummary struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Category string `json:"category_column,omitempty"`
	HasGeo   bool   `json:"has_geo"`
	Cached   bool   `json:"cached"`
}

// NewServer creates the HTTP surface for manifest
func NewServer(manifest *config.Manifest, profiler Profiler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:   chi.NewRouter(),
		manifest: manifest,
		profiler: profiler,
		logger:   logger,
		cache:    make(map[string]profiling.DatasetProfile),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/datasets", s.handleDatasets)
	s.router.Route("/datasets/{name}", func(r chi.Router) {
		r.Get("/", s.handleProfile)
		r.Get("/report", s.handleReport)
		r.Get("/points.geojson", s.handlePoints)
	})
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[API] listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("[API] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DatasetSummary, 0, len(s.manifest.Datasets))
	for _, e := range s.manifest.Datasets {
		source := "file"
		if e.Query != "" {
			source = "query"
		}
		_, cached := s.cache[e.Name]
		out = append(out, DatasetSummary{
			Name:     e.Name,
			Title:    e.DisplayName(),
			Source:   source,
			Category: e.CategoryColumn,
			HasGeo:   e.Geo != nil,
			Cached:   cached,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatHTML
	}
	if format != report.FormatHTML && format != report.FormatMarkdown {
		s.writeError(w, r, apperrors.InvalidInput("format must be html or markdown"))
		return
	}

	p, err := s.profile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	if err := report.RenderProfile(w, format, p); err != nil {
		s.logger.Error("[API] render failed", "dataset", p.Dataset, "error", err)
	}
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.Points == nil {
		s.writeError(w, r, apperrors.NotFound("geo configuration for dataset "+p.Dataset))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := geo.WriteGeoJSON(w, *p.Points); err != nil {
		s.logger.Error("[API] geojson encoding failed", "dataset", p.Dataset, "error", err)
	}
}

// profile resolves {name} and returns the cached or freshly built profile.
// ?refresh=true discards the cached copy.
func (s *Server) profile(r *http.Request) (profiling.DatasetProfile, error) {
	name := chi.URLParam(r, "name")
	entry, ok := s.manifest.Lookup(name)
	if !ok {
		return profiling.DatasetProfile{}, core.NewNotFoundError("dataset", name)
	}

	refresh := r.URL.Query().Get("refresh") == "true"
	s.mu.Lock()
	p, cached := s.cache[name]
	s.mu.Unlock()
	if cached && !refresh {
		return p, nil
	}

	p, err := s.profiler.ProfileEntry(r.Context(), entry)
	if err != nil {
		return profiling.DatasetProfile{}, err
	}

	s.mu.Lock()
	s.cache[name] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, r, status, map[string]string{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("[API] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
