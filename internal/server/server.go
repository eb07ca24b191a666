// Package server exposes connectkit checks over a local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/planner"
	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const shutdownTimeout = 10 * time.Second

// Engine is the part of checker.Checker the API serves.
type Engine interface {
	Check(ctx context.Context, root string) (*checker.Report, error)
	Plan(ctx context.Context, root string, opts checker.InstallOptions) (project.Type, planner.Plan)
}

// Server answers check and plan requests for project directories.
type Server struct {
	engine  Engine
	root    string
	history *store.Store
	log     *logrus.Entry
	router  chi.Router
}

// New creates a Server. root is used when a request names no directory.
// history may be nil, in which case /api/history returns 404.
func New(engine Engine, root string, history *store.Store, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		engine:  engine,
		root:    filepath.Clean(root),
		history: history,
		log:     log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/check", s.handleCheck)
		r.Get("/plan", s.handlePlan)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", ln.Addr().String()).Info("serving")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	root, err := s.projectDir(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.engine.Check(r.Context(), root)
	if err != nil {
		s.log.WithError(err).WithField("root", root).Warn("check aborted")
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	root, err := s.projectDir(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var opts checker.InstallOptions
	q := r.URL.Query()
	if m := q.Get("manager"); m != "" {
		kind, err := pkgmgr.ParseKind(m)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Manager = kind
	}
	if t := q.Get("type"); t != "" {
		pt, err := project.ParseType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Type = pt
	}

	_, plan := s.engine.Plan(r.Context(), root, opts)
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	// An explicit dir filters by project; otherwise every project is listed.
	root := ""
	if r.URL.Query().Get("dir") != "" {
		dir, err := s.projectDir(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		root = dir
	}

	runs, err := s.history.ListRuns(root, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// projectDir resolves the dir query parameter against the server root and
// checks that it is a directory inside it. Absolute paths and paths that
// climb out of the root are rejected.
func (s *Server) projectDir(r *http.Request) (string, error) {
	dir := s.root
	if rel := r.URL.Query().Get("dir"); rel != "" {
		if filepath.IsAbs(rel) {
			return "", fmt.Errorf("dir %q must be relative to the served root", rel)
		}
		dir = filepath.Join(s.root, rel)
		inside, err := filepath.Rel(s.root, dir)
		if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("dir %q is outside the served root", rel)
		}
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("project directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", dir)
	}
	return dir, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
