// Package server exposes documentation generation over HTTP: source files
// are uploaded as multipart form data and the artifact is returned inline,
// as a download, or as a browsable document set.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/phobologic/docgen/internal/docgen"
	"github.com/phobologic/docgen/internal/errors"
	"github.com/phobologic/docgen/internal/render"
	"github.com/phobologic/docgen/internal/source"
)

const (
	defaultFormat  = render.FormatXML
	maxUploadBytes = 32 << 20
	viewPrefix     = "/view/docs/"
)

// Server handles upload, view, and metrics endpoints.
type Server struct {
	svc      *docgen.Service
	log      zerolog.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
	router   *mux.Router

	// Upload parts beyond this many bytes are spooled to temp files.
	uploadMemory int64

	mu       sync.RWMutex
	sessions map[string]*render.DocumentSet
}

// New creates a Server generating through svc. Metrics are registered in a
// registry owned by the server.
func New(svc *docgen.Service, logger zerolog.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		svc:      svc,
		log:      logger.With().Str("component", "server").Logger(),
		metrics:  NewMetrics(reg),
		gatherer: reg,
		router:   mux.NewRouter(),
		sessions: make(map[string]*render.DocumentSet),

		uploadMemory: maxUploadBytes,
	}
	s.RegisterRoutes(s.router)
	return s
}

// RegisterRoutes registers the server's routes on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	router.HandleFunc(viewPrefix+"{session}/{file:.*}", s.handleView).Methods("GET", "HEAD")
	router.HandleFunc("/formats", s.handleFormats).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	router.Use(s.logRequests)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// handleGenerate accepts multipart "files" and an optional "format".
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.uploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid multipart request", err)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.log.Warn().Err(err).Msg("removing upload temp files")
		}
	}()
	format := strings.ToLower(strings.TrimSpace(r.FormValue("format")))
	if format == "" {
		format = defaultFormat
	}
	label := format
	if !contains(s.svc.Formats(), format) {
		label = "unsupported"
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.metrics.Requests.WithLabelValues(label, "bad_request").Inc()
		s.writeError(w, http.StatusBadRequest, "No files uploaded", nil)
		return
	}

	units := make([]source.Unit, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Unreadable upload", err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Unreadable upload", err)
			return
		}
		units = append(units, source.New(fh.Filename, fh.Filename, string(data)))
	}

	start := time.Now()
	res, err := s.svc.Generate(units, format)
	if err != nil {
		if errors.GetKind(err) == errors.KindConfiguration {
			s.metrics.Requests.WithLabelValues(label, "bad_request").Inc()
			s.writeError(w, http.StatusBadRequest, "Unsupported format", err)
			return
		}
		s.metrics.Requests.WithLabelValues(label, "error").Inc()
		s.writeError(w, http.StatusInternalServerError, "Generation failed", err)
		return
	}
	s.metrics.Duration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	s.metrics.Requests.WithLabelValues(label, "ok").Inc()
	s.metrics.Units.WithLabelValues("parsed").Add(float64(len(res.Project.Files)))
	s.metrics.Units.WithLabelValues("skipped").Add(float64(len(res.Skipped)))
	s.metrics.Units.WithLabelValues("failed").Add(float64(len(res.Failed)))

	switch art := res.Artifact.(type) {
	case *render.Text:
		w.Header().Set("Content-Type", art.MediaType+"; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(art.Extension))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, art.Body)
	case *render.Binary:
		w.Header().Set("Content-Type", art.MediaType)
		w.Header().Set("Content-Disposition", attachment(art.Extension))
		w.WriteHeader(http.StatusOK)
		w.Write(art.Data)
	case *render.DocumentSet:
		id := s.addSession(art)
		http.Redirect(w, r, viewPrefix+id+"/"+art.Entry, http.StatusSeeOther)
	default:
		s.writeError(w, http.StatusInternalServerError, "Unexpected artifact", fmt.Errorf("%T", art))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="documentation.%s"`, ext)
}

func (s *Server) addSession(set *render.DocumentSet) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = set
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.Sessions.Set(float64(n))
	s.log.Info().Str("session", id).Str("root", set.Root).Msg("document set registered")
	return id
}

func (s *Server) session(id string) (*render.DocumentSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sessions[id]
	if !ok {
		return nil, errors.Attr(errors.New(errors.KindNotFound, "unknown session"), "session", id)
	}
	return set, nil
}

// resolve maps a request path inside a document set to a file under its
// root. Paths that escape the root are rejected.
func resolve(set *render.DocumentSet, file string) (string, error) {
	if file == "" {
		file = set.Entry
	}
	clean := path.Clean("/" + file)
	root, err := filepath.Abs(set.Root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(clean))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", errors.Attr(errors.New(errors.KindValidation, "path escapes document root"), "path", file)
	}
	return full, nil
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	set, err := s.session(vars["session"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Session not found", err)
		return
	}
	for _, seg := range strings.Split(vars["file"], "/") {
		if seg == ".." {
			s.writeError(w, http.StatusForbidden, "Invalid path", nil)
			return
		}
	}
	full, err := resolve(set, vars["file"])
	if err != nil {
		s.writeError(w, http.StatusForbidden, "Invalid path", err)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "File not found", nil)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "File not found", nil)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"formats":   s.svc.Formats(),
		"languages": s.svc.Languages(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
		s.log.Warn().Err(err).Int("status", status).Msg(message)
	}

	s.writeJSON(w, status, response)
}
