package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
	"github.com/custodia-labs/reqsync/internal/logger"
)

const (
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes = 10 << 20

	shutdownTimeout = 10 * time.Second
)

// Ports are the services the API calls. Any may be nil, in which case
// its routes answer 501.
type Ports struct {
	Ingest     driving.IngestService
	Reconciler driving.Reconciler
	Documents  driving.DocumentService
}

// Server serves the intake API.
type Server struct {
	ports   Ports
	origins []string
	mux     *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins allows browser requests from the given origins.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, origins...) }
}

// NewServer builds the router.
func NewServer(ports Ports, opts ...Option) *Server {
	s := &Server{ports: ports}
	for _, opt := range opts {
		opt(s)
	}
	s.mux = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP intake listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("HTTP intake stopped")
	return nil
}

func (s *Server) routes() *chi.Mux {
	m := chi.NewRouter()
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(requestLogger)
	m.Use(chimw.Heartbeat("/healthz"))
	if len(s.origins) > 0 {
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	m.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.submitInline)
		r.Post("/documents/upload", s.submitUpload)
		r.Post("/webhooks/documents", s.submitWebhook)
		r.Get("/documents", s.listDocuments)
		r.Get("/documents/{id}", s.getDocument)
		r.Get("/documents/{id}/markdown", s.documentMarkdown)
		r.Patch("/documents/{id}", s.updateDocument)
		r.Delete("/documents/{id}", s.deleteDocument)
		r.Get("/fingerprints/{hash}", s.findByFingerprint)
		r.Post("/reconcile", s.reconcile)
		r.Get("/reconcile/status", s.reconcileStatus)
		r.Post("/export", s.export)
	})

	m.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return m
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %s (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond),
			chimw.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
