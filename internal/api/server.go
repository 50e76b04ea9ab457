// Package api provides the HTTP API server and handlers for NovelShelf.
package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/novelshelf/novelshelf-server/internal/ratelimit"
	"github.com/novelshelf/novelshelf-server/internal/scanner"
	"github.com/novelshelf/novelshelf-server/internal/store"
	"github.com/novelshelf/novelshelf-server/internal/validation"
)

// Version is the API version reported in the OpenAPI document.
const Version = "1.0.0"

// Per-client request limits. Generous for a local-network server; the point
// is keeping a misbehaving client from queueing scans in a tight loop.
const (
	requestsPerSecond = 20
	requestBurst      = 40
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	scanner     *scanner.Scanner
	validator   *validation.Validator
	libraryPath string // default scan target; requests may override

	router  *chi.Mux
	api     huma.API
	logger  *slog.Logger
	limiter *ratelimit.Keyed

	// progress tracks in-flight scans by run id.
	progressMu sync.RWMutex
	progress   map[string]*scanner.ProgressTracker
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, sc *scanner.Scanner, validator *validation.Validator, libraryPath string, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		scanner:     sc,
		validator:   validator,
		libraryPath: libraryPath,
		router:      chi.NewRouter(),
		logger:      logger,
		limiter:     ratelimit.New(requestsPerSecond, requestBurst),
		progress:    make(map[string]*scanner.ProgressTracker),
	}

	s.setupMiddleware()

	RegisterErrorHandler()
	s.api = humachi.New(s.router, huma.DefaultConfig("NovelShelf API", Version))

	s.registerHealthRoutes()
	s.registerScanRoutes()
	s.registerRunRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimit)
}

// rateLimit rejects clients that exceed the per-IP token bucket. RealIP runs
// earlier in the chain, so RemoteAddr already reflects forwarding headers.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			s.logger.Warn("request rate limited", "client", clientKey(r), "path", r.URL.Path)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) trackProgress(runID string, tracker *scanner.ProgressTracker) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.progress[runID] = tracker
}

func (s *Server) untrackProgress(runID string) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	delete(s.progress, runID)
}

func (s *Server) progressFor(runID string) (*scanner.ProgressTracker, bool) {
	s.progressMu.RLock()
	defer s.progressMu.RUnlock()
	t, ok := s.progress[runID]
	return t, ok
}
