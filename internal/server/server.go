// Package server exposes profile building, stored profiles and credits
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/cache"
	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/internal/resilience"
	"github.com/sells-group/house-report/internal/store"
)

// Builder builds a profile for a query.
type Builder interface {
	Run(ctx context.Context, q model.Query) (*model.HouseProfile, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Builder  Builder
	Cache    *cache.Cache
	Store    store.Store
	Auth     *Authenticator
	Gatherer prometheus.Gatherer
	// Breakers, when set, backs the provider health listing.
	Breakers *resilience.ServiceBreakers
	// CORSOrigins lists allowed browser origins; empty allows none.
	CORSOrigins []string
	// RequestTimeout bounds every API request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

const (
	DefaultRequestTimeout = 2 * time.Minute
	maxRadius             = 5000
)

// Server is the HTTP API.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Builder == nil:
		return nil, eris.New("server: builder is required")
	case deps.Cache == nil:
		return nil, eris.New("server: cache is required")
	case deps.Store == nil:
		return nil, eris.New("server: store is required")
	case deps.Auth == nil:
		return nil, eris.New("server: authenticator is required")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}
	return &Server{deps: deps}, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
		r.Use(s.deps.Auth.RequireAuth)

		r.Post("/profiles", s.handleCreateProfile)
		r.Get("/profiles/{id}", s.handleGetProfile)
		r.Get("/profiles/{id}/sections", s.handleGetSections)
		r.Get("/credits", s.handleBalance)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/credits/grant", s.handleGrantCredits)
			r.Get("/admin/profiles", s.handleListProfiles)
			r.Get("/admin/providers", s.handleProviders)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
