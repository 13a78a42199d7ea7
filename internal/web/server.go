// Package web serves the DataSweeper pages, the JSON API and downloads.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP front end over a core.Service.
type Server struct {
	cfg     *config.Config
	service *core.Service
	router  *chi.Mux
	server  *http.Server

	limiters []*rateLimiter
}

// NewServer builds the router. Call Start to listen and Shutdown to stop.
func NewServer(cfg *config.Config, service *core.Service) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Recoverer)

	// Rate limiting runs before sessions so rejected requests never
	// create one.
	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}

	s.router.Use(mw.Session(s.service, mw.SessionCookie{
		Name:   s.cfg.Session.CookieName,
		Secure: s.cfg.Session.CookieSecure,
	}))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// uploadLimit is the stricter per-IP limit for upload routes.
func (s *Server) uploadLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newRateLimiter(s.cfg.Rate.UploadLimit).middleware
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages and form posts
	s.router.Get("/", s.handleIndex)
	s.router.With(s.uploadLimit()).Post("/upload", s.handleUploadForm)
	s.router.Route("/files/{fileID}", func(r chi.Router) {
		r.Post("/dedupe", s.handleDedupeForm)
		r.Post("/fill", s.handleFillForm)
		r.Post("/columns", s.handleColumnsForm)
		r.Post("/chart", s.handleChartForm)
		r.Post("/format", s.handleFormatForm)
		r.Get("/download", s.handleDownload)
	})

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.corsHandler().Handler)

		r.Get("/status", s.handleStatus)
		r.Get("/files", s.handleListFiles)
		r.With(s.uploadLimit()).Post("/upload", s.handleUploadAPI)

		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Get("/", s.handleGetFile)
			r.Post("/dedupe", s.handleDedupeAPI)
			r.Post("/fill", s.handleFillAPI)
			r.Put("/columns", s.handleColumnsAPI)
			r.Get("/chart", s.handleChartAPI)
			r.Put("/chart", s.handleSetChartAPI)
			r.Put("/format", s.handleFormatAPI)
			r.Get("/download", s.handleDownload)
		})
	})
}

// corsHandler allows the configured origins to call the JSON API with the
// session cookie.
func (s *Server) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and stops
// the rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// securityHeaders sets the standard hardening headers.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// inline style is used by the chart legend
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// retryAfter formats a Retry-After header value.
func retryAfter(d time.Duration) string {
	return strconv.Itoa(int(d.Seconds()))
}
