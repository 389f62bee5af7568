// Package http serves a session's ledger as a JSON API.
//
// Every request is bound to a session through the expense_session cookie; a
// request without a live session starts a new one with a fresh ledger.
package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"expensetracker/internal/csvio"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/session"
)

// Options configures the server.
type Options struct {
	Addr               string
	MaxUploadBytes     int64
	DefaultPolicy      csvio.Policy
	RateLimitPerMinute int
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

type Server struct {
	http.Server
	sessions  *session.Manager
	publisher events.Publisher
	limiter   *ratelimit.Limiter
	logger    *log.Logger
	opts      Options
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(opts Options, sessions *session.Manager, publisher events.Publisher, logger *log.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.DefaultPolicy == "" {
		opts.DefaultPolicy = csvio.Permissive
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &Server{
		sessions:  sessions,
		publisher: publisher,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:    logger.WithComponent(log.ComponentHTTP),
		opts:      opts,
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethodNotAllowed)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, errRateLimited)
		}))
		r.Use(s.withSession)

		r.Get("/expenses", s.handleListExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Delete("/expenses", s.handleResetExpenses)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Delete("/expenses/index/{index}", s.handleDeleteExpenseAt)

		r.Get("/summary", s.handleSummary)
		r.Get("/groups/{key}", s.handleGroups)
		r.Get("/top", s.handleTopCategories)
		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
		r.Get("/range", s.handleDateRange)

		r.Get("/budget", s.handleGetBudget)
		r.Put("/budget", s.handleSetBudget)
		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleAddCategory)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
	return r
}

// RunLimiterCleanup drops idle rate limit entries until ctx is done.
func (s *Server) RunLimiterCleanup(ctx context.Context) error {
	return s.limiter.Run(ctx)
}

func (s *Server) now() time.Time {
	return s.opts.Now()
}

// clientIP is the host part of RemoteAddr, already rewritten by middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
