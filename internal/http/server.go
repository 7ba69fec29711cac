// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pulseboard/internal/cache"
	"pulseboard/internal/metrics"
	"pulseboard/internal/sheets"
)

// RefreshPublisher queues a refresh request for the worker.
type RefreshPublisher interface {
	PublishRefreshRequest(ctx context.Context, requestedBy string) error
}

// Refresher refreshes the snapshot in-process. Used when no message
// broker is wired in (memory backend, tests).
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Options tunes caching and rate limiting. Zero values fall back to
// defaults suitable for tests.
type Options struct {
	CacheTTL       time.Duration
	CacheSize      int
	RateLimitRPS   float64
	RateLimitBurst int

	// At most one of these is consulted for POST /api/refresh, publisher
	// first.
	Publisher RefreshPublisher
	Refresher Refresher
}

func (o *Options) applyDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 256
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 10
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 20
	}
}

type Server struct {
	http.Server
	source      sheets.Source
	publisher   RefreshPublisher
	refresher   Refresher
	rateLimiter *rateLimiter

	overviewCache *cache.LRUCache[metrics.Overview]
	salesCache    *cache.LRUCache[metrics.SalesSummary]
	sessionsCache *cache.LRUCache[metrics.SessionsSummary]
	payrollCache  *cache.LRUCache[metrics.PayrollSummary]
	clientsCache  *cache.LRUCache[metrics.ClientsSummary]
	leadsCache    *cache.LRUCache[metrics.LeadsSummary]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, source sheets.Source, opts Options) *Server {
	opts.applyDefaults()
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		source:      source,
		publisher:   opts.Publisher,
		refresher:   opts.Refresher,
		rateLimiter: newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),

		overviewCache: cache.NewLRUCache[metrics.Overview](opts.CacheSize, opts.CacheTTL),
		salesCache:    cache.NewLRUCache[metrics.SalesSummary](opts.CacheSize, opts.CacheTTL),
		sessionsCache: cache.NewLRUCache[metrics.SessionsSummary](opts.CacheSize, opts.CacheTTL),
		payrollCache:  cache.NewLRUCache[metrics.PayrollSummary](opts.CacheSize, opts.CacheTTL),
		clientsCache:  cache.NewLRUCache[metrics.ClientsSummary](opts.CacheSize, opts.CacheTTL),
		leadsCache:    cache.NewLRUCache[metrics.LeadsSummary](opts.CacheSize, opts.CacheTTL),
		cacheManager:  cache.NewManager(),
	}

	for _, c := range []cache.Cleaner{
		s.overviewCache, s.salesCache, s.sessionsCache,
		s.payrollCache, s.clientsCache, s.leadsCache,
	} {
		s.cacheManager.Register(c)
	}
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/dashboard/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("/api/dashboard/sales", s.withMiddleware(s.handleSales))
	mux.HandleFunc("/api/dashboard/sessions", s.withMiddleware(s.handleSessions))
	mux.HandleFunc("/api/dashboard/payroll", s.withMiddleware(s.handlePayroll))
	mux.HandleFunc("/api/dashboard/clients", s.withMiddleware(s.handleClients))
	mux.HandleFunc("/api/dashboard/leads", s.withMiddleware(s.handleLeads))
	mux.HandleFunc("/api/refresh", s.withMiddleware(s.handleRefresh))

	return s
}

// withMiddleware adds security headers, rate limiting, request IDs and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := s.source.ListSales(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// clearCaches drops every cached summary, used after an in-process
// refresh so responses reflect the new snapshot immediately.
func (s *Server) clearCaches() {
	s.overviewCache.Clear()
	s.salesCache.Clear()
	s.sessionsCache.Clear()
	s.payrollCache.Clear()
	s.clientsCache.Clear()
	s.leadsCache.Clear()
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.shutdown()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
