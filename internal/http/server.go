// Package http exposes the chat dispatcher and ledger export over a small
// JSON API for webhook-style chat integrations.
package http

import (
	"context"
	"net/http"
	"time"

	"finbot/internal/bot"
	"finbot/internal/middleware/ratelimit"
	"finbot/internal/middleware/security"
	"finbot/internal/middleware/trace"
	"finbot/internal/services"
)

// Dispatcher runs one chat line for a user. *bot.Router implements it.
type Dispatcher interface {
	Handle(ctx context.Context, userID int64, text string) bot.Reply
}

// Exporter produces a user's ledger dump. *services.LedgerService implements it.
type Exporter interface {
	Export(ctx context.Context, userID int64, format string) (services.ExportResult, error)
}

// Pinger backs the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the server; zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
}

type Server struct {
	http.Server

	dispatcher Dispatcher
	exporter   Exporter
	ready      Pinger

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	started time.Time
}

func NewServer(addr string, d Dispatcher, e Exporter, ready Pinger, opts Options) *Server {
	mux := http.NewServeMux()
	clientIP := security.NewClientIP()

	s := &Server{
		dispatcher: d,
		exporter:   e,
		ready:      ready,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:     trace.NewMiddleware(clientIP.Extract),
		started:    time.Now(),
	}

	limited := s.limiter.Middleware(clientIP.Extract, s.handleRateLimited)
	mux.Handle("POST /api/messages", limited(http.HandlerFunc(s.handleMessage)))
	mux.Handle("GET /api/users/{id}/export", limited(http.HandlerFunc(s.handleExport)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
