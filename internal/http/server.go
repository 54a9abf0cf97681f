// Package http is the web surface of the tracker: the JSON API, the server
// rendered pages, the SSE change stream and the chart images.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/interp"
	"fintrack/internal/live"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
	appweb "fintrack/web"
)

type Server struct {
	http.Server
	store     *store.Store
	auth      *auth.Service
	terminal  *interp.Interpreter
	expenses  *live.Collection[core.ExpenseRecord]
	income    *live.Collection[core.IncomeRecord]
	templates *template.Template

	rateLimiter    *rateLimiter
	dashboardCache *cache.LRUCache[core.Dashboard]
	cacheManager   *cache.Manager
	httpLog        *applog.HTTPLogger
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, st *store.Store, authSvc *auth.Service, terminal *interp.Interpreter,
	expenses *live.Collection[core.ExpenseRecord], income *live.Collection[core.IncomeRecord]) *Server {

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:          st,
		auth:           authSvc,
		terminal:       terminal,
		expenses:       expenses,
		income:         income,
		rateLimiter:    newRateLimiter(),
		dashboardCache: cache.NewLRUCache[core.Dashboard](500, 30*time.Second),
		cacheManager:   cache.NewManager(),
		httpLog:        applog.NewHTTPLogger(applog.New(applog.Config{Component: applog.ComponentHTTP})),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndexPage))
	mux.HandleFunc("GET /terminal", s.withSecurityHeaders(s.handleTerminalPage))

	mux.HandleFunc("POST /api/auth/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withSecurityHeaders(s.handleLogin))

	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/dashboard", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("GET /api/events", s.withSecurityHeaders(s.handleEvents))

	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/income", s.withSecurityHeaders(s.handleListIncome))
	mux.HandleFunc("POST /api/income", s.withSecurityHeaders(s.handleCreateIncome))
	mux.HandleFunc("DELETE /api/income/{id}", s.withSecurityHeaders(s.handleDeleteIncome))

	mux.HandleFunc("POST /api/terminal", s.withSecurityHeaders(s.handleTerminal))

	mux.HandleFunc("GET /charts/expenses.png", s.withSecurityHeaders(s.handleExpenseChart))
	mux.HandleFunc("GET /charts/income.png", s.withSecurityHeaders(s.handleIncomeChart))

	return s
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging around every handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if mutating(r.Method) && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogRequest(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code. Flush
// is forwarded so the SSE stream keeps working through the wrapper.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.expenses.Loading() || s.income.Loading() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("warming up"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "index.html")
}

func (s *Server) handleTerminalPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "terminal.html")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	data := struct {
		Year int
	}{Year: time.Now().Year()}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
