// Package http exposes the expense tracker's JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensed/internal/auth"
	"expensed/internal/config"
	"expensed/internal/log"
	"expensed/internal/services"
	"expensed/internal/storage"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyIdentity  contextKey = "identity"
)

type Server struct {
	http.Server
	storage     *storage.SQLiteRepository
	gate        *auth.Gate
	notifier    *services.Notifier
	logger      *log.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, repo *storage.SQLiteRepository, gate *auth.Gate, notifier *services.Notifier, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		storage:     repo,
		gate:        gate,
		notifier:    notifier,
		logger:      logger,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /register", s.public(s.handleRegister))
	mux.HandleFunc("POST /login", s.public(s.handleLogin))
	mux.HandleFunc("POST /logout", s.protected(s.handleLogout))

	mux.HandleFunc("GET /expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("POST /expenses", s.protected(s.handleCreateExpense))
	mux.HandleFunc("GET /expenses/{id}", s.protected(s.handleGetExpense))
	mux.HandleFunc("PUT /expenses/{id}", s.protected(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.HandleFunc("GET /categories", s.protected(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.protected(s.handleCreateCategory))

	mux.HandleFunc("GET /recurring", s.protected(s.handleListRules))
	mux.HandleFunc("POST /recurring", s.protected(s.handleCreateRule))
	mux.HandleFunc("DELETE /recurring/{id}", s.protected(s.handleDeleteRule))

	mux.HandleFunc("GET /notifications", s.protected(s.handleListNotifications))
	mux.HandleFunc("POST /notifications/{id}/read", s.protected(s.handleMarkNotificationRead))

	return s
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// public wraps a handler with request logging, rate limiting, and security
// headers.
func (s *Server) public(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// protected adds bearer-token authentication on top of public. Every
// authentication failure surfaces as the same generic 401; the concrete
// cause is only logged.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.public(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		identity, err := s.gate.Authenticate(r.Context(), token)
		if err != nil {
			if auth.IsAuthError(err) {
				s.logger.InfoContext(r.Context(), "Authentication rejected",
					"url", r.URL.Path,
					"cause", err.Error())
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			s.logger.ErrorContext(r.Context(), "Authentication check failed",
				"url", r.URL.Path,
				"error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
		next(w, r.WithContext(ctx))
	})
}

// identityFrom returns the authenticated identity stored by protected.
func identityFrom(ctx context.Context) auth.Identity {
	identity, _ := ctx.Value(contextKeyIdentity).(auth.Identity)
	return identity
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
