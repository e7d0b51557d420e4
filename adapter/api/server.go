// Package api serves the Sledge HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	server *http.Server
	logger *slog.Logger
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigins:  []string{"*"},
	}
}

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Auth         *AuthHandler
	Subscription *SubscriptionHandler
	Webhook      *WebhookHandler
	Tokens       *TokenIssuer
	Health       *observability.HealthRegistry
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, h Handlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router: NewRouter(cfg, h, logger),
		logger: logger,
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// NewRouter builds the route table.
func NewRouter(cfg ServerConfig, h Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestContext)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", HeaderRequestID, HeaderCorrelationID, HeaderWebhookSecret},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(h.Health))

	r.Post("/auth/register", h.Auth.Register)
	r.Post("/auth/login", h.Auth.Login)
	r.Post("/webhooks/billing", h.Webhook.Handle)

	r.Group(func(pr chi.Router) {
		pr.Use(JWTAuth(h.Tokens))
		pr.Get("/api/subscription", h.Subscription.Get)
		pr.Post("/api/subscription/trial", h.Subscription.StartTrial)
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

func healthHandler(registry *observability.HealthRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": string(observability.HealthStatusHealthy),
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		health := registry.Check(r.Context())
		status := http.StatusOK
		if health.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", observability.ErrorKey, err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// writeDomainError maps error kinds onto status codes. Internal details
// are logged, never returned.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, sharedDomain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sharedDomain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sharedDomain.ErrConflict) && !errors.Is(err, sharedDomain.ErrInternal):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, observability.ErrorKey, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
