// Package httpapi exposes the aggregation pipeline over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/logging"
	"github.com/ginjaninja78/ward-census-aggregator/internal/service"
)

// RequestIDHeader carries the request ID in responses.
const RequestIDHeader = "X-Request-ID"

// GroupByHeader carries caller grouping columns for Unknown reports.
const GroupByHeader = "X-Group-By"

// Config holds HTTP API settings
type Config struct {
	// APIToken is the bearer token callers must present. An empty token
	// rejects every aggregate request.
	APIToken string

	// MaxUploadBytes caps the request body. Zero or less means no cap.
	MaxUploadBytes int64
}

// Server routes requests to the aggregation pipeline
type Server struct {
	router   *chi.Mux
	pipeline *service.Aggregator
	config   Config
	logger   *zap.Logger
}

// NewServer creates a Server. A nil logger discards log output.
func NewServer(config Config, pipeline *service.Aggregator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:   chi.NewRouter(),
		pipeline: pipeline,
		config:   config,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Put("/aggregate", s.handleAggregate)
		r.Post("/aggregate", s.handleAggregate)
	})
}

// requestID assigns each request a UUID, or keeps the caller's, and echoes
// it in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireToken rejects requests without the configured bearer token. It runs
// before the body is read.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || s.config.APIToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.config.APIToken)) != 1 {
			s.writeError(w, r, apperrors.Unauthorized("invalid or missing bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// =============================================================================
// RESPONSES
// =============================================================================

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status and writes {"detail": ...} with the
// message and its cause. Server-side failures are also logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("code", apperrors.GetCode(err)),
			zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Detail: err.Error()})
}
