package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/api"
	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the part of clarify.Service the HTTP API exposes.
type Service interface {
	Start(ctx context.Context, sessionID, rawInput string) (*domain.Result, error)
	Resume(ctx context.Context, sessionID, reply string, opts ...clarify.ResumeOption) (*domain.Result, error)
	Get(ctx context.Context, sessionID string) (*domain.State, error)
	Summaries(ctx context.Context) ([]clarify.Summary, error)
	Abandon(ctx context.Context, sessionID string) error
}

// StartRequest is the body of POST /chat/start.
type StartRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Input     string `json:"input"`
}

// ResumeRequest is the body of POST /chat/resume.
type ResumeRequest struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Revision  *int   `json:"revision,omitempty"`
}

// ChatResponse is returned by both chat endpoints.
type ChatResponse = runner.Response

// Server holds the handlers of the API.
type Server struct {
	Service Service
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	noValid bool
}

// Option configures the handler built by NewHandler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams shares a StreamManager whose Listener is registered on the service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithoutValidation disables OpenAPI request validation.
func WithoutValidation() Option {
	return func(s *Server) {
		s.noValid = true
	}
}

// NewHandler creates the HTTP handler for a service.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	s := &Server{
		Service: svc,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	if !s.noValid {
		doc, err := api.Load()
		if err != nil {
			return nil, err
		}
		v, err := newRequestValidator(doc, s)
		if err != nil {
			return nil, err
		}
		r.Use(v.Middleware)
	}

	r.Post("/chat/start", s.StartChat)
	r.Post("/chat/resume", s.ResumeChat)
	r.Get("/sessions", s.ListSessions)
	r.Get("/sessions/{id}", s.GetSession)
	r.Delete("/sessions/{id}", s.DeleteSession)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(api.Spec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Clarify API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// StartChat handles the POST /chat/start request.
func (s *Server) StartChat(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.logger.Warn("StartChat: Invalid request body", "err", err)
		return
	}

	input, err := runner.SanitizeInput(body.Input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.Service.Start(r.Context(), body.SessionID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, runner.NewResponse(res))
}

// ResumeChat handles the POST /chat/resume request.
func (s *Server) ResumeChat(w http.ResponseWriter, r *http.Request) {
	var body ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, s.logger, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.logger.Warn("ResumeChat: Invalid request body", "err", err)
		return
	}

	reply, err := runner.SanitizeInput(body.Reply)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var opts []clarify.ResumeOption
	if body.Revision != nil {
		opts = append(opts, clarify.WithRevision(*body.Revision))
	}
	res, err := s.Service.Resume(r.Context(), body.SessionID, reply, opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, runner.NewResponse(res))
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Service.Summaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, summaries)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, st)
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := api.Load(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":         "clarify-http",
		"version":     strings.TrimSpace(clarify.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSON(w, s.logger, http.StatusBadRequest, ErrorResponse{Error: "session_id is required"})
		return
	}

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		for _, f := range strings.Split(watch, ",") {
			if f = strings.TrimSpace(f); f != "" {
				watchList = append(watchList, f)
			}
		}
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// watched reports whether a diff touches any of the fields.
// Undecodable payloads are always forwarded.
func watched(msg string, fields []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch field {
		case "phase":
			if diff.Phase != nil {
				return true
			}
		case "prompt":
			if diff.Prompt != nil {
				return true
			}
		case "interpretation":
			if diff.Interpretation != nil || diff.InterpretationCleared {
				return true
			}
		case "corrections":
			if diff.Corrections != nil || diff.InterpretationCleared {
				return true
			}
		case "messages":
			if len(diff.Messages) > 0 {
				return true
			}
		case "final_output":
			if len(diff.FinalOutput) > 0 {
				return true
			}
		}
	}
	return false
}
