package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/domain"
	"github.com/aretw0/clarify/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// SessionsURI is the resource listing stored sessions.
const SessionsURI = "clarify://sessions"

// ChatResponse aligns with the OpenAPI schema and provides a unified structure across adapters.
type ChatResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"Session to pass to resume_session"`
	Status    string `json:"status" jsonschema_description:"suspended while a confirmation is pending, completed once the final output exists"`
	Prompt    string `json:"prompt,omitempty" jsonschema_description:"Confirmation request to show the user"`
	Kind      string `json:"kind,omitempty" jsonschema_description:"Kind of prompt"`
	Revision  int    `json:"revision" jsonschema_description:"Revision to pass back to resume_session"`
	Result    string `json:"result,omitempty" jsonschema_description:"Final output of a completed session"`
}

// Service defines the operations the MCP server exposes.
type Service interface {
	Start(ctx context.Context, sessionID, rawInput string) (*domain.Result, error)
	Resume(ctx context.Context, sessionID, reply string, opts ...clarify.ResumeOption) (*domain.Result, error)
	Get(ctx context.Context, sessionID string) (*domain.State, error)
	Summaries(ctx context.Context) ([]clarify.Summary, error)
}

// Server wraps a clarify.Service and exposes it as an MCP Server.
type Server struct {
	service   Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("clarify-mcp", strings.TrimSpace(clarify.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a clarification session. Returns the interpretation of the request and asks the user to confirm it."),
		mcp.WithString("input", mcp.Required(), mcp.Description("The user's request")),
		mcp.WithString("session_id", mcp.Description("Session id (optional, generated when omitted)")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	resumeTool := mcp.NewTool("resume_session",
		mcp.WithDescription("Answer a pending confirmation: confirm, correct or reject the interpretation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id returned by start_session")),
		mcp.WithString("reply", mcp.Required(), mcp.Description("The user's reply to the prompt")),
		mcp.WithNumber("revision", mcp.Description("Revision of the prompt being answered; makes retries safe")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(resumeTool, mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the persisted state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.handleGet)
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (ChatResponse, error) {
	input, _ := args["input"].(string)
	sessionID, _ := args["session_id"].(string)

	clean, err := runner.SanitizeInput(input)
	if err != nil {
		s.logger.Warn("MCP start: Input rejected", "err", err, "size", len(input))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	res, err := s.service.Start(ctx, sessionID, clean)
	if err != nil {
		return ChatResponse{}, s.toolError("start", err)
	}
	return toChatResponse(res), nil
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (ChatResponse, error) {
	sessionID, _ := args["session_id"].(string)
	reply, _ := args["reply"].(string)

	clean, err := runner.SanitizeInput(reply)
	if err != nil {
		s.logger.Warn("MCP resume: Input rejected", "err", err, "size", len(reply))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	var opts []clarify.ResumeOption
	if rev, ok := revisionArg(args["revision"]); ok {
		opts = append(opts, clarify.WithRevision(rev))
	}

	res, err := s.service.Resume(ctx, sessionID, clean, opts...)
	if err != nil {
		return ChatResponse{}, s.toolError("resume", err)
	}
	return toChatResponse(res), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	st, err := s.service.Get(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries, err := s.service.Summaries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		jsonBytes, err := json.Marshal(summaries)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// toolError adds a retry hint to upstream failures.
func (s *Server) toolError(op string, err error) error {
	s.logger.Warn("MCP tool failed", "op", op, "err", err)
	if domain.IsRetryable(err) {
		return fmt.Errorf("%s failed (retryable): %w", op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func revisionArg(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func toChatResponse(res *domain.Result) ChatResponse {
	r := runner.NewResponse(res)
	return ChatResponse{
		SessionID: r.SessionID,
		Status:    string(r.Status),
		Prompt:    r.Prompt,
		Kind:      string(r.Kind),
		Revision:  r.Revision,
		Result:    r.Result,
	}
}
