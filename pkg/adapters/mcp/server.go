package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource exposing the loop as a Mermaid flowchart.
const GraphURI = "voyage://graph"

// SessionResponse is the structured payload returned by the session tools.
type SessionResponse struct {
	State            *domain.State `json:"state,omitempty" jsonschema_description:"The session state after the call"`
	AwaitingApproval bool          `json:"awaiting_approval" jsonschema_description:"True when the email step waits for approve"`
	Draft            string        `json:"draft,omitempty" jsonschema_description:"Latest model answer while awaiting approval"`
	Output           string        `json:"output,omitempty" jsonschema_description:"The drafted email once approved"`
	Error            string        `json:"error,omitempty" jsonschema_description:"Set when the call stopped early"`
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ApproveArgs are the arguments of the approve tool.
type ApproveArgs struct {
	SessionID string `json:"session_id"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the Agent and exposes it as an MCP Server.
type Server struct {
	agent     *voyage.Agent
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for transport and tool events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(agent *voyage.Agent, opts ...Option) *Server {
	s := &Server{
		agent:     agent,
		mcpServer: server.NewMCPServer("voyage-mcp", strings.TrimSpace(voyage.Version), server.WithToolCapabilities(false)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// SSEHandler returns the SSE transport: GET /sse opens the event stream and
// POST /message carries the client's requests. baseURL is advertised to
// clients as the message endpoint's origin.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(allowCORS)
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())
	return r
}

// ServeSSE listens on the given port until ctx is done, then shuts down.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.SSEHandler(fmt.Sprintf("http://localhost:%d", port)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", httpServer.Addr)
		done <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping MCP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not stop server gracefully: %w", err)
	}
	return nil
}

// allowCORS lets browser-based MCP inspectors reach the transport.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: chat
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a travel query to a session. Runs the agent until it needs approval to send the email."),
		mcp.WithString("session_id", mcp.Description("Session to continue (default "+voyage.DefaultSessionID+")")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The human message")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	// TOOL: approve
	approveTool := mcp.NewTool("approve",
		mcp.WithDescription("Approve or reject sending the email of a paused session."),
		mcp.WithString("session_id", mcp.Description("Session waiting for approval")),
		mcp.WithBoolean("approved", mcp.Required(), mcp.Description("Whether the email may be sent")),
		mcp.WithString("reason", mcp.Description("Why the email was rejected")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(approveTool, mcp.NewStructuredToolHandler(s.handleApprove))

	// TOOL: get_session
	sessionTool := mcp.NewTool("get_session",
		mcp.WithDescription("Load the conversation of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to load")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(sessionTool, mcp.NewStructuredToolHandler(s.handleGetSession))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render the agent loop as a Mermaid flowchart, optionally highlighting a session."),
		mcp.WithString("session_id", mcp.Description("Session to highlight")),
	), s.handleGetGraph)
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (SessionResponse, error) {
	state, err := s.agent.Invoke(ctx, sessionOrDefault(args.SessionID), args.Message)
	if err != nil && (state == nil || voyage.IsInputError(err) || errors.Is(err, domain.ErrSessionComplete)) {
		return SessionResponse{}, fmt.Errorf("chat failed: %w", err)
	}
	if err != nil {
		s.logger.Warn("MCP chat stopped early", "session_id", args.SessionID, "err", err)
	}
	return toResponse(state, err), nil
}

func (s *Server) handleApprove(ctx context.Context, request mcp.CallToolRequest, args ApproveArgs) (SessionResponse, error) {
	decision := domain.Approve()
	if !args.Approved {
		decision = domain.Reject(args.Reason)
	}

	state, err := s.agent.Resume(ctx, sessionOrDefault(args.SessionID), decision)
	if err != nil && (state == nil || !errors.Is(err, domain.ErrApprovalDenied)) {
		return SessionResponse{}, fmt.Errorf("approve failed: %w", err)
	}
	return toResponse(state, err), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (SessionResponse, error) {
	state, err := s.agent.State(ctx, args.SessionID)
	if err != nil {
		return SessionResponse{}, err
	}
	return toResponse(state, nil), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chart, err := s.agent.Graph(ctx, request.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
	}
	return mcp.NewToolResultText(chart), nil
}

func (s *Server) registerResources() {
	// EXPOSE: voyage://graph
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Agent Loop",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		chart, err := s.agent.Graph(ctx, "")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     chart,
			},
		}, nil
	})
}

func toResponse(state *domain.State, err error) SessionResponse {
	resp := SessionResponse{State: state}
	if state != nil {
		resp.AwaitingApproval = state.Phase.Paused()
		resp.Output = state.Output
		if last, ok := state.Last(); ok && resp.AwaitingApproval {
			resp.Draft = last.Content
		}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func sessionOrDefault(id string) string {
	if id == "" {
		return voyage.DefaultSessionID
	}
	return id
}
