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

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/config"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/pathway"
	"github.com/aretw0/callflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	PathwaysURI = "callflow://pathways"
	ConfigURI   = "callflow://config"
)

// CallNode is the structured result of the call tools.
type CallNode struct {
	CallID string `json:"call_id" jsonschema_description:"The call identifier"`
	Node   string `json:"node" jsonschema_description:"The pathway node the call is at"`
}

// Server exposes the callflow administration surface as an MCP Server.
type Server struct {
	graph     *pathway.Graph
	sessions  *session.Manager
	config    *config.Store
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(graph *pathway.Graph, sessions *session.Manager, cfg *config.Store, version string, opts ...Option) *Server {
	s := &Server{
		graph:     graph,
		sessions:  sessions,
		config:    cfg,
		mcpServer: server.NewMCPServer("callflow-mcp", strings.TrimSpace(version)),
		logger:    logging.NewNop(),
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

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_config",
		mcp.WithDescription("Get the current assistant configuration."),
	), s.handleGetConfig)

	s.mcpServer.AddTool(mcp.NewTool("update_config",
		mcp.WithDescription("Shallow-merge top-level keys into the assistant configuration. Nested objects are replaced."),
		mcp.WithString("config", mcp.Required(), mcp.Description("JSON object with the keys to replace")),
	), s.handleUpdateConfig)

	s.mcpServer.AddTool(mcp.NewTool("get_call_node",
		mcp.WithDescription("Get the pathway node a call is at."),
		mcp.WithString("call_id", mcp.Required(), mcp.Description("Call identifier")),
		mcp.WithOutputSchema[CallNode](),
	), mcp.NewStructuredToolHandler(s.handleGetCallNode))

	s.mcpServer.AddTool(mcp.NewTool("set_call_node",
		mcp.WithDescription("Move a call to a pathway node."),
		mcp.WithString("call_id", mcp.Required(), mcp.Description("Call identifier")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Name of an existing pathway node")),
		mcp.WithOutputSchema[CallNode](),
	), mcp.NewStructuredToolHandler(s.handleSetCallNode))

	s.mcpServer.AddTool(mcp.NewTool("reset_call",
		mcp.WithDescription("Forget a call. Its next turn starts at the entry node."),
		mcp.WithString("call_id", mcp.Required(), mcp.Description("Call identifier")),
	), s.handleResetCall)
}

func (s *Server) handleGetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(s.config.Get())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleUpdateConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patch, err := request.RequireString("config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg, err := s.config.Update(ctx, []byte(patch))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			return mcp.NewToolResultError("Invalid configuration"), nil
		}
		return nil, fmt.Errorf("update failed: %w", err)
	}

	body, _ := json.Marshal(cfg)
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleGetCallNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CallNode, error) {
	callID, _ := args["call_id"].(string)
	if callID == "" {
		return CallNode{}, fmt.Errorf("call_id is required")
	}

	node, err := s.sessions.Lookup(ctx, callID)
	if err != nil {
		return CallNode{}, fmt.Errorf("lookup failed: %w", err)
	}
	return CallNode{CallID: callID, Node: node}, nil
}

func (s *Server) handleSetCallNode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CallNode, error) {
	callID, _ := args["call_id"].(string)
	node, _ := args["node"].(string)
	if callID == "" {
		return CallNode{}, fmt.Errorf("call_id is required")
	}
	if !s.graph.Has(node) {
		return CallNode{}, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, node)
	}

	if err := s.sessions.SetNode(ctx, callID, node); err != nil {
		return CallNode{}, fmt.Errorf("set failed: %w", err)
	}
	s.logger.Info("MCP: call moved", "call_id", callID, "node", node)
	return CallNode{CallID: callID, Node: node}, nil
}

func (s *Server) handleResetCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callID, err := request.RequireString("call_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Reset(ctx, callID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	s.logger.Info("MCP: call reset", "call_id", callID)
	return mcp.NewToolResultText(fmt.Sprintf("call %s reset", callID)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(PathwaysURI, "Pathway Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		body, err := pathway.Encode(s.graph, pathway.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode pathway: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      PathwaysURI,
				MIMEType: "application/json",
				Text:     string(body),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(ConfigURI, "Assistant Configuration",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		body, err := json.Marshal(s.config.Get())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ConfigURI,
				MIMEType: "application/json",
				Text:     string(body),
			},
		}, nil
	})
}
