// Package mcp exposes the engine as a Model Context Protocol server.
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

	"github.com/aretw0/archguide/internal/diagram"
	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/internal/recovery"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const sessionURIPrefix = "archguide://sessions/"

// Sessions is the session access the resources need.
type Sessions interface {
	Load(ctx context.Context, sessionID string) (domain.TurnState, error)
	List(ctx context.Context) ([]string, error)
}

// DiagramResult is the output of sanitize_diagram.
type DiagramResult struct {
	Diagram string `json:"diagram" jsonschema_description:"The sanitized diagram"`
	Valid   bool   `json:"valid" jsonschema_description:"Whether the diagram passes the structural checks"`
	Problem string `json:"problem,omitempty" jsonschema_description:"The first structural problem, if any"`
}

// TacticsResult is the output of recover_tactics.
type TacticsResult struct {
	Tactics  []domain.TacticItem `json:"tactics" jsonschema_description:"Exactly k normalized tactics"`
	Strategy string              `json:"strategy" jsonschema_description:"The recovery strategy that succeeded"`
}

// ValidationResult is the output of validate_tactics.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.TurnEngine
	sessions  Sessions
	oracle    ports.Oracle
	k         int
	maxInput  int
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithOracle enables the model repair step of recover_tactics.
func WithOracle(o ports.Oracle) Option {
	return func(s *Server) {
		s.oracle = o
	}
}

// WithTacticsCount sets the default k of recover_tactics and validate_tactics.
func WithTacticsCount(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithMaxInputSize caps the text of a turn, in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.TurnEngine, sessions Sessions, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		k:         recovery.DefaultK,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("archguide-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts it down
// when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

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
		s.logger.Info("MCP server listening (SSE)", "address", addr)
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	turnTool := mcp.NewTool("chat_turn",
		mcp.WithDescription("Send one message to the architecture assistant. The session keeps the last ASR, chosen style and tactics between turns."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("session_id", mcp.Description("Session to continue; a new one is created when omitted")),
		mcp.WithString("forced_intent", mcp.Description("Pin the turn to a stage: asr, style, tactics or diagram"),
			mcp.Enum("asr", "style", "tactics", "diagram")),
		mcp.WithBoolean("doc_only", mcp.Description("Use doc_context as the only grounding")),
		mcp.WithString("doc_context", mcp.Description("A document to ground the turn on")),
		mcp.WithString("add_context", mcp.Description("Extra free-form context")),
		mcp.WithOutputSchema[domain.TurnResult](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleTurn))

	sanitizeTool := mcp.NewTool("sanitize_diagram",
		mcp.WithDescription("Repair a Mermaid flowchart: header, ASCII labels, one declaration per node before its first edge."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("Raw diagram text, fenced or not")),
		mcp.WithOutputSchema[DiagramResult](),
	)
	s.mcpServer.AddTool(sanitizeTool, mcp.NewStructuredToolHandler(s.handleSanitize))

	recoverTool := mcp.NewTool("recover_tactics",
		mcp.WithDescription("Recover exactly k structured tactics from free model output."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Model output containing tactics")),
		mcp.WithNumber("k", mcp.Description("Number of tactics expected (default 3)")),
		mcp.WithString("artifact", mcp.Description("The ASR the tactics answer, used by the repair step")),
		mcp.WithOutputSchema[TacticsResult](),
	)
	s.mcpServer.AddTool(recoverTool, mcp.NewStructuredToolHandler(s.handleRecover))

	validateTool := mcp.NewTool("validate_tactics",
		mcp.WithDescription("Check a JSON tactic array against the tactic schema."),
		mcp.WithString("json", mcp.Required(), mcp.Description("The JSON array")),
		mcp.WithNumber("k", mcp.Description("Number of tactics expected (default 3)")),
		mcp.WithOutputSchema[ValidationResult](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) handleTurn(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.TurnResult, error) {
	text, _ := args["text"].(string)
	clean, err := runner.SanitizeInputLimit(text, s.maxInput)
	if err != nil {
		s.logger.Warn("MCP turn: input rejected", "err", err, "size", len(text))
		return domain.TurnResult{}, fmt.Errorf("input rejected: %w", err)
	}

	req := domain.TurnRequest{Text: clean}
	req.SessionID, _ = args["session_id"].(string)
	if fi, ok := args["forced_intent"].(string); ok && fi != "" {
		req.ForcedIntent = domain.Intent(fi)
		if _, ok := req.ForcedIntent.ForcedStage(); !ok {
			return domain.TurnResult{}, fmt.Errorf("invalid forced_intent %q", fi)
		}
	}
	req.DocOnly, _ = args["doc_only"].(bool)
	req.DocContext, _ = args["doc_context"].(string)
	req.AddContext, _ = args["add_context"].(string)

	res, err := s.engine.Turn(ctx, req)
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleSanitize(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DiagramResult, error) {
	raw, _ := args["diagram"].(string)
	clean := diagram.Sanitize(raw)
	res := DiagramResult{Diagram: clean, Valid: true}
	if err := diagram.Validate(diagram.Parse(clean)); err != nil {
		res.Valid = false
		res.Problem = err.Error()
	}
	return res, nil
}

func (s *Server) handleRecover(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TacticsResult, error) {
	text, _ := args["text"].(string)
	artifact, _ := args["artifact"].(string)
	k := s.argK(args)

	pipeline, err := recovery.New(k, s.oracle, recovery.WithLogger(s.logger))
	if err != nil {
		return TacticsResult{}, err
	}
	out, err := pipeline.Recover(ctx, recovery.Input{Raw: text, Artifact: artifact})
	if err != nil {
		return TacticsResult{}, err
	}
	return TacticsResult{Tactics: out.Items, Strategy: out.Strategy}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResult, error) {
	raw, _ := args["json"].(string)
	v, err := recovery.NewValidator(s.argK(args))
	if err != nil {
		return ValidationResult{}, err
	}
	if err := v.ValidateJSON([]byte(raw)); err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}, nil
	}
	return ValidationResult{Valid: true}, nil
}

func (s *Server) argK(args map[string]interface{}) int {
	if f, ok := args["k"].(float64); ok && f >= 1 {
		return int(f)
	}
	return s.k
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("archguide://sessions", "Active sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		return jsonResource("archguide://sessions", ids)
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionURIPrefix+"{id}", "Session memory",
		mcp.WithTemplateDescription("The memory of one session: last ASR, style, tactics and decision log"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := request.Params.URI
		id := strings.TrimPrefix(uri, sessionURIPrefix)
		if id == "" || id == uri {
			return nil, fmt.Errorf("invalid session uri %q", uri)
		}
		state, err := s.sessions.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}
		return jsonResource(uri, state.Memory)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
