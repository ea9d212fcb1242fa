package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/node"
)

// Config holds MCP server configuration.
type Config struct {
	DeploymentPath string
	AuditLogPath   string
	EventStorePath string
	Version        string
	// Clock drives block timestamps. Nil uses wall time.
	Clock chain.Clock
}

// Server exposes a deployment's actions as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	node      *node.Node
}

// New creates an MCP server over a freshly built deployment.
func New(cfg Config) (*Server, error) {
	n, err := node.New(node.Options{
		DeploymentPath: cfg.DeploymentPath,
		AuditLog:       cfg.AuditLogPath,
		EventStore:     cfg.EventStorePath,
		Clock:          cfg.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start node: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{node: n}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "vaultguard",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the node's audit log and event store.
func (s *Server) Close() error {
	return s.node.Close()
}

// registerTools adds all vaultguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vaultguard_execute",
		Description: "Invoke a method of a deployed vault action. Reverted calls return an error result with the revert code and reason.",
	}, s.handleExecute)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vaultguard_actions",
		Description: "List the deployed actions with their kinds, addresses and callable methods.",
	}, s.handleActions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vaultguard_inspect",
		Description: "Show the guard configuration of one action: thresholds, accepted tokens, time lock, signers, gas limits and relayers.",
	}, s.handleInspect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vaultguard_events",
		Description: "Query events emitted by successful calls, filtered by emitter, name and block range.",
	}, s.handleEvents)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "vaultguard_stats",
		Description: "Summarize executed calls per status and gas used, optionally for one action.",
	}, s.handleStats)
}
