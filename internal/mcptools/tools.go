// Package mcptools exposes the registry checks as MCP tools so an agent can
// run them against the working tree.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/djb258/client-sub001/internal/drift"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/registry"
	"github.com/djb258/client-sub001/internal/schemacheck"
)

// Deps is what the tools run against.
type Deps struct {
	Root         string
	RegistryPath string
	// Gateway may be nil; registry_validate_schema then reports an error.
	Gateway gateway.Gateway
	Workers int
	Logger  *logger.Logger
}

// Register adds the registry tools to s.
func Register(s *server.MCPServer, deps Deps) {
	h := &handlers{deps: deps}

	verify := mcp.NewTool("registry_verify_codegen",
		mcp.WithDescription("Regenerate from the column registry in memory and report which committed generated files have drifted"),
	)
	validate := mcp.NewTool("registry_validate_schema",
		mcp.WithDescription("Compare the column registry against the live database structure reported by the gateway"),
		mcp.WithBoolean("strict",
			mcp.Description("Treat column type mismatches as errors (default: false)"),
		),
	)
	lint := mcp.NewTool("registry_lint",
		mcp.WithDescription("Check that every registry table and column carries complete metadata"),
	)

	s.AddTool(verify, h.verifyCodegen)
	s.AddTool(validate, h.validateSchema)
	s.AddTool(lint, h.lint)
}

type handlers struct {
	deps Deps
}

func (h *handlers) log() *logger.Logger {
	if h.deps.Logger == nil {
		return logger.Nop()
	}
	return h.deps.Logger.Component("mcp")
}

func (h *handlers) registryPath() string {
	if filepath.IsAbs(h.deps.RegistryPath) {
		return h.deps.RegistryPath
	}
	return filepath.Join(h.deps.Root, h.deps.RegistryPath)
}

func (h *handlers) verifyCodegen(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := drift.Verify(ctx, h.deps.Root, h.deps.RegistryPath, drift.Options{
		Workers: h.deps.Workers,
		Logger:  h.log(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Verify failed: %v", err)), nil
	}
	return jsonResult(rep)
}

func (h *handlers) validateSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.deps.Gateway == nil {
		return mcp.NewToolResultError("Gateway is not configured (set COMPOSIO_SERVER_URL and COMPOSIO_API_KEY)"), nil
	}
	reg, err := registry.Load(h.registryPath())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Registry load failed: %v", err)), nil
	}
	rep, err := schemacheck.Validate(ctx, h.deps.Gateway, reg, schemacheck.Options{
		StrictTypes: request.GetBool("strict", false),
		Logger:      h.log(),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Validation failed: %v", err)), nil
	}
	return jsonResult(rep)
}

func (h *handlers) lint(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := registry.Load(h.registryPath())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Registry load failed: %v", err)), nil
	}
	return jsonResult(registry.Lint(reg))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
