package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/djb258/client-sub001/internal/mcptools"
)

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the registry checks as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps := mcptools.Deps{
				Root:         a.cfg.Root,
				RegistryPath: a.cfg.RegistryPath,
				Logger:       a.log,
			}
			// Schema validation is optional here; the other tools work offline.
			if gw, err := a.gateway(); err == nil {
				deps.Gateway = gw
			} else {
				a.log.Warn("gateway not configured; registry_validate_schema disabled")
			}

			s := server.NewMCPServer("registry", version, server.WithToolCapabilities(false))
			mcptools.Register(s, deps)
			return server.ServeStdio(s)
		},
	}
}
