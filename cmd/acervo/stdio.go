package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/acervolabs/acervo"
	"github.com/acervolabs/acervo/internal/config"
	"github.com/acervolabs/acervo/internal/mcp"
)

func stdioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants search the indexed legal records. Configuration is
loaded from ACERVO_* environment variables and a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio()
		},
	}

	return cmd
}

func runStdio() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := acervo.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("create acervo client: %w", err)
	}
	logger := client.Logger()
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close acervo client", slog.Any("error", err))
		}
	}()

	logger.Info("starting MCP server", slog.String("version", version))

	mcpServer := mcp.NewServer(client.Search, client.Indexer, logger)
	return mcpServer.ServeStdio()
}
