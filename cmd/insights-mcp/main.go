package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"crm-insights/internal/app"
	"crm-insights/internal/common/config"
	"crm-insights/internal/common/logger"
	"crm-insights/internal/mcptools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol.
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, log, prometheus.NewRegistry(), nil)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer deps.Close()

	tools, err := mcptools.New(cfg.MCP.BusinessID, deps.Engine, deps.Limiter, deps.Resolver)
	if err != nil {
		zapLog.Fatal("invalid config", zap.Error(err))
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
	}, nil)
	tools.Register(server)

	zapLog.Info("MCP server ready", zap.String("businessId", cfg.MCP.BusinessID))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		zapLog.Error("MCP server stopped", zap.Error(err))
	}
}
