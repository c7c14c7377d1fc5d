package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only and admin MCP servers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	settings := application.Settings

	readOnly := mcpserver.NewReadOnlyServer(application.Catalog, application.Context, application.Meta, application.Retrieve, logTagged("mcp-readonly"))
	admin := mcpserver.NewAdminServer(application.Catalog, application.Meta, application.Wizard, application.Indexer, logTagged("mcp-admin"))

	roAddr := net.JoinHostPort(settings.MCPReadOnlyHost, fmt.Sprint(settings.MCPReadOnlyPort))
	adminAddr := net.JoinHostPort(settings.MCPAdminHost, fmt.Sprint(settings.MCPAdminPort))

	errCh := make(chan error, 2)
	go func() { errCh <- readOnly.Start(roAddr) }()
	go func() { errCh <- admin.Start(adminAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		application.Log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := readOnly.Shutdown(ctx); err != nil {
		application.Log.Warn("read-only server shutdown", zap.Error(err))
	}
	if err := admin.Shutdown(ctx); err != nil {
		application.Log.Warn("admin server shutdown", zap.Error(err))
	}
	return nil
}

func logTagged(component string) *zap.Logger {
	return application.Log.With(zap.String("component", component))
}
