package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink/config"
	mongolinkhttp "github.com/sagarc03/mongolink/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status HTTP server",
	Long: `Connect every configured alias and serve connection status over HTTP.

Routes:
  GET /healthz              ping every connected alias
  GET /connections          list aliases with redacted settings
  GET /connections/{alias}  show one alias
  GET /ping                 ping the alias given by --alias`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5709, "HTTP server port")
	serveCmd.Flags().String("alias", "", "alias bound to GET /ping (default: default-mongodb-connection)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m, err := newManager(cfg, cfg.App)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	defer closeManager(ctx, m)

	handles, err := m.Create(ctx, cfg.App)
	if err != nil {
		return fmt.Errorf("connect databases: %w", err)
	}
	for alias, h := range handles {
		slog.Info("connection ready", "alias", alias, "db", h.Name())
	}

	handler := mongolinkhttp.NewHandler(&mongolinkhttp.HandlerConfig{
		CORS:  cfg.CORS,
		Alias: cfg.Server.Alias,
	}, m)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "aliases", len(handles))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
