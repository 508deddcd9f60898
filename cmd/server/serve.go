package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `serve starts the HTTP API on the configured port:

  GET /health
  GET /api/v1/prices/search?q=&household=&sort=&brand=&qty=
  GET /api/v1/prices/retailers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Server.Port = port
		}

		log.Info("starting pricelens backend",
			zap.String("version", version),
			zap.String("environment", cfg.Server.Environment),
			zap.String("port", cfg.Server.Port))

		deps, err := buildDependencies(cfg, log)
		if err != nil {
			return err
		}

		handler := httpDelivery.NewHandler(deps.prices, log)
		router := httpDelivery.SetupRouter(cfg, handler, log)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			log.Info("server listening", zap.String("addr", server.Addr))
			serveErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("failed to start server: %w", err)
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "override the configured port")

	rootCmd.AddCommand(serveCmd)
}
