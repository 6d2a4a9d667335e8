package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API server with the workflow proxy mounted alongside it.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}

	engine, ledger, _, err := r.buildEngine(db)
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.CORSMiddleware(), server.LoggingMiddleware(r.logger))
	router.Handler(server.NewAPIHandler(engine, ledger, r.engineOptions(), r.logger))
	router.Handler(server.NewProxyHandler(
		r.config.Credentials.Coze.BaseURL+"/v1/workflow/stream_run",
		r.httpClient,
		r.logger,
	))

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-notifyCtx.Done():
		r.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}
