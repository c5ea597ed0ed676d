package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"task-tracker/internal/config"
	"task-tracker/internal/logger"
	"task-tracker/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(cfg *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *cfg)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			deps := server.Deps{
				Users:          a.users,
				Tasks:          a.tasks,
				Auth:           a.auth,
				Ping:           a.store.Ping,
				UploadMaxBytes: cfg.UploadMaxBytes,
				AllowedOrigins: cfg.AllowedOrigins(),
			}
			if a.disk != nil {
				deps.UploadDir = a.disk.Dir()
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           server.NewRouter(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info(ctx, "HTTP сервер запущен", "addr", cfg.HTTPAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server")
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info(context.Background(), "Остановка HTTP сервера...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")

	return cmd
}
