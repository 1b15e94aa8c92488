package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uspace/uatrack/pkg/apiserver"
	"github.com/uspace/uatrack/pkg/eventbus"
	"github.com/uspace/uatrack/pkg/metrics"
	"github.com/uspace/uatrack/pkg/outbox"
	"github.com/uspace/uatrack/pkg/store/gormstore"
	redisclient "github.com/uspace/uatrack/pkg/store/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server (health, metrics, run reports)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			prometheus.MustRegister(metrics.NewCollector(e.store, e.logger))

			var redis *redisclient.Client
			if e.cfg.Outbox.Enabled {
				redis, err = redisclient.NewClient(ctx, &e.cfg.Redis)
				if err != nil {
					return err
				}
				defer redis.Close()

				relay := newRelay(e, redis)
				go func() {
					if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						e.logger.Error("outbox relay stopped", zap.Error(err))
					}
				}()
			}

			server := apiserver.NewServer(e.store, redis, e.cfg, e.logger)
			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", e.cfg.Server.HTTPPort),
				Handler:      server.Router(),
				ReadTimeout:  e.cfg.Server.ReadTimeout,
				WriteTimeout: e.cfg.Server.ReadTimeout * 2,
			}

			errCh := make(chan error, 1)
			go func() {
				e.logger.Info("starting admin server", zap.Int("port", e.cfg.Server.HTTPPort))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			e.logger.Info("shutting down admin server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				e.logger.Error("server forced to shutdown", zap.Error(err))
			}
			return nil
		},
	}
}

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish outbox events to the Redis event bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			redis, err := redisclient.NewClient(ctx, &e.cfg.Redis)
			if err != nil {
				return err
			}
			defer redis.Close()

			if err := newRelay(e, redis).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			e.logger.Info("outbox relay shutting down")
			return nil
		},
	}
}

func newRelay(e *env, redis *redisclient.Client) *outbox.Relay {
	return outbox.NewRelay(
		gormstore.NewOutboxRepository(e.store.DB()),
		eventbus.NewBus(redis.Client()),
		e.logger,
		e.cfg.Outbox.PollInterval,
		e.cfg.Outbox.BatchSize,
	)
}
