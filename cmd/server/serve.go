package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anonto42/nano-community/backend/internal/handlers"
	"github.com/anonto42/nano-community/backend/internal/observability"
	"github.com/anonto42/nano-community/backend/internal/realtime"
	"github.com/anonto42/nano-community/backend/internal/router"
	"github.com/anonto42/nano-community/backend/internal/services"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the realtime hub and the story reaper",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracer shutdown failed")
		}
	}()

	hub := realtime.NewHub(log.Logger)
	go hub.Run(ctx)

	rt, err := bootstrap(ctx, cfg, router.Externals{Publisher: hub})
	if err != nil {
		return err
	}
	defer rt.Close()

	go reapLoop(ctx, rt.services.Stories, cfg.ReapInterval)

	checks := map[string]handlers.Pinger{
		"sql": func(ctx context.Context) error {
			sqlDB, err := rt.db.SQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"mongo": func(ctx context.Context) error { return rt.db.Mongo.Ping(ctx, nil) },
	}
	e := router.New(cfg, rt.services, hub, checks)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info().Msg("server exited")
	return nil
}

// reapLoop removes expired stories and their views every interval. The TTL
// index drops documents on its own schedule; views are swept by age here.
func reapLoop(ctx context.Context, stories *services.StoryService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := stories.Reap(log.Logger.WithContext(ctx))
			if err != nil {
				log.Error().Err(err).Msg("story reap failed")
				continue
			}
			if n > 0 {
				log.Info().Int("stories", n).Msg("expired stories reaped")
			}
		}
	}
}
