package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(config, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A cold catalog is filled on first use; warming it only moves the wait.
		if err := services.Catalog.Refresh(gctx); err != nil {
			log.Warn().Err(err).Msg("player catalog warm-up failed")
		}
		return nil
	})
	g.Go(func() error { return services.Gateway.Start(gctx) })
	if services.OutboxListener != nil {
		g.Go(func() error {
			defer services.OutboxListener.Stop()
			return services.OutboxListener.Start(gctx)
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("draft server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("draft server stopped with error")
	}
	log.Info().Msg("draft server shutdown complete")
}

func setupLogging(config *Config) {
	if config.Log.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if lvl, err := zerolog.ParseLevel(config.Log.Level); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
}
