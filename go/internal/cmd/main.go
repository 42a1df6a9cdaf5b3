package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.LogLevel)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder, closeJournal, err := setupJournal(ctx, cfg.Journal)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up journal")
	}
	defer closeJournal()

	services, err := setupServices(cfg, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	server := setupServer(cfg.Port, services)

	log.Info().
		Str("port", cfg.Port).
		Bool("nats", cfg.NATS.Enabled).
		Str("nats_url", cfg.NATS.URL).
		Bool("journal", cfg.Journal.Enabled).
		Msg("starting buff overlay server")

	// Run the buff timers
	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		if err := services.Controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("controller loop failed")
		}
	}()

	// Start gateway service (includes command consumer and connection manager)
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Run cancels every pending buff timer on its way out
	<-controllerDone

	log.Info().Msg("server stopped")
}
