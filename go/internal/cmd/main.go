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
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, _ := zerolog.ParseLevel(config.Log.Level)
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	server, err := setupServer(config, services)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup server")
	}

	log.Info().
		Str("port", config.Server.Port).
		Int("max_users_per_room", config.Game.MaxUsersPerRoom).
		Int("seconds_before_start", config.Game.SecondsBeforeStart).
		Int("seconds_for_game", config.Game.SecondsForGame).
		Str("corpus", config.Corpus.Source).
		Msg("starting typerace server")

	gatewayDone := make(chan struct{})
	go func() {
		services.Gateway.Start()
		close(gatewayDone)
	}()

	recorderDone := make(chan struct{})
	go func() {
		if services.Recorder != nil {
			services.Recorder.Run(ctx)
		}
		close(recorderDone)
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-gatewayDone
	<-recorderDone

	log.Info().Msg("typerace shutdown complete")
}
