package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/typerace/go/internal/corpus"
	"github.com/mcdev12/typerace/go/internal/race/admin"
	"github.com/mcdev12/typerace/go/internal/race/gateway"
	"github.com/mcdev12/typerace/go/internal/race/results"
	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Gateway  *gateway.Service
	Corpus   *corpus.Store
	Admin    *admin.Service
	Recorder *results.Recorder

	closers []func() error
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Corpus → result sinks → session hub + gateway → admin
	services := &Services{}

	store, err := setupCorpus(ctx, config)
	if err != nil {
		return nil, err
	}
	services.Corpus = store

	sinks, err := services.setupResultSinks(ctx, config)
	if err != nil {
		services.Close()
		return nil, err
	}

	var opts []session.Option
	if len(sinks) > 0 {
		services.Recorder = results.NewRecorder(results.DefaultConfig(), sinks...)
		opts = append(opts, session.WithRecorder(services.Recorder))
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.Session.MaxUsersPerRoom = config.Game.MaxUsersPerRoom
	gatewayConfig.Session.PreRaceSeconds = config.Game.SecondsBeforeStart
	gatewayConfig.Session.RaceSeconds = config.Game.SecondsForGame
	services.Gateway = gateway.NewService(ctx, gatewayConfig, store, opts...)

	services.Admin = admin.NewService(services.Gateway.Hub(), services.Gateway)
	return services, nil
}

func setupCorpus(ctx context.Context, config *Config) (*corpus.Store, error) {
	if config.Corpus.Source != corpusSourcePostgres {
		store, err := corpus.NewStore(config.Corpus.Texts)
		if err != nil {
			return nil, fmt.Errorf("failed to build corpus: %w", err)
		}
		log.Info().Int("texts", store.Count()).Msg("loaded text corpus from config")
		return store, nil
	}

	pool, err := setupPool(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return corpus.LoadPostgres(ctx, pool)
}

func (s *Services) setupResultSinks(ctx context.Context, config *Config) ([]results.Sink, error) {
	var sinks []results.Sink

	if config.Results.NatsURL != "" {
		jsConfig := results.DefaultJetStreamConfig()
		jsConfig.URL = config.Results.NatsURL
		publisher, err := results.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create result publisher: %w", err)
		}
		s.closers = append(s.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}

	if config.Results.Database {
		database, err := setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, database.Close)

		repo := results.NewRepository(database)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, repo)
	}

	return sinks, nil
}

// Close releases broker and database connections.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
	s.closers = nil
}
