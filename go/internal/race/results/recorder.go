package results

import (
	"context"
	"time"

	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Sink stores or forwards a finished race.
type Sink interface {
	Name() string
	Save(ctx context.Context, result models.RaceResult) error
}

// Config holds recorder settings.
type Config struct {
	BufferSize  int
	SaveTimeout time.Duration
}

// DefaultConfig returns default recorder settings.
func DefaultConfig() Config {
	return Config{
		BufferSize:  256,
		SaveTimeout: 5 * time.Second,
	}
}

// Recorder hands race results to its sinks on its own goroutine so the
// session hub never waits on a database or broker.
type Recorder struct {
	config  Config
	sinks   []Sink
	results chan models.RaceResult
}

// NewRecorder creates a recorder. Call Run to start draining.
func NewRecorder(config Config, sinks ...Sink) *Recorder {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = DefaultConfig().SaveTimeout
	}
	return &Recorder{
		config:  config,
		sinks:   sinks,
		results: make(chan models.RaceResult, config.BufferSize),
	}
}

// Record queues a result. It never blocks; a full queue drops the result.
func (r *Recorder) Record(result models.RaceResult) {
	select {
	case r.results <- result:
	default:
		log.Warn().
			Str("race_id", result.ID.String()).
			Str("room", result.Room).
			Msg("result queue full, dropping race result")
	}
}

// Run saves queued results until ctx is cancelled, then flushes what is
// already queued.
func (r *Recorder) Run(ctx context.Context) {
	log.Info().Int("sinks", len(r.sinks)).Msg("race result recorder started")

	for {
		select {
		case <-ctx.Done():
			r.flush()
			log.Info().Msg("race result recorder stopped")
			return
		case result := <-r.results:
			r.save(ctx, result)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case result := <-r.results:
			r.save(context.Background(), result)
		default:
			return
		}
	}
}

func (r *Recorder) save(ctx context.Context, result models.RaceResult) {
	for _, sink := range r.sinks {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.SaveTimeout)
		err := sink.Save(saveCtx, result)
		cancel()

		if err != nil {
			log.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("race_id", result.ID.String()).
				Msg("failed to save race result")
			continue
		}
		log.Debug().
			Str("sink", sink.Name()).
			Str("race_id", result.ID.String()).
			Str("winner", result.Winner()).
			Msg("race result saved")
	}
}
