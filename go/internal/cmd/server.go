package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/mcdev12/typerace/go/internal/corpus"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) (*http.Server, error) {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: config.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register services
	if err := registerServices(mux, services); err != nil {
		return nil, err
	}

	// Add health check endpoint
	setupHealthCheck(mux)

	// Static client pages
	setupStatic(mux, config.Server.StaticDir)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}, nil
}

func registerServices(mux *http.ServeMux, services *Services) error {
	// WebSocket gateway
	services.Gateway.RegisterRoutes(mux)

	// Text corpus
	corpusHandler := corpus.NewHandler(services.Corpus)
	corpusHandler.RegisterRoutes(mux)

	// Admin stats RPC and reflection
	return services.Admin.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupStatic(mux *http.ServeMux, dir string) {
	if dir == "" {
		return
	}
	mux.HandleFunc("GET /game", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dir, "game.html"))
	})
	mux.Handle("/", http.FileServer(http.Dir(dir)))
	log.Info().Str("dir", dir).Msg("serving static files")
}
