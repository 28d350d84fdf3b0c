package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Game struct {
		MaxUsersPerRoom    int `yaml:"max_users_per_room"`
		SecondsBeforeStart int `yaml:"seconds_before_start"`
		SecondsForGame     int `yaml:"seconds_for_game"`
	} `yaml:"game"`
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		StaticDir      string   `yaml:"static_dir"`
	} `yaml:"server"`
	Corpus struct {
		Source string   `yaml:"source"`
		Texts  []string `yaml:"texts"`
	} `yaml:"corpus"`
	Results struct {
		NatsURL  string `yaml:"nats_url"`
		Database bool   `yaml:"database"`
	} `yaml:"results"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

const (
	corpusSourceYAML     = "yaml"
	corpusSourcePostgres = "postgres"
)

func defaultConfig() *Config {
	var c Config
	c.Game.MaxUsersPerRoom = 5
	c.Game.SecondsBeforeStart = 10
	c.Game.SecondsForGame = 60
	c.Server.Port = "8080"
	c.Server.AllowedOrigins = []string{"*"}
	c.Corpus.Source = corpusSourceYAML
	c.Log.Level = "info"
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Game.MaxUsersPerRoom = getEnvAsInt("MAX_USERS_PER_ROOM", c.Game.MaxUsersPerRoom)
	c.Game.SecondsBeforeStart = getEnvAsInt("SECONDS_BEFORE_START", c.Game.SecondsBeforeStart)
	c.Game.SecondsForGame = getEnvAsInt("SECONDS_FOR_GAME", c.Game.SecondsForGame)
	c.Corpus.Source = getEnv("CORPUS_SOURCE", c.Corpus.Source)
	c.Results.NatsURL = getEnv("NATS_URL", c.Results.NatsURL)
	c.Results.Database = getEnvAsBool("RESULTS_DATABASE", c.Results.Database)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) validate() error {
	if c.Game.MaxUsersPerRoom < 2 {
		return fmt.Errorf("game.max_users_per_room must be at least 2, got %d", c.Game.MaxUsersPerRoom)
	}
	if c.Game.SecondsBeforeStart < 0 || c.Game.SecondsForGame <= 0 {
		return fmt.Errorf("invalid game timers: %ds before start, %ds for game",
			c.Game.SecondsBeforeStart, c.Game.SecondsForGame)
	}
	c.Corpus.Source = strings.ToLower(c.Corpus.Source)
	switch c.Corpus.Source {
	case corpusSourceYAML:
		if len(c.Corpus.Texts) == 0 {
			return errors.New("corpus.texts is empty")
		}
	case corpusSourcePostgres:
	default:
		return fmt.Errorf("unknown corpus.source %q", c.Corpus.Source)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}
