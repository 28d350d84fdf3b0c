package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/typerace/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// corpusFile mirrors the corpus section of config.yaml
type corpusFile struct {
	Corpus struct {
		Texts []string `yaml:"texts"`
	} `yaml:"corpus"`
}

const createTexts = `
CREATE TABLE IF NOT EXISTS texts (
    id   SERIAL PRIMARY KEY,
    body TEXT NOT NULL UNIQUE
)`

func main() {
	path := "config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the texts
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read YAML: %v\n", err)
		os.Exit(1)
	}
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal YAML: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createTexts); err != nil {
		fmt.Fprintf(os.Stderr, "create texts table: %v\n", err)
		os.Exit(1)
	}

	// 3) Insert and count
	var (
		total    = len(file.Corpus.Texts)
		inserted int
		skipped  int
		errs     int
	)

	for i, body := range file.Corpus.Texts {
		cmdTag, err := pool.Exec(ctx,
			`INSERT INTO texts (body) VALUES ($1) ON CONFLICT (body) DO NOTHING`,
			body,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting text %d: %v\n", i, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Texts seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
