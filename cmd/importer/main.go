// Command importer upserts a business catalogue file into the store by business name.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"queueaway/internal/database"
	"queueaway/internal/seed"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		cataloguePath = flag.String("catalogue", "", "path to a businesses yaml; empty imports the built-in demo catalogue")
		dbPath        = flag.String("db", "./data/queueaway.db", "path to sqlite db")
	)
	flag.Parse()

	businesses, err := seed.Load(*cataloguePath)
	if err != nil {
		return err
	}
	if len(businesses) == 0 {
		return fmt.Errorf("no businesses in catalogue")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, updated, err := seed.Sync(ctx, db, businesses)
	if err != nil {
		return err
	}
	logger.Info().Int("created", created).Int("updated", updated).Msg("catalogue imported")
	return nil
}
