package main

import (
	"log/slog"
	"os"

	"github.com/alfredjeanlab/lexigraph/internal/config"
	"github.com/alfredjeanlab/lexigraph/internal/extract"
	"github.com/alfredjeanlab/lexigraph/internal/lexicon"
	"github.com/alfredjeanlab/lexigraph/internal/store"
	"github.com/alfredjeanlab/lexigraph/internal/store/badger"
	"github.com/alfredjeanlab/lexigraph/internal/store/postgres"
)

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the store cfg selects: Postgres when a database URL is
// set, the embedded badger store otherwise.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.UsesPostgres() {
		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	bc := badger.DefaultConfig(cfg.DataDir)
	bc.Logger = logger
	st, err := badger.Open(bc)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func engineOptions(cfg *config.Config, st store.Store, logger *slog.Logger) lexicon.Options {
	opts := lexicon.Options{
		Extract:      extract.Options{MinLength: cfg.MinWordLength},
		Workers:      cfg.ExtractWorkers,
		CycleLimit:   cfg.CycleSampleLimit,
		CycleTimeout: cfg.CycleTimeout,
		Links:        st,
		Logger:       logger,
	}
	if cfg.FilterStopWords {
		opts.Extract.StopWords = extract.DefaultStopWords()
	}
	return opts
}
