// Package postgres stores dictionary entries and links in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Pool limits applied to every connection opened by New.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// Store is a store.Store on a PostgreSQL database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New connects to databaseURL and migrates the schema to the latest
// version before returning.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetEntry(ctx context.Context, key string) (*model.Entry, error) {
	return queryGetEntry(ctx, s.db, key)
}

func (s *Store) IterateEntries(ctx context.Context, fn func(*model.Entry) error) error {
	return queryIterateEntries(ctx, s.db, fn)
}

func (s *Store) SearchPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return querySearchPrefix(ctx, s.db, prefix, limit)
}

func (s *Store) CountEntries(ctx context.Context) (int, error) {
	return queryCount(ctx, s.db, "words")
}

func (s *Store) CountLinks(ctx context.Context) (int, error) {
	return queryCount(ctx, s.db, "word_links")
}

// PutEntries upserts entries atomically: on error none are written.
func (s *Store) PutEntries(ctx context.Context, entries []*model.Entry) (int, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := queryUpsertEntry(ctx, tx, e); err != nil {
				return fmt.Errorf("upsert %q: %w", e.WordKey, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ReplaceLinks swaps the whole link table for links. Readers see either
// the old or the new set.
func (s *Store) ReplaceLinks(ctx context.Context, links []model.Edge) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM word_links`); err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
		return queryInsertLinks(ctx, tx, links)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
