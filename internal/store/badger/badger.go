// Package badger implements the store.Store interface on an embedded
// BadgerDB, for running without a PostgreSQL server.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

// Key layout:
//
//	w/<word_key>                    JSON entry
//	l/<gen:8>/<source:8><target:8>  link in generation gen
//	m/links                         current link generation
//	m/seq                           entry id sequence
var (
	entryPrefix = []byte("w/")
	linkPrefix  = []byte("l/")
	linkGenKey  = []byte("m/links")
	seqKey      = []byte("m/seq")
)

// putBatchSize is the number of entries written per transaction.
const putBatchSize = 500

// Config configures the embedded database.
type Config struct {
	// Path is the data directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	SyncWrites bool

	// Logger receives badger's internal logs. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often to run value log GC; 0 disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns the production settings for a data directory.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for a throwaway in-memory database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements store.Store on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

// Compile-time check that BadgerStore implements store.Store.
var _ store.Store = (*BadgerStore)(nil)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence(seqKey, 1000)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}

	s := &BadgerStore{db: db, seq: seq, logger: cfg.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC failed", "err", err)
			}
		}
	}
}

// Close stops background GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("release id sequence", "err", err)
	}
	return s.db.Close()
}

func entryKey(wordKey string) []byte {
	return append(bytes.Clone(entryPrefix), wordKey...)
}

func genPrefix(gen uint64) []byte {
	p := bytes.Clone(linkPrefix)
	p = binary.BigEndian.AppendUint64(p, gen)
	return append(p, '/')
}

func decodeEntry(item *badger.Item) (*model.Entry, error) {
	var e model.Entry
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	return &e, nil
}

func (s *BadgerStore) GetEntry(_ context.Context, key string) (*model.Entry, error) {
	var e *model.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(model.NormalizeKey(key)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		e, err = decodeEntry(item)
		return err
	})
	return e, err
}

func (s *BadgerStore) IterateEntries(ctx context.Context, fn func(*model.Entry) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := decodeEntry(it.Item())
			if err != nil {
				return err
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) SearchPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	seek := entryKey(model.NormalizeKey(prefix))
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = seek
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(seek) && len(keys) < limit; it.Next() {
			keys = append(keys, string(it.Item().Key()[len(entryPrefix):]))
		}
		return nil
	})
	return keys, err
}

func (s *BadgerStore) countPrefix(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerStore) CountEntries(context.Context) (int, error) {
	return s.countPrefix(entryPrefix)
}

// PutEntries upserts entries in batches. An entry that replaces an existing
// word key keeps the existing ID.
func (s *BadgerStore) PutEntries(ctx context.Context, entries []*model.Entry) (int, error) {
	n := 0
	for start := 0; start < len(entries); start += putBatchSize {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		batch := entries[start:min(start+putBatchSize, len(entries))]
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, e := range batch {
				key := entryKey(e.WordKey)
				item, err := txn.Get(key)
				switch {
				case err == nil:
					old, err := decodeEntry(item)
					if err != nil {
						return err
					}
					e.ID = old.ID
				case errors.Is(err, badger.ErrKeyNotFound):
					next, err := s.seq.Next()
					if err != nil {
						return fmt.Errorf("next id: %w", err)
					}
					e.ID = model.EntryID(next + 1)
				default:
					return err
				}
				val, err := json.Marshal(e)
				if err != nil {
					return err
				}
				if err := txn.Set(key, val); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return n, fmt.Errorf("put entries: %w", err)
		}
		n += len(batch)
	}
	return n, nil
}

func (s *BadgerStore) currentLinkGen() (uint64, error) {
	var gen uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(linkGenKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt link generation: %d bytes", len(val))
			}
			gen = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return gen, err
}

// ReplaceLinks writes links under a fresh generation, then flips the
// generation pointer in one transaction and drops the old generation.
// Readers see either the old or the new set.
func (s *BadgerStore) ReplaceLinks(ctx context.Context, links []model.Edge) error {
	old, err := s.currentLinkGen()
	if err != nil {
		return err
	}
	gen := old + 1
	prefix := genPrefix(gen)

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, l := range links {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		key := binary.BigEndian.AppendUint64(bytes.Clone(prefix), uint64(l.Source))
		key = binary.BigEndian.AppendUint64(key, uint64(l.Target))
		if err := wb.Set(key, []byte{}); err != nil {
			return fmt.Errorf("write link: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush links: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(linkGenKey, binary.BigEndian.AppendUint64(nil, gen))
	})
	if err != nil {
		_ = s.db.DropPrefix(prefix)
		return fmt.Errorf("publish link generation: %w", err)
	}

	if old > 0 {
		if err := s.db.DropPrefix(genPrefix(old)); err != nil {
			s.logger.Warn("drop old link generation", "generation", old, "err", err)
		}
	}
	return nil
}

func (s *BadgerStore) CountLinks(context.Context) (int, error) {
	gen, err := s.currentLinkGen()
	if err != nil || gen == 0 {
		return 0, err
	}
	return s.countPrefix(genPrefix(gen))
}
