package store

import (
	"context"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// DefaultSearchLimit and MaxSearchLimit bound prefix search results.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// EntryReader is the read side of the dictionary.
type EntryReader interface {
	// GetEntry returns the entry whose word key equals key, or
	// model.ErrNotFound.
	GetEntry(ctx context.Context, key string) (*model.Entry, error)

	// IterateEntries calls fn for every entry. Returning an error from fn
	// stops the iteration and is returned unchanged.
	IterateEntries(ctx context.Context, fn func(*model.Entry) error) error

	// SearchPrefix returns up to limit word keys starting with prefix, in
	// ascending byte order.
	SearchPrefix(ctx context.Context, prefix string, limit int) ([]string, error)

	CountEntries(ctx context.Context) (int, error)
}

// LinkWriter persists the derived link set.
type LinkWriter interface {
	// ReplaceLinks atomically swaps the stored link set for links.
	ReplaceLinks(ctx context.Context, links []model.Edge) error
}

// Store defines the persistence interface for the dictionary and its
// derived link table.
type Store interface {
	EntryReader

	// PutEntries inserts entries, replacing any existing entry with the same
	// word key, and fills in their IDs. It returns the number written.
	PutEntries(ctx context.Context, entries []*model.Entry) (int, error)

	LinkWriter

	CountLinks(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}
