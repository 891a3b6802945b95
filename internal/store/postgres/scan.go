package postgres

import (
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEntry scans a single row into a model.Entry.
// The row must contain columns in the order defined by entryColumns.
func scanEntry(row scannable) (*model.Entry, error) {
	var e model.Entry
	var id int64
	err := row.Scan(
		&id,
		&e.Word,
		&e.WordKey,
		&e.Pronunciation,
		&e.Definition,
		&e.DefinitionLength,
	)
	if err != nil {
		return nil, err
	}
	e.ID = model.EntryID(id)
	return &e, nil
}
