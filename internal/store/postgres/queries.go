package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

// entryColumns is the column list used for SELECT statements on the words table.
const entryColumns = `id, word, word_lower, pronunciation, definition, definition_length`

// linkBatchSize is the number of rows per multi-row INSERT into word_links.
const linkBatchSize = 1000

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetEntry(ctx context.Context, db executor, key string) (*model.Entry, error) {
	row := db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM words WHERE word_lower = $1`, model.NormalizeKey(key))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func queryIterateEntries(ctx context.Context, db executor, fn func(*model.Entry) error) error {
	rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM words ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan word: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func querySearchPrefix(ctx context.Context, db executor, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	rows, err := db.QueryContext(ctx, `
		SELECT word_lower FROM words
		WHERE word_lower LIKE $1 ESCAPE '\'
		ORDER BY word_lower COLLATE "C"
		LIMIT $2`,
		escapeLike(model.NormalizeKey(prefix))+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func queryCount(ctx context.Context, db executor, table string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

func queryUpsertEntry(ctx context.Context, db executor, e *model.Entry) error {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO words (word, word_lower, pronunciation, definition, definition_length)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (word_lower) DO UPDATE SET
			word = EXCLUDED.word,
			pronunciation = EXCLUDED.pronunciation,
			definition = EXCLUDED.definition,
			definition_length = EXCLUDED.definition_length
		RETURNING id`,
		e.Word, e.WordKey, e.Pronunciation, e.Definition, e.DefinitionLength,
	).Scan(&id)
	if err != nil {
		return err
	}
	e.ID = model.EntryID(id)
	return nil
}

// queryInsertLinks writes links in multi-row batches. Duplicate pairs are
// skipped by the primary key.
func queryInsertLinks(ctx context.Context, db executor, links []model.Edge) error {
	for start := 0; start < len(links); start += linkBatchSize {
		batch := links[start:min(start+linkBatchSize, len(links))]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO word_links (source_word_id, target_word_id) VALUES `)
		args := make([]any, 0, len(batch)*2)
		for i, l := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
			args = append(args, int64(l.Source), int64(l.Target))
		}
		sb.WriteString(` ON CONFLICT DO NOTHING`)

		if _, err := db.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert links %d-%d: %w", start, start+len(batch), err)
		}
	}
	return nil
}
