// Package loader reads dictionary entry files for bulk loading into a store.
package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// ErrUnsupportedFormat is returned for file extensions the loader does not read.
var ErrUnsupportedFormat = errors.New("unsupported entry file format")

type record struct {
	Word          string `json:"word" yaml:"word"`
	Definition    string `json:"definition" yaml:"definition"`
	Pronunciation string `json:"pronunciation" yaml:"pronunciation"`
}

// Result is the outcome of reading an entry file. Entries are in file
// order with derived fields filled in and no IDs.
type Result struct {
	Entries []*model.Entry

	// Duplicates counts records dropped because an earlier record had the
	// same word key.
	Duplicates int
}

// LoadFile reads entries from path, choosing the format by extension:
// .jsonl and .ndjson for JSON lines, .yaml and .yml for a YAML list.
func LoadFile(path string) (*Result, error) {
	var read func(io.Reader) (*Result, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		read = ReadJSONL
	case ".yaml", ".yml":
		read = ReadYAML
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ReadJSONL reads one JSON entry object per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) (*Result, error) {
	b := newBuilder()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := b.add(rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return b.result(), nil
}

// ReadYAML reads a YAML list of entry mappings.
func ReadYAML(r io.Reader) (*Result, error) {
	var recs []record
	if err := yaml.NewDecoder(r).Decode(&recs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	b := newBuilder()
	for i, rec := range recs {
		if err := b.add(rec); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return b.result(), nil
}

type builder struct {
	seen map[string]struct{}
	res  Result
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{})}
}

func (b *builder) add(rec record) error {
	e := model.NewEntry(rec.Word, rec.Definition, rec.Pronunciation)
	if e.WordKey == "" {
		return fmt.Errorf("%w: blank word", model.ErrInvalidInput)
	}
	if _, dup := b.seen[e.WordKey]; dup {
		b.res.Duplicates++
		return nil
	}
	b.seen[e.WordKey] = struct{}{}
	b.res.Entries = append(b.res.Entries, e)
	return nil
}

func (b *builder) result() *Result {
	if b.res.Entries == nil {
		b.res.Entries = []*model.Entry{}
	}
	return &b.res
}
