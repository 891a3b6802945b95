package extract

import (
	"context"
	"runtime"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// Vocabulary resolves a lower-cased token to the entry it names.
type Vocabulary interface {
	Resolve(key string) (model.EntryID, bool)
}

// Index is an in-memory vocabulary keyed by word key.
type Index map[string]model.EntryID

// Resolve implements Vocabulary with a single map probe.
func (ix Index) Resolve(key string) (model.EntryID, bool) {
	id, ok := ix[key]
	return id, ok
}

// NewIndex builds a vocabulary from entries. When two entries share a key the
// first one wins.
func NewIndex(entries []*model.Entry) Index {
	ix := make(Index, len(entries))
	for _, e := range entries {
		if _, dup := ix[e.WordKey]; !dup {
			ix[e.WordKey] = e.ID
		}
	}
	return ix
}

// Options tunes which tokens may become links. The zero value links every
// token that names an entry.
type Options struct {
	// StopWords are skipped before the vocabulary probe.
	StopWords map[string]struct{}
	// MinLength is the minimum token length in runes. Values below 1 are
	// treated as 1.
	MinLength int
}

// Extractor finds the entries referenced by a definition.
type Extractor struct {
	vocab Vocabulary
	opts  Options
}

// New creates an Extractor over vocab.
func New(vocab Vocabulary, opts Options) *Extractor {
	return &Extractor{vocab: vocab, opts: opts}
}

func (x *Extractor) skip(token string) bool {
	if x.opts.MinLength > 1 && utf8.RuneCountInString(token) < x.opts.MinLength {
		return true
	}
	if _, stop := x.opts.StopWords[token]; stop {
		return true
	}
	return false
}

// Targets returns the distinct entries referenced by definition, in order of
// first mention, excluding source itself.
func (x *Extractor) Targets(source model.EntryID, definition string) []model.EntryID {
	var targets []model.EntryID
	var seen map[model.EntryID]struct{}
	forEachWord(definition, func(token string) {
		if x.skip(token) {
			return
		}
		id, ok := x.vocab.Resolve(token)
		if !ok || id == source {
			return
		}
		if seen == nil {
			seen = make(map[model.EntryID]struct{})
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	})
	return targets
}

// TargetsAll extracts targets for every entry using up to workers goroutines.
// The result is aligned with entries. A cancelled context stops the work and
// returns the context error.
func (x *Extractor) TargetsAll(ctx context.Context, entries []*model.Entry, workers int) ([][]model.EntryID, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([][]model.EntryID, len(entries))
	if len(entries) == 0 {
		return out, nil
	}

	chunk := (len(entries) + workers - 1) / workers
	if chunk < 256 {
		chunk = 256
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(entries); lo += chunk {
		hi := min(lo+chunk, len(entries))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				e := entries[i]
				out[i] = x.Targets(e.ID, e.Definition)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultStopWords returns the common English function words that the
// optional stop-word filter drops.
func DefaultStopWords() map[string]struct{} {
	words := []string{
		"a", "also", "an", "the", "and", "or", "but", "in", "on", "at", "to",
		"for", "of", "with", "by", "from", "as", "is", "was", "are", "were",
		"be", "been", "being", "have", "has", "had", "do", "does", "did",
		"will", "would", "could", "should", "may", "might", "must", "can",
		"this", "that", "these", "those", "it", "its", "which", "who", "what",
		"when", "where", "why", "how", "not", "no", "nor", "so", "than",
		"too", "very",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
