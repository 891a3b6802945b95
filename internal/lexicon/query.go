package lexicon

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/alfredjeanlab/lexigraph/internal/extract"
	"github.com/alfredjeanlab/lexigraph/internal/graph"
	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

const (
	// MaxTopWords bounds TopWords and the graph ranking length.
	MaxTopWords = 100
	// SampleCycleCount is how many cycles GraphStats includes.
	SampleCycleCount = 3
)

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		result = "not_found"
	case errors.Is(err, model.ErrEmptyGraph):
		result = "empty"
	case errors.Is(err, model.ErrInvalidInput):
		result = "invalid"
	default:
		result = "error"
	}
	queryTotal.WithLabelValues(op, result).Inc()
}

// published returns the current generation, or ErrEmptyGraph when nothing
// has been published or the published graph has no entries.
func (e *Engine) published() (*generation, error) {
	g := e.current.Load()
	if g == nil || g.snap.Empty() {
		return nil, model.ErrEmptyGraph
	}
	return g, nil
}

// Published reports the published version and entry count. ok is false
// while the graph is empty or unbuilt.
func (e *Engine) Published() (version string, words int, ok bool) {
	g, err := e.published()
	if err != nil {
		if g := e.current.Load(); g != nil {
			return g.version, 0, false
		}
		return "", 0, false
	}
	return g.version, g.snap.Stats.Nodes, true
}

// Lookup returns the entry for word, matched case-insensitively.
func (e *Engine) Lookup(ctx context.Context, word string) (_ *model.Entry, err error) {
	defer func() { observe("lookup", err) }()
	return e.lookup(ctx, word)
}

func (e *Engine) lookup(ctx context.Context, word string) (*model.Entry, error) {
	key := model.NormalizeKey(word)
	if key == "" {
		return nil, fmt.Errorf("%w: empty word", model.ErrInvalidInput)
	}
	en, err := e.store.GetEntry(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("word %q: %w", key, err)
	}
	return en, err
}

// PrefixSearch returns up to limit word keys starting with prefix in
// ascending order. limit defaults to store.DefaultSearchLimit and is capped
// at store.MaxSearchLimit. An empty prefix is rejected.
func (e *Engine) PrefixSearch(ctx context.Context, prefix string, limit int) (_ []string, err error) {
	defer func() { observe("search", err) }()
	prefix = model.NormalizeKey(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty search prefix", model.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = store.DefaultSearchLimit
	}
	limit = min(limit, store.MaxSearchLimit)
	keys, err := e.store.SearchPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// WordDetail joins an entry with its graph metrics. An entry missing from
// the published graph (no rebuild yet, or loaded since) gets its links
// extracted on the fly against the store and zero degrees.
func (e *Engine) WordDetail(ctx context.Context, word string) (_ *model.WordDetail, err error) {
	defer func() { observe("word", err) }()
	entry, err := e.lookup(ctx, word)
	if err != nil {
		return nil, err
	}

	d := &model.WordDetail{
		ID:               entry.ID,
		Word:             entry.Word,
		Pronunciation:    entry.Pronunciation,
		Definition:       entry.Definition,
		DefinitionLength: entry.DefinitionLength,
	}

	g := e.current.Load()
	if g.contains(entry.ID) {
		d.LinkedWords = g.keysOf(g.edges.EdgesFrom(entry.ID))
		d.NodeMetrics = g.snap.NodeMetrics(entry.ID)
		return d, nil
	}

	vocab := newStoreVocabulary(ctx, e.store)
	ids := extract.New(vocab, e.opts.Extract).Targets(entry.ID, entry.Definition)
	d.LinkedWords = make([]string, 0, len(ids))
	for _, id := range ids {
		d.LinkedWords = append(d.LinkedWords, vocab.keys[id])
	}
	slices.Sort(d.LinkedWords)
	d.NodeMetrics = model.NewNodeMetrics(0, 0)
	return d, nil
}

// Overview returns the dictionary summary of the published snapshot.
func (e *Engine) Overview() (_ *model.Overview, err error) {
	defer func() { observe("overview", err) }()
	g, err := e.published()
	if err != nil {
		return nil, err
	}
	o := g.snap.Overview
	return &o, nil
}

// GraphStats returns the graph summary with rankings of top rows
// (model.DefaultTopWords when top <= 0, at most MaxTopWords) and the first
// SampleCycleCount cycles of the generation's cycle sample.
func (e *Engine) GraphStats(ctx context.Context, top int) (_ *model.GraphStats, err error) {
	defer func() { observe("graph", err) }()
	g, err := e.published()
	if err != nil {
		return nil, err
	}
	s := g.snap.Graph(min(top, MaxTopWords))
	r, err := e.cycleReport(ctx, g)
	if err != nil {
		return nil, err
	}
	s.SampleCycles = r.Cycles[:min(len(r.Cycles), SampleCycleCount)]
	return &s, nil
}

// TopWords returns the entries with the highest total degree.
func (e *Engine) TopWords(limit int) (_ []model.DegreeRank, err error) {
	defer func() { observe("top_words", err) }()
	g, err := e.published()
	if err != nil {
		return nil, err
	}
	return g.snap.TopWords(min(limit, MaxTopWords)), nil
}

// Cycles returns up to limit elementary cycles from the published graph.
// The sample is computed once per generation, bounded by the engine's cycle
// limit and timeout; limit only truncates it.
func (e *Engine) Cycles(ctx context.Context, limit int) (_ *model.CycleReport, err error) {
	defer func() { observe("cycles", err) }()
	g, err := e.published()
	if err != nil {
		return nil, err
	}
	cr, err := e.cycleReport(ctx, g)
	if err != nil {
		return nil, err
	}
	r := *cr
	if limit > 0 && limit < len(r.Cycles) {
		r.Cycles = r.Cycles[:limit]
		r.Truncated = true
	}
	return &r, nil
}

// cycleReport returns the generation's cycle sample, computing it on first
// use. The result is shared and must not be modified.
func (e *Engine) cycleReport(ctx context.Context, g *generation) (*model.CycleReport, error) {
	g.cyclesOnce.Do(func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CycleTimeout)
		defer cancel()
		ids, truncated, err := graph.SampleCycles(cctx, g.nodes, g.edges, e.opts.CycleLimit)
		if err != nil {
			g.cyclesErr = err
			return
		}
		r := &model.CycleReport{Truncated: truncated, Version: g.version, Cycles: make([][]string, len(ids))}
		for i, c := range ids {
			r.Cycles[i] = g.keysInOrder(c)
		}
		r.TotalCycles = len(r.Cycles)
		g.cycles = r
	})
	return g.cycles, g.cyclesErr
}

// Neighbors returns the words reachable from word within depth hops
// (1 to graph.MaxNeighborDepth) in the published graph.
func (e *Engine) Neighbors(ctx context.Context, word string, depth int) (_ *model.Neighborhood, err error) {
	defer func() { observe("neighbors", err) }()
	if depth < 1 || depth > graph.MaxNeighborDepth {
		return nil, fmt.Errorf("%w: depth must be between 1 and %d", model.ErrInvalidInput, graph.MaxNeighborDepth)
	}
	entry, err := e.lookup(ctx, word)
	if err != nil {
		return nil, err
	}
	g, err := e.published()
	if err != nil {
		return nil, err
	}

	n := &model.Neighborhood{Word: entry.WordKey, Depth: depth, Neighbors: make(map[string][]string, depth)}
	levels := graph.Neighbors(g.edges, entry.ID, depth)
	for i := range depth {
		var keys []string
		if i < len(levels) {
			keys = g.keysOf(levels[i])
		}
		if keys == nil {
			keys = []string{}
		}
		n.Neighbors[strconv.Itoa(i+1)] = keys
		n.Total += len(keys)
	}
	return n, nil
}

// Export returns the published snapshot with its links as word-key pairs,
// sorted by source then target.
func (e *Engine) Export() (*model.ExportData, error) {
	g, err := e.published()
	if err != nil {
		return nil, err
	}
	all := g.edges.Edges()
	links := make([]model.Link, len(all))
	for i, ed := range all {
		links[i] = model.Link{Source: g.keys[ed.Source], Target: g.keys[ed.Target]}
	}
	slices.SortFunc(links, func(a, b model.Link) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
	return &model.ExportData{Snapshot: g.snap, Links: links}, nil
}

func (g *generation) contains(id model.EntryID) bool {
	if g == nil {
		return false
	}
	_, ok := g.keys[id]
	return ok
}

// keysOf maps ids to word keys, sorted ascending.
func (g *generation) keysOf(ids []model.EntryID) []string {
	keys := g.keysInOrder(ids)
	slices.Sort(keys)
	return keys
}

func (g *generation) keysInOrder(ids []model.EntryID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if k, ok := g.keys[id]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// storeVocabulary resolves tokens with point lookups against the store.
// Lookup failures count as unknown words.
type storeVocabulary struct {
	ctx   context.Context
	store store.EntryReader
	ids   map[string]model.EntryID
	miss  map[string]struct{}
	keys  map[model.EntryID]string
}

func newStoreVocabulary(ctx context.Context, s store.EntryReader) *storeVocabulary {
	return &storeVocabulary{
		ctx:   ctx,
		store: s,
		ids:   make(map[string]model.EntryID),
		miss:  make(map[string]struct{}),
		keys:  make(map[model.EntryID]string),
	}
}

func (v *storeVocabulary) Resolve(key string) (model.EntryID, bool) {
	if id, ok := v.ids[key]; ok {
		return id, true
	}
	if _, ok := v.miss[key]; ok {
		return 0, false
	}
	en, err := v.store.GetEntry(v.ctx, key)
	if err != nil {
		v.miss[key] = struct{}{}
		return 0, false
	}
	v.ids[key] = en.ID
	v.keys[en.ID] = key
	return en.ID, true
}
