// Package lexicon owns the published word graph: it rebuilds it from the
// entry store and answers lookups and statistics queries against it.
package lexicon

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/alfredjeanlab/lexigraph/internal/edges"
	"github.com/alfredjeanlab/lexigraph/internal/extract"
	"github.com/alfredjeanlab/lexigraph/internal/graph"
	"github.com/alfredjeanlab/lexigraph/internal/idgen"
	"github.com/alfredjeanlab/lexigraph/internal/model"
	"github.com/alfredjeanlab/lexigraph/internal/store"
)

const drainPoll = 20 * time.Millisecond

// Options configures an Engine.
type Options struct {
	// Extract controls which tokens may become links.
	Extract extract.Options

	// Workers bounds extraction parallelism. Zero means runtime.NumCPU.
	Workers int

	// CycleLimit and CycleTimeout bound the cycle sample computed per
	// generation.
	CycleLimit   int
	CycleTimeout time.Duration

	// Links, when set, receives every rebuilt link set before it is
	// published. A failed write aborts the rebuild; a successful one
	// commits it.
	Links store.LinkWriter

	Logger *slog.Logger
}

// generation is one published, immutable view of the graph.
type generation struct {
	version string
	edges   *edges.Set
	snap    *model.Snapshot
	nodes   []graph.Node
	keys    map[model.EntryID]string

	cyclesOnce sync.Once
	cycles     *model.CycleReport
	cyclesErr  error
}

// Engine rebuilds and serves the word graph. Reads never block on a
// rebuild: they see the last published generation until the next one is
// swapped in.
type Engine struct {
	store  store.EntryReader
	opts   Options
	logger *slog.Logger

	current atomic.Pointer[generation]

	// mu serializes rebuilds; it is only ever acquired with TryLock.
	mu         sync.Mutex
	rebuilding atomic.Bool

	statusMu sync.Mutex
	last     *model.RebuildResult
	lastErr  error
}

// New creates an Engine reading from s. Nothing is published until the
// first successful Rebuild.
func New(s store.EntryReader, opts Options) *Engine {
	if opts.CycleLimit <= 0 {
		opts.CycleLimit = graph.DefaultCycleLimit
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, opts: opts, logger: logger}
}

// Rebuild recomputes links and statistics from the store and publishes them.
// It returns model.ErrRebuildInProgress without waiting if another rebuild
// is running. On error or cancellation the published generation is kept.
func (e *Engine) Rebuild(ctx context.Context) (*model.RebuildResult, error) {
	if !e.mu.TryLock() {
		rebuildTotal.WithLabelValues("busy").Inc()
		return nil, model.ErrRebuildInProgress
	}
	defer e.mu.Unlock()
	return e.run(ctx)
}

// StartRebuild begins a rebuild in the background and returns once it holds
// the rebuild slot. done, if non-nil, is called with the outcome. The
// rebuild runs under ctx, so callers answering a request should detach it
// with context.WithoutCancel.
func (e *Engine) StartRebuild(ctx context.Context, done func(*model.RebuildResult, error)) error {
	if !e.mu.TryLock() {
		rebuildTotal.WithLabelValues("busy").Inc()
		return model.ErrRebuildInProgress
	}
	go func() {
		defer e.mu.Unlock()
		res, err := e.run(ctx)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// Drain waits for a running rebuild to finish and then holds the rebuild
// slot, so later rebuilds fail with model.ErrRebuildInProgress. It returns
// ctx.Err() if ctx is done first.
func (e *Engine) Drain(ctx context.Context) error {
	tick := time.NewTicker(drainPoll)
	defer tick.Stop()
	for !e.mu.TryLock() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// Rebuilding reports whether a rebuild is currently running.
func (e *Engine) Rebuilding() bool {
	return e.rebuilding.Load()
}

// Status reports the rebuild state and the published version.
func (e *Engine) Status() model.RebuildStatus {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	st := model.RebuildStatus{Rebuilding: e.Rebuilding(), Last: e.last}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if g := e.current.Load(); g != nil {
		st.Version = g.version
	}
	return st
}

// Version returns the published snapshot version, or "" before the first
// rebuild.
func (e *Engine) Version() string {
	if g := e.current.Load(); g != nil {
		return g.version
	}
	return ""
}

// run performs one rebuild. The caller holds mu.
func (e *Engine) run(ctx context.Context) (res *model.RebuildResult, err error) {
	e.rebuilding.Store(true)
	defer e.rebuilding.Store(false)

	ctx, span := tracer.Start(ctx, "lexicon.Rebuild")
	defer span.End()

	started := time.Now().UTC()
	defer func() {
		switch {
		case err == nil:
			rebuildTotal.WithLabelValues("success").Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			rebuildTotal.WithLabelValues("cancelled").Inc()
		default:
			rebuildTotal.WithLabelValues("failure").Inc()
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.statusMu.Lock()
		e.lastErr = err
		if res != nil {
			e.last = res
		}
		e.statusMu.Unlock()
	}()

	phase := func(name string, t0 time.Time) {
		rebuildPhaseDuration.WithLabelValues(name).Observe(time.Since(t0).Seconds())
	}

	t0 := time.Now()
	var entries []*model.Entry
	err = e.store.IterateEntries(ctx, func(en *model.Entry) error {
		entries = append(entries, en)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	slices.SortFunc(entries, func(a, b *model.Entry) int { return cmp.Compare(a.WordKey, b.WordKey) })
	phase("load", t0)

	t0 = time.Now()
	x := extract.New(extract.NewIndex(entries), e.opts.Extract)
	targets, err := x.TargetsAll(ctx, entries, e.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("extract links: %w", err)
	}
	b := edges.NewBuilder()
	for i, en := range entries {
		for _, t := range targets[i] {
			b.Upsert(en.ID, t)
		}
	}
	set := b.Freeze()
	phase("extract", t0)

	version, err := idgen.NewVersion()
	if err != nil {
		return nil, err
	}

	t0 = time.Now()
	nodes := graph.NodesFromEntries(entries)
	snap, err := graph.Compute(ctx, nodes, set, graph.Options{Version: version, ComputedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}
	phase("stats", t0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Once the links are persisted the generation is published regardless of
	// ctx, so the stored copy always matches what readers see.
	if e.opts.Links != nil {
		t0 = time.Now()
		if err := e.opts.Links.ReplaceLinks(ctx, set.Edges()); err != nil {
			return nil, fmt.Errorf("persist links: %w", err)
		}
		phase("persist", t0)
	}

	keys := make(map[model.EntryID]string, len(nodes))
	for _, n := range nodes {
		keys[n.ID] = n.Key
	}
	e.current.Store(&generation{
		version: version,
		edges:   set,
		snap:    snap,
		nodes:   nodes,
		keys:    keys,
	})

	graphNodes.Set(float64(snap.Stats.Nodes))
	graphEdges.Set(float64(snap.Stats.Edges))
	graphCycles.Set(float64(snap.Stats.CycleCount))

	finished := time.Now().UTC()
	res = &model.RebuildResult{
		Version:    version,
		Words:      snap.Stats.Nodes,
		Links:      snap.Stats.Edges,
		CycleCount: snap.Stats.CycleCount,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	}
	span.SetAttributes(
		attribute.String("version", version),
		attribute.Int("words", res.Words),
		attribute.Int("links", res.Links),
	)
	e.logger.Info("graph rebuilt", "version", version, "words", res.Words, "links", res.Links,
		"cycles", res.CycleCount, "duration", res.Duration)
	return res, nil
}
