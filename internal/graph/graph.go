// Package graph computes statistics over the word reference graph.
package graph

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alfredjeanlab/lexigraph/internal/edges"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

var tracer = otel.Tracer("lexigraph.graph")

// Node is the per-entry input to Compute.
type Node struct {
	ID               model.EntryID
	Key              string
	DefinitionLength int
}

// NodesFromEntries projects entries onto graph nodes.
func NodesFromEntries(entries []*model.Entry) []Node {
	nodes := make([]Node, len(entries))
	for i, e := range entries {
		nodes[i] = Node{ID: e.ID, Key: e.WordKey, DefinitionLength: e.DefinitionLength}
	}
	return nodes
}

// Options stamps the resulting snapshot.
type Options struct {
	Version    string
	ComputedAt time.Time
}

// Compute builds a snapshot of nodes and set. Every node appears in the
// rankings, including isolated ones; edges whose endpoints are not in nodes
// are ignored by the traversals.
func Compute(ctx context.Context, nodes []Node, set *edges.Set, opts Options) (*model.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "graph.Compute", trace.WithAttributes(
		attribute.Int("nodes", len(nodes)),
		attribute.Int("edges", set.Len()),
	))
	defer span.End()

	if opts.ComputedAt.IsZero() {
		opts.ComputedAt = time.Now().UTC()
	}

	snap := &model.Snapshot{
		Version:    opts.Version,
		ComputedAt: opts.ComputedAt,
		Metrics:    make(map[model.EntryID]model.NodeMetrics, len(nodes)),
	}

	var defLen, degreeSum int
	for _, n := range nodes {
		m := model.NewNodeMetrics(set.InDegree(n.ID), set.OutDegree(n.ID))
		snap.Metrics[n.ID] = m
		defLen += n.DefinitionLength
		degreeSum += m.DegreeCentrality
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := newDense(nodes, set)
	_, _, cyclic := d.components()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	largest := d.largestWeakComponent()

	snap.InRanking, snap.OutRanking, snap.DegreeRanking = rank(nodes, snap.Metrics)

	count := len(nodes)
	snap.Overview = model.Overview{
		TotalWords:              count,
		AverageDefinitionLength: average(defLen, count),
		AverageDegreeCentrality: average(degreeSum, count),
		Version:                 opts.Version,
		ComputedAt:              opts.ComputedAt,
	}
	snap.Stats = model.GraphStats{
		Nodes:                count,
		Edges:                set.Len(),
		AverageInDegree:      average(set.Len(), count),
		AverageOutDegree:     average(set.Len(), count),
		CycleCount:           cyclic,
		LargestComponentSize: largest,
		Version:              opts.Version,
		ComputedAt:           opts.ComputedAt,
	}
	span.SetAttributes(attribute.Int("cycle_count", cyclic))
	return snap, nil
}

// average returns sum/count rounded to two decimals, or 0 for no items.
func average(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*100) / 100
}

// rank orders every node by in-degree, out-degree and total degree, each
// descending with ties broken by ascending word key.
func rank(nodes []Node, metrics map[model.EntryID]model.NodeMetrics) ([]model.WordCount, []model.WordCount, []model.DegreeRank) {
	byKey := slices.Clone(nodes)
	slices.SortFunc(byKey, func(a, b Node) int { return cmp.Compare(a.Key, b.Key) })

	in := make([]model.WordCount, len(byKey))
	out := make([]model.WordCount, len(byKey))
	total := make([]model.DegreeRank, len(byKey))
	for i, n := range byKey {
		m := metrics[n.ID]
		in[i] = model.WordCount{Word: n.Key, Count: m.InDegree}
		out[i] = model.WordCount{Word: n.Key, Count: m.OutDegree}
		total[i] = model.DegreeRank{Word: n.Key, TotalDegree: m.DegreeCentrality, InDegree: m.InDegree, OutDegree: m.OutDegree}
	}

	// Stable sorts keep the key order for ties.
	byCount := func(a, b model.WordCount) int { return cmp.Compare(b.Count, a.Count) }
	slices.SortStableFunc(in, byCount)
	slices.SortStableFunc(out, byCount)
	slices.SortStableFunc(total, func(a, b model.DegreeRank) int { return cmp.Compare(b.TotalDegree, a.TotalDegree) })
	return in, out, total
}
