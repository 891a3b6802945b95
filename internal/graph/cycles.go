package graph

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alfredjeanlab/lexigraph/internal/edges"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// DefaultCycleLimit bounds SampleCycles when the caller passes no limit.
const DefaultCycleLimit = 20

// SampleCycles enumerates up to limit elementary cycles. Each cycle is listed
// once, starting from its earliest node in nodes order. Enumeration only
// walks inside non-trivial strongly connected components.
//
// The number of elementary cycles can grow exponentially, so the walk stops
// at limit or when ctx reaches its deadline; truncated reports either case.
// A cancelled (not expired) context returns the context error.
func SampleCycles(ctx context.Context, nodes []Node, set *edges.Set, limit int) (cycles [][]model.EntryID, truncated bool, err error) {
	ctx, span := tracer.Start(ctx, "graph.SampleCycles")
	defer span.End()

	if limit <= 0 {
		limit = DefaultCycleLimit
	}

	d := newDense(nodes, set)
	comp, sizes, _ := d.components()

	n := d.len()
	onPath := make([]bool, n)
	var path []int32
	var next []int
	steps := 0

	for s := range n {
		start := int32(s)
		if sizes[comp[start]] < 2 {
			continue
		}
		path = append(path[:0], start)
		next = append(next[:0], 0)
		onPath[start] = true

		for len(path) > 0 {
			top := len(path) - 1
			v := path[top]
			if next[top] >= len(d.adj[v]) {
				onPath[v] = false
				path = path[:top]
				next = next[:top]
				continue
			}
			w := d.adj[v][next[top]]
			next[top]++

			steps++
			if steps&0xfff == 0 {
				if err := ctx.Err(); err != nil {
					clearPath(onPath, path)
					if errors.Is(err, context.DeadlineExceeded) {
						span.SetAttributes(attribute.Bool("deadline", true))
						return cycles, true, nil
					}
					return nil, false, err
				}
			}

			switch {
			case w == start:
				cycle := make([]model.EntryID, len(path))
				for i, p := range path {
					cycle[i] = d.ids[p]
				}
				cycles = append(cycles, cycle)
				if len(cycles) >= limit {
					clearPath(onPath, path)
					return cycles, true, nil
				}
			case w > start && !onPath[w] && comp[w] == comp[start]:
				onPath[w] = true
				path = append(path, w)
				next = append(next, 0)
			}
		}
	}
	span.SetAttributes(attribute.Int("cycles", len(cycles)))
	return cycles, false, nil
}

func clearPath(onPath []bool, path []int32) {
	for _, p := range path {
		onPath[p] = false
	}
}

// MaxNeighborDepth is the deepest neighborhood Neighbors will expand.
const MaxNeighborDepth = 3

// Neighbors returns the entries reachable from start by following outgoing
// references, grouped by hop count: levels[0] holds direct references,
// levels[1] entries first reached in two hops, and so on. Each entry appears
// in at most one level and start never appears.
func Neighbors(set *edges.Set, start model.EntryID, depth int) [][]model.EntryID {
	depth = max(1, min(depth, MaxNeighborDepth))
	seen := map[model.EntryID]struct{}{start: {}}
	frontier := []model.EntryID{start}
	levels := make([][]model.EntryID, 0, depth)

	for range depth {
		var level []model.EntryID
		for _, v := range frontier {
			for _, w := range set.EdgesFrom(v) {
				if _, ok := seen[w]; ok {
					continue
				}
				seen[w] = struct{}{}
				level = append(level, w)
			}
		}
		levels = append(levels, level)
		if len(level) == 0 {
			break
		}
		frontier = level
	}
	return levels
}
