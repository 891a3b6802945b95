package graph

import (
	"github.com/alfredjeanlab/lexigraph/internal/edges"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// dense is the edge set re-indexed onto 0..n-1 so the traversals below can
// use slices instead of maps.
type dense struct {
	ids []model.EntryID
	idx map[model.EntryID]int32
	adj [][]int32
}

func newDense(nodes []Node, set *edges.Set) *dense {
	d := &dense{
		ids: make([]model.EntryID, len(nodes)),
		idx: make(map[model.EntryID]int32, len(nodes)),
		adj: make([][]int32, len(nodes)),
	}
	for i, n := range nodes {
		d.ids[i] = n.ID
		d.idx[n.ID] = int32(i)
	}
	for i, n := range nodes {
		targets := set.EdgesFrom(n.ID)
		if len(targets) == 0 {
			continue
		}
		row := make([]int32, 0, len(targets))
		for _, t := range targets {
			if j, ok := d.idx[t]; ok {
				row = append(row, j)
			}
		}
		d.adj[i] = row
	}
	return d
}

func (d *dense) len() int {
	return len(d.ids)
}
