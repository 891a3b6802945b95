// Package edges holds the deduplicated set of directed references between
// entries, indexed in both directions.
package edges

import (
	"slices"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// Builder accumulates edges for one rebuild. It is not safe for concurrent use.
type Builder struct {
	out  map[model.EntryID][]model.EntryID
	seen map[model.Edge]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	b := &Builder{}
	b.Clear()
	return b
}

// Clear discards all edges added so far.
func (b *Builder) Clear() {
	b.out = make(map[model.EntryID][]model.EntryID)
	b.seen = make(map[model.Edge]struct{})
}

// Upsert adds source -> target. It reports whether the edge was new; self
// loops and repeats are ignored.
func (b *Builder) Upsert(source, target model.EntryID) bool {
	if source == target {
		return false
	}
	e := model.Edge{Source: source, Target: target}
	if _, ok := b.seen[e]; ok {
		return false
	}
	b.seen[e] = struct{}{}
	b.out[source] = append(b.out[source], target)
	return true
}

// Len returns the number of distinct edges added.
func (b *Builder) Len() int {
	return len(b.seen)
}

// Freeze builds the immutable, indexed set. The builder may be reused after
// Clear; the returned set shares no state with it.
func (b *Builder) Freeze() *Set {
	s := &Set{
		out:   make(map[model.EntryID][]model.EntryID, len(b.out)),
		in:    make(map[model.EntryID][]model.EntryID),
		count: len(b.seen),
	}
	for src, targets := range b.out {
		t := slices.Clone(targets)
		slices.Sort(t)
		s.out[src] = t
		for _, dst := range t {
			s.in[dst] = append(s.in[dst], src)
		}
	}
	for _, sources := range s.in {
		slices.Sort(sources)
	}
	return s
}

// Set is an immutable edge set. All methods are safe for concurrent use.
type Set struct {
	out   map[model.EntryID][]model.EntryID
	in    map[model.EntryID][]model.EntryID
	count int
}

// Empty is the edge set with no edges.
var Empty = NewBuilder().Freeze()

// Len returns the number of edges.
func (s *Set) Len() int {
	return s.count
}

// EdgesFrom returns the targets referenced by source, in ascending id order.
// The slice must not be modified.
func (s *Set) EdgesFrom(source model.EntryID) []model.EntryID {
	return s.out[source]
}

// EdgesTo returns the sources that reference target, in ascending id order.
// The slice must not be modified.
func (s *Set) EdgesTo(target model.EntryID) []model.EntryID {
	return s.in[target]
}

// OutDegree returns len(EdgesFrom(id)).
func (s *Set) OutDegree(id model.EntryID) int {
	return len(s.out[id])
}

// InDegree returns len(EdgesTo(id)).
func (s *Set) InDegree(id model.EntryID) int {
	return len(s.in[id])
}

// Has reports whether source -> target is in the set.
func (s *Set) Has(source, target model.EntryID) bool {
	_, found := slices.BinarySearch(s.out[source], target)
	return found
}

// Edges returns every edge ordered by source then target.
func (s *Set) Edges() []model.Edge {
	sources := make([]model.EntryID, 0, len(s.out))
	for src := range s.out {
		sources = append(sources, src)
	}
	slices.Sort(sources)

	all := make([]model.Edge, 0, s.count)
	for _, src := range sources {
		for _, dst := range s.out[src] {
			all = append(all, model.Edge{Source: src, Target: dst})
		}
	}
	return all
}
