package model

import "time"

// DefaultTopWords is the ranking length used when a caller does not ask for one.
const DefaultTopWords = 10

// NodeMetrics holds per-entry degree metrics from a snapshot.
type NodeMetrics struct {
	InDegree         int   `json:"in_degree"`
	OutDegree        int   `json:"out_degree"`
	DegreeCentrality int   `json:"degree_centrality"`
	InOutRatio       Ratio `json:"in_out_ratio"`
}

// NewNodeMetrics derives the full metric set from a node's degrees.
func NewNodeMetrics(in, out int) NodeMetrics {
	return NodeMetrics{
		InDegree:         in,
		OutDegree:        out,
		DegreeCentrality: in + out,
		InOutRatio:       NewRatio(in, out),
	}
}

// WordCount is one row of an in- or out-degree ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// DegreeRank is one row of the total-degree ranking.
type DegreeRank struct {
	Word        string `json:"word"`
	TotalDegree int    `json:"total_degree"`
	InDegree    int    `json:"in_degree"`
	OutDegree   int    `json:"out_degree"`
}

// Overview is the dictionary-level summary.
type Overview struct {
	TotalWords              int       `json:"total_words"`
	AverageDefinitionLength float64   `json:"average_definition_length"`
	AverageDegreeCentrality float64   `json:"average_degree_centrality"`
	Version                 string    `json:"version"`
	ComputedAt              time.Time `json:"computed_at"`
}

// GraphStats is the graph-level summary returned by the statistics endpoint.
type GraphStats struct {
	Nodes                int         `json:"nodes"`
	Edges                int         `json:"edges"`
	AverageInDegree      float64     `json:"average_in_degree"`
	AverageOutDegree     float64     `json:"average_out_degree"`
	CycleCount           int         `json:"cycle_count"`
	LargestComponentSize int         `json:"largest_component_size"`
	TopWordsByInDegree   []WordCount `json:"top_words_by_in_degree"`
	TopWordsByOutDegree  []WordCount `json:"top_words_by_out_degree"`
	SampleCycles         [][]string  `json:"sample_cycles"`
	Version              string      `json:"version"`
	ComputedAt           time.Time   `json:"computed_at"`
}

// Snapshot is an immutable set of statistics computed from one edge set.
// Rankings hold every node in order; views truncate them on read.
type Snapshot struct {
	Version    string
	ComputedAt time.Time

	Overview Overview
	Stats    GraphStats

	Metrics       map[EntryID]NodeMetrics
	InRanking     []WordCount
	OutRanking    []WordCount
	DegreeRanking []DegreeRank
}

// Empty reports whether the snapshot covers no entries.
func (s *Snapshot) Empty() bool {
	return s == nil || s.Stats.Nodes == 0
}

// Graph returns the graph statistics with rankings truncated to top rows.
// A non-positive top selects DefaultTopWords.
func (s *Snapshot) Graph(top int) GraphStats {
	if top <= 0 {
		top = DefaultTopWords
	}
	g := s.Stats
	g.TopWordsByInDegree = headWordCounts(s.InRanking, top)
	g.TopWordsByOutDegree = headWordCounts(s.OutRanking, top)
	return g
}

// TopWords returns the first limit rows of the total-degree ranking.
func (s *Snapshot) TopWords(limit int) []DegreeRank {
	if limit <= 0 {
		limit = DefaultTopWords
	}
	if limit > len(s.DegreeRanking) {
		limit = len(s.DegreeRanking)
	}
	out := make([]DegreeRank, limit)
	copy(out, s.DegreeRanking[:limit])
	return out
}

// NodeMetrics returns the metrics for id. Unknown ids report zero degrees.
func (s *Snapshot) NodeMetrics(id EntryID) NodeMetrics {
	if m, ok := s.Metrics[id]; ok {
		return m
	}
	return NewNodeMetrics(0, 0)
}

func headWordCounts(ranking []WordCount, n int) []WordCount {
	if n > len(ranking) {
		n = len(ranking)
	}
	out := make([]WordCount, n)
	copy(out, ranking[:n])
	return out
}

// WordDetail is an entry joined with its graph metrics.
type WordDetail struct {
	ID               EntryID  `json:"word_id"`
	Word             string   `json:"word"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definition       string   `json:"definition"`
	DefinitionLength int      `json:"definition_length"`
	LinkedWords      []string `json:"linked_words"`
	NodeMetrics
}

// Neighborhood lists the words reachable from Word, grouped by hop count.
// Keys of Neighbors are "1".."Depth".
type Neighborhood struct {
	Word      string              `json:"word"`
	Depth     int                 `json:"depth"`
	Neighbors map[string][]string `json:"neighbors"`
	Total     int                 `json:"total"`
}

// CycleReport is a bounded sample of elementary cycles.
type CycleReport struct {
	TotalCycles int        `json:"total_cycles"`
	Truncated   bool       `json:"truncated"`
	Cycles      [][]string `json:"cycles"`
	Version     string     `json:"version"`
}
