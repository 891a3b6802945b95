package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"Dog", "dog"},
		{"  Domestic ", "domestic"},
		{"ÉTUDE", "étude"},
		{"", ""},
	} {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewEntry_DerivedFields(t *testing.T) {
	e := NewEntry(" Café ", "naïve définition", "ka-FAY")
	if e.Word != "Café" {
		t.Errorf("Word = %q, want %q", e.Word, "Café")
	}
	if e.WordKey != "café" {
		t.Errorf("WordKey = %q, want %q", e.WordKey, "café")
	}
	if e.DefinitionLength != 16 {
		t.Errorf("DefinitionLength = %d, want 16 code points", e.DefinitionLength)
	}
}

func TestNewRatio(t *testing.T) {
	for _, tc := range []struct {
		in, out  int
		value    float64
		infinite bool
	}{
		{0, 0, 0, false},
		{3, 0, 0, true},
		{0, 4, 0, false},
		{3, 2, 1.5, false},
	} {
		r := NewRatio(tc.in, tc.out)
		if r.Infinite != tc.infinite || r.Value != tc.value {
			t.Errorf("NewRatio(%d, %d) = %+v, want value=%v infinite=%v", tc.in, tc.out, r, tc.value, tc.infinite)
		}
	}
	if !math.IsInf(NewRatio(1, 0).Float(), 1) {
		t.Error("Float() of infinite ratio should be +Inf")
	}
}

func TestRatio_JSON(t *testing.T) {
	for _, tc := range []struct {
		r    Ratio
		want string
	}{
		{NewRatio(1, 0), `"inf"`},
		{NewRatio(0, 0), `0`},
		{NewRatio(2, 3), `0.67`},
	} {
		data, err := json.Marshal(tc.r)
		if err != nil {
			t.Fatalf("marshal %+v: %v", tc.r, err)
		}
		if string(data) != tc.want {
			t.Errorf("Marshal(%+v) = %s, want %s", tc.r, data, tc.want)
		}
	}

	var r Ratio
	if err := json.Unmarshal([]byte(`"inf"`), &r); err != nil || !r.Infinite {
		t.Errorf("Unmarshal inf = %+v, %v", r, err)
	}
	if err := json.Unmarshal([]byte(`1.25`), &r); err != nil || r.Infinite || r.Value != 1.25 {
		t.Errorf("Unmarshal 1.25 = %+v, %v", r, err)
	}
	if err := json.Unmarshal([]byte(`"nan"`), &r); err == nil {
		t.Error("expected error for unknown ratio string")
	}
}

func TestWordDetail_FlattensMetrics(t *testing.T) {
	d := WordDetail{Word: "dog", LinkedWords: []string{"animal"}, NodeMetrics: NewNodeMetrics(0, 1)}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"linked_words", "in_degree", "out_degree", "degree_centrality", "in_out_ratio"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
}

func TestSnapshot_Views(t *testing.T) {
	s := &Snapshot{
		Stats:      GraphStats{Nodes: 3, Edges: 2},
		InRanking:  []WordCount{{"animal", 2}, {"dog", 0}, {"domestic", 0}},
		OutRanking: []WordCount{{"dog", 2}, {"animal", 0}, {"domestic", 0}},
		DegreeRanking: []DegreeRank{
			{Word: "animal", TotalDegree: 2, InDegree: 2},
			{Word: "dog", TotalDegree: 2, OutDegree: 2},
			{Word: "domestic"},
		},
	}
	g := s.Graph(1)
	if len(g.TopWordsByInDegree) != 1 || g.TopWordsByInDegree[0].Word != "animal" {
		t.Errorf("TopWordsByInDegree = %+v", g.TopWordsByInDegree)
	}
	if len(s.Graph(0).TopWordsByInDegree) != 3 {
		t.Error("default top should include all three rows")
	}
	if got := s.TopWords(50); len(got) != 3 {
		t.Errorf("TopWords(50) returned %d rows, want 3", len(got))
	}
	if m := s.NodeMetrics(42); m.DegreeCentrality != 0 || m.InOutRatio.Infinite {
		t.Errorf("unknown node metrics = %+v", m)
	}
	if s.Empty() {
		t.Error("snapshot with nodes reported empty")
	}
	var nilSnap *Snapshot
	if !nilSnap.Empty() {
		t.Error("nil snapshot should be empty")
	}
}
