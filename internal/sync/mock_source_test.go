package sync

import (
	"errors"
	"strings"
	"sync"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// mockSource serves a fixed export, or ErrEmptyGraph when data is nil.
type mockSource struct {
	mu   sync.Mutex
	data *model.ExportData
}

func (m *mockSource) Export() (*model.ExportData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, model.ErrEmptyGraph
	}
	return m.data, nil
}

func (m *mockSource) set(data *model.ExportData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// errSource fails every export.
type errSource struct{}

func (errSource) Export() (*model.ExportData, error) {
	return nil, errors.New("store offline")
}

// dogExport is the published graph for "dog" -> "animal" and
// "dog" -> "domestic".
func dogExport(version string) *model.ExportData {
	return &model.ExportData{
		Snapshot: &model.Snapshot{
			Version: version,
			Stats:   model.GraphStats{Nodes: 3, Edges: 2, Version: version},
			InRanking: []model.WordCount{
				{Word: "animal", Count: 1}, {Word: "domestic", Count: 1}, {Word: "dog", Count: 0},
			},
			OutRanking: []model.WordCount{
				{Word: "dog", Count: 2}, {Word: "animal", Count: 0}, {Word: "domestic", Count: 0},
			},
		},
		Links: []model.Link{
			{Source: "dog", Target: "animal"},
			{Source: "dog", Target: "domestic"},
		},
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
