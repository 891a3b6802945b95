// Package client provides a transport-agnostic interface for the lexigraph
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"io"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// LexiconClient is the interface the lexi CLI commands use to talk to a
// running lexigraph server.
type LexiconClient interface {
	// Words
	Word(ctx context.Context, word string) (*model.WordDetail, error)
	Neighbors(ctx context.Context, word string, depth int) (*model.Neighborhood, error)
	Search(ctx context.Context, query string, limit int) (*SearchResponse, error)

	// Statistics
	Overview(ctx context.Context) (*model.Overview, error)
	GraphStats(ctx context.Context, top int) (*model.GraphStats, error)
	TopWords(ctx context.Context, limit int) ([]model.DegreeRank, error)
	Cycles(ctx context.Context, limit int) (*model.CycleReport, error)

	// Rebuild
	StartRebuild(ctx context.Context) (*model.RebuildStatus, error)
	Rebuild(ctx context.Context) (*model.RebuildResult, error)
	RebuildStatus(ctx context.Context) (*model.RebuildStatus, error)

	// Export streams the published graph as JSONL into w.
	Export(ctx context.Context, w io.Writer) error

	// Health
	Health(ctx context.Context) (string, error)
	Ready(ctx context.Context) (*ReadyResponse, error)

	// Lifecycle
	Close() error
}

// SearchResponse is the response from Search.
type SearchResponse struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
	Count   int      `json:"count"`
}

// ReadyResponse is the response from Ready.
type ReadyResponse struct {
	Status    string `json:"status"`
	WordCount int    `json:"word_count"`
	Version   string `json:"version,omitempty"`
}
