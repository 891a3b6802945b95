package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// FormatVersion is the JSONL export format version.
const FormatVersion = "1"

// Source provides the published graph for export.
type Source interface {
	Export() (*model.ExportData, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	GraphVersion string    `json:"graph_version"`
	WordCount    int       `json:"word_count"`
	LinkCount    int       `json:"link_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes the published graph as JSONL to w: a header, one
// "stats" record, then one "link" record per edge sorted by source and
// target. It returns model.ErrEmptyGraph when nothing is published.
func ExportJSONL(src Source, w io.Writer) error {
	data, err := src.Export()
	if err != nil {
		return err
	}
	return writeJSONL(data, w)
}

func writeJSONL(data *model.ExportData, w io.Writer) error {
	snap := data.Snapshot

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      FormatVersion,
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		GraphVersion: snap.Version,
		WordCount:    snap.Stats.Nodes,
		LinkCount:    len(data.Links),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if err := enc.Encode(record{Type: "stats", Data: snap.Graph(model.DefaultTopWords)}); err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	for _, l := range data.Links {
		if err := enc.Encode(record{Type: "link", Data: l}); err != nil {
			return fmt.Errorf("encode link %s -> %s: %w", l.Source, l.Target, err)
		}
	}
	return nil
}
