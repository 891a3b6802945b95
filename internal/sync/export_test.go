package sync

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

func TestExportJSONL_EmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	err := ExportJSONL(&mockSource{}, &buf)
	if !errors.Is(err, model.ErrEmptyGraph) {
		t.Fatalf("expected ErrEmptyGraph, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestExportJSONL_WithLinks(t *testing.T) {
	src := &mockSource{data: dogExport("snap-aaaa")}
	var buf bytes.Buffer
	if err := ExportJSONL(src, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// 1 header + 1 stats + 2 links
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.GraphVersion != "snap-aaaa" {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.WordCount != 3 || h.LinkCount != 2 {
		t.Fatalf("header counts: words=%d links=%d", h.WordCount, h.LinkCount)
	}

	var stats struct {
		Type string           `json:"type"`
		Data model.GraphStats `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Type != "stats" || stats.Data.Edges != 2 {
		t.Fatalf("unexpected stats record: %+v", stats)
	}
	if len(stats.Data.TopWordsByOutDegree) != 3 || stats.Data.TopWordsByOutDegree[0].Word != "dog" {
		t.Fatalf("unexpected out-degree ranking: %+v", stats.Data.TopWordsByOutDegree)
	}

	wantLinks := []model.Link{{Source: "dog", Target: "animal"}, {Source: "dog", Target: "domestic"}}
	for i, want := range wantLinks {
		var rec struct {
			Type string     `json:"type"`
			Data model.Link `json:"data"`
		}
		if err := json.Unmarshal([]byte(lines[2+i]), &rec); err != nil {
			t.Fatalf("unmarshal link %d: %v", i, err)
		}
		if rec.Type != "link" || rec.Data != want {
			t.Fatalf("link %d = %+v, want %+v", i, rec, want)
		}
	}
}

func TestExportJSONL_NoEscapeHTML(t *testing.T) {
	data := dogExport("snap-bbbb")
	data.Links = []model.Link{{Source: "r&d", Target: "<tag>"}}
	var buf bytes.Buffer
	if err := ExportJSONL(&mockSource{data: data}, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"source":"r&d","target":"<tag>"`)) {
		t.Fatalf("expected unescaped link, got %s", buf.String())
	}
}
