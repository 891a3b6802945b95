package model

import "time"

// RebuildResult summarizes a completed rebuild.
type RebuildResult struct {
	Version    string        `json:"version"`
	Words      int           `json:"words"`
	Links      int           `json:"links"`
	CycleCount int           `json:"cycle_count"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// RebuildStatus reports whether a rebuild is running and what is published.
type RebuildStatus struct {
	Rebuilding bool           `json:"rebuilding"`
	Version    string         `json:"version,omitempty"`
	Last       *RebuildResult `json:"last,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
}

// ExportData is a consistent view of one published generation for export.
type ExportData struct {
	Snapshot *Snapshot
	Links    []Link
}
