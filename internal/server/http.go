package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredjeanlab/lexigraph/internal/model"
	lexsync "github.com/alfredjeanlab/lexigraph/internal/sync"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests other than health, readiness and
// metrics must include a valid Authorization: Bearer <token> header.
func (s *LexiconServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/ready", s.handleReady)
	mux.HandleFunc("GET /v1/words/{word}", s.handleGetWord)
	mux.HandleFunc("GET /v1/words/{word}/neighbors", s.handleGetNeighbors)
	mux.Handle("GET /v1/search/{query}", s.rateLimit(http.HandlerFunc(s.handleSearch)))
	mux.HandleFunc("GET /v1/stats/overview", s.handleOverview)
	mux.HandleFunc("GET /v1/stats/graph", s.handleGraphStats)
	mux.HandleFunc("GET /v1/stats/top-words", s.handleTopWords)
	mux.HandleFunc("GET /v1/stats/cycles", s.handleCycles)
	mux.HandleFunc("POST /v1/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /v1/rebuild", s.handleRebuildStatus)
	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	return accessLog(s.logger, requireToken(authToken, mux))
}

// handleHealth handles GET /v1/health.
func (s *LexiconServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyResponse is the body of GET /v1/ready.
type readyResponse struct {
	Status    string `json:"status"`
	WordCount int    `json:"word_count"`
	Version   string `json:"version,omitempty"`
}

// handleReady handles GET /v1/ready. It answers 503 until a non-empty graph
// is published.
func (s *LexiconServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	version, words, ok := s.engine.Published()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "not_ready", Version: version})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready", WordCount: words, Version: version})
}

// handleGetWord handles GET /v1/words/{word}.
func (s *LexiconServer) handleGetWord(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.WordDetail(r.Context(), r.PathValue("word"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleGetNeighbors handles GET /v1/words/{word}/neighbors?depth=N.
func (s *LexiconServer) handleGetNeighbors(w http.ResponseWriter, r *http.Request) {
	depth, ok := queryInt(w, r, "depth", 1)
	if !ok {
		return
	}
	n, err := s.engine.Neighbors(r.Context(), r.PathValue("word"), depth)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// searchResponse is the body of GET /v1/search/{query}.
type searchResponse struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
	Count   int      `json:"count"`
}

// handleSearch handles GET /v1/search/{query}?limit=N.
func (s *LexiconServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	query := r.PathValue("query")
	keys, err := s.engine.PrefixSearch(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: keys, Count: len(keys)})
}

// handleOverview handles GET /v1/stats/overview.
func (s *LexiconServer) handleOverview(w http.ResponseWriter, _ *http.Request) {
	o, err := s.engine.Overview()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleGraphStats handles GET /v1/stats/graph?top=N.
func (s *LexiconServer) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	top, ok := queryInt(w, r, "top", 0)
	if !ok {
		return
	}
	g, err := s.engine.GraphStats(r.Context(), top)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleTopWords handles GET /v1/stats/top-words?limit=N.
func (s *LexiconServer) handleTopWords(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	rows, err := s.engine.TopWords(limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleCycles handles GET /v1/stats/cycles?limit=N.
func (s *LexiconServer) handleCycles(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	rep, err := s.engine.Cycles(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleRebuild handles POST /v1/rebuild[?wait=true]. It answers 202 once
// the rebuild has started, 200 with the result when waiting, and 409 when a
// rebuild is already running.
func (s *LexiconServer) handleRebuild(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	by := r.Header.Get("X-Requested-By")
	if by == "" {
		by = "http"
	}
	res, err := s.Rebuild(r.Context(), by, wait)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !wait {
		writeJSON(w, http.StatusAccepted, s.engine.Status())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRebuildStatus handles GET /v1/rebuild.
func (s *LexiconServer) handleRebuildStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleExport handles GET /v1/export, streaming the published graph as JSONL.
func (s *LexiconServer) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := s.engine.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if err := lexsync.ExportJSONL(staticSource{data}, w); err != nil {
		s.logger.Warn("export stream interrupted", "err", err)
	}
}

// staticSource serves an export already taken from the engine, so the
// response status is known before streaming starts.
type staticSource struct {
	data *model.ExportData
}

func (s staticSource) Export() (*model.ExportData, error) { return s.data, nil }

// queryInt parses an optional integer query parameter. On a malformed value
// it writes a 400 and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+": "+v)
		return 0, false
	}
	return n, true
}

// writeServiceError maps engine errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrEmptyGraph):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, model.ErrRebuildInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
