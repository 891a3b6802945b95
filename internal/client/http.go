package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// HTTPClient talks to the lexigraph REST API.
type HTTPClient struct {
	base  string
	token string
	hc    *http.Client
}

var _ LexiconClient = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the server at baseURL. A non-empty
// token is sent as a bearer token on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{base: strings.TrimRight(baseURL, "/"), token: token, hc: &http.Client{}}
}

func (c *HTTPClient) Close() error { return nil }

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string

	body []byte
}

func (e *APIError) Error() string { return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message) }

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func wordPath(word string, suffix ...string) string {
	return "/v1/words/" + url.PathEscape(word) + strings.Join(suffix, "")
}

// query renders ?name=v, or nothing when v is not positive so the server
// default applies.
func query(name string, v int) string {
	if v <= 0 {
		return ""
	}
	return "?" + name + "=" + strconv.Itoa(v)
}

func (c *HTTPClient) Word(ctx context.Context, word string) (*model.WordDetail, error) {
	return call[model.WordDetail](ctx, c, http.MethodGet, wordPath(word))
}

func (c *HTTPClient) Neighbors(ctx context.Context, word string, depth int) (*model.Neighborhood, error) {
	return call[model.Neighborhood](ctx, c, http.MethodGet, wordPath(word, "/neighbors", query("depth", depth)))
}

func (c *HTTPClient) Search(ctx context.Context, q string, limit int) (*SearchResponse, error) {
	return call[SearchResponse](ctx, c, http.MethodGet, "/v1/search/"+url.PathEscape(q)+query("limit", limit))
}

func (c *HTTPClient) Overview(ctx context.Context) (*model.Overview, error) {
	return call[model.Overview](ctx, c, http.MethodGet, "/v1/stats/overview")
}

func (c *HTTPClient) GraphStats(ctx context.Context, top int) (*model.GraphStats, error) {
	return call[model.GraphStats](ctx, c, http.MethodGet, "/v1/stats/graph"+query("top", top))
}

func (c *HTTPClient) TopWords(ctx context.Context, limit int) ([]model.DegreeRank, error) {
	rows, err := call[[]model.DegreeRank](ctx, c, http.MethodGet, "/v1/stats/top-words"+query("limit", limit))
	if err != nil {
		return nil, err
	}
	return *rows, nil
}

func (c *HTTPClient) Cycles(ctx context.Context, limit int) (*model.CycleReport, error) {
	return call[model.CycleReport](ctx, c, http.MethodGet, "/v1/stats/cycles"+query("limit", limit))
}

// StartRebuild returns as soon as the server has started a rebuild.
func (c *HTTPClient) StartRebuild(ctx context.Context) (*model.RebuildStatus, error) {
	return call[model.RebuildStatus](ctx, c, http.MethodPost, "/v1/rebuild")
}

// Rebuild waits for the server's rebuild to finish.
func (c *HTTPClient) Rebuild(ctx context.Context) (*model.RebuildResult, error) {
	return call[model.RebuildResult](ctx, c, http.MethodPost, "/v1/rebuild?wait=true")
}

func (c *HTTPClient) RebuildStatus(ctx context.Context) (*model.RebuildStatus, error) {
	return call[model.RebuildStatus](ctx, c, http.MethodGet, "/v1/rebuild")
}

// Export streams the server's JSONL export into w.
func (c *HTTPClient) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/v1/export")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	return nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	resp, err := call[struct {
		Status string `json:"status"`
	}](ctx, c, http.MethodGet, "/v1/health")
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Ready reports readiness. The server's 503 not_ready answer is returned
// as a response rather than an error.
func (c *HTTPClient) Ready(ctx context.Context) (*ReadyResponse, error) {
	r, err := call[ReadyResponse](ctx, c, http.MethodGet, "/v1/ready")
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		var nr ReadyResponse
		if json.Unmarshal(apiErr.body, &nr) == nil && nr.Status != "" {
			return &nr, nil
		}
	}
	return r, err
}

// call sends a bodiless request and decodes the JSON answer into a new T.
func call[T any](ctx context.Context, c *HTTPClient, method, path string) (*T, error) {
	resp, err := c.send(ctx, method, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	v := new(T)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return v, nil
}

// send performs the request and returns the response when the status is
// below 400. Anything else is read into an *APIError.
func (c *HTTPClient) send(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	if method == http.MethodPost {
		req.Header.Set("X-Requested-By", "lexi")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error response: %w", err)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), body: body}
	var msg struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil && msg.Error != "" {
		apiErr.Message = msg.Error
	}
	return nil, apiErr
}
