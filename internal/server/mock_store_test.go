package server

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/alfredjeanlab/lexigraph/internal/events"
	"github.com/alfredjeanlab/lexigraph/internal/lexicon"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// mockStore is an in-memory store.EntryReader.
type mockStore struct {
	mu      sync.Mutex
	entries map[string]*model.Entry
	nextID  model.EntryID

	// When non-nil, IterateEntries blocks until hold is closed.
	hold chan struct{}
	// iterErr, when non-nil, is returned by IterateEntries.
	iterErr error
}

func newMockStore(pairs ...string) *mockStore {
	ms := &mockStore{entries: make(map[string]*model.Entry)}
	for i := 0; i+1 < len(pairs); i += 2 {
		ms.put(pairs[i], pairs[i+1])
	}
	return ms
}

func (m *mockStore) put(word, definition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.NewEntry(word, definition, "")
	m.nextID++
	e.ID = m.nextID
	m.entries[e.WordKey] = e
}

func (m *mockStore) GetEntry(_ context.Context, key string) (*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) IterateEntries(ctx context.Context, fn func(*model.Entry) error) error {
	if m.hold != nil {
		select {
		case <-m.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	if m.iterErr != nil {
		m.mu.Unlock()
		return m.iterErr
	}
	all := make([]*model.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := *e
		all = append(all, &cp)
	}
	m.mu.Unlock()
	for _, e := range all {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStore) SearchPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (m *mockStore) CountEntries(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// recordingPublisher records published topics in order.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.topics)
}

// dogDictionary is a three-word dictionary where "dog" links to "animal"
// and "domestic".
var dogDictionary = []string{
	"dog", "A domestic animal",
	"animal", "A living organism",
	"domestic", "Of the home",
}

// newTestServer returns a server over the dog dictionary. Nothing is
// published until a test rebuilds.
func newTestServer() (*LexiconServer, *mockStore, http.Handler) {
	srv, ms, _ := newTestServerWith(Options{}, dogDictionary...)
	return srv, ms, srv.NewHTTPHandler("")
}

func newTestServerWith(opts Options, pairs ...string) (*LexiconServer, *mockStore, *recordingPublisher) {
	ms := newMockStore(pairs...)
	pub := &recordingPublisher{}
	engine := lexicon.New(ms, lexicon.Options{})
	return NewLexiconServer(engine, pub, opts), ms, pub
}

// rebuilt returns a server whose dog dictionary graph is already published.
func rebuilt(t *testing.T) (*LexiconServer, http.Handler) {
	t.Helper()
	srv, _, handler := newTestServer()
	if _, err := srv.Rebuild(context.Background(), "test", true); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	return srv, handler
}

var _ events.Publisher = (*recordingPublisher)(nil)
