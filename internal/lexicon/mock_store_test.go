package lexicon

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// mockStore is an in-memory store.EntryReader and store.LinkWriter for
// engine tests.
type mockStore struct {
	mu      sync.Mutex
	entries map[string]*model.Entry
	nextID  model.EntryID

	iterErr error
	linkErr error
	links   []model.Edge
	writes  int

	// When set, IterateEntries signals started and waits on release.
	started chan struct{}
	release chan struct{}
}

func newMockStore(pairs ...string) *mockStore {
	s := &mockStore{entries: make(map[string]*model.Entry)}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.put(pairs[i], pairs[i+1])
	}
	return s
}

func (s *mockStore) put(word, definition string) *model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := model.NewEntry(word, definition, "")
	if old, ok := s.entries[e.WordKey]; ok {
		e.ID = old.ID
	} else {
		s.nextID++
		e.ID = s.nextID
	}
	s.entries[e.WordKey] = e
	return e
}

func (s *mockStore) GetEntry(_ context.Context, key string) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[model.NormalizeKey(key)]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *mockStore) IterateEntries(ctx context.Context, fn func(*model.Entry) error) error {
	if s.started != nil {
		close(s.started)
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	if s.iterErr != nil {
		s.mu.Unlock()
		return s.iterErr
	}
	all := make([]*model.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		all = append(all, &cp)
	}
	s.mu.Unlock()

	slices.SortFunc(all, func(a, b *model.Entry) int { return int(a.ID - b.ID) })
	for _, e := range all {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *mockStore) SearchPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.entries {
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

func (s *mockStore) CountEntries(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *mockStore) ReplaceLinks(_ context.Context, links []model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	s.links = slices.Clone(links)
	s.writes++
	return nil
}
