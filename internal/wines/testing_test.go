package wines

import (
	"context"
	"io"
	"sort"
	"sync"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

type memoryStore struct {
	mu      sync.Mutex
	items   map[string]Wine
	creates int
	updates []map[string]any
	err     error
}

func newMemoryStore(items ...Wine) *memoryStore {
	m := &memoryStore{items: map[string]Wine{}}
	for _, w := range items {
		m.items[w.ID] = w
	}
	return m
}

func (m *memoryStore) sorted() []Wine {
	out := make([]Wine, 0, len(m.items))
	for _, w := range m.items {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) List(context.Context) ([]Wine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(), nil
}

func (m *memoryStore) ListFeatured(context.Context) ([]Wine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Wine{}
	for _, w := range m.sorted() {
		if w.Featured {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memoryStore) ListLowStock(_ context.Context, threshold int) ([]Wine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Wine{}
	for _, w := range m.sorted() {
		if w.Stock <= threshold {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*Wine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	w, ok := m.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}
	return &w, nil
}

func (m *memoryStore) Create(_ context.Context, w *Wine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.creates++
	m.items[w.ID] = *w
	return nil
}

func (m *memoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}
	m.updates = append(m.updates, fields)
	if v, ok := fields["stock"]; ok {
		w.Stock = v.(int)
	}
	if v, ok := fields["price"]; ok {
		w.Price = v.(float64)
	}
	m.items[id] = w
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memoryStore) DecrementStock(_ context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.items[id]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
	}
	next, err := decrement(w.Stock, qty)
	if err != nil {
		return 0, err
	}
	w.Stock = next
	m.items[id] = w
	return next, nil
}

type stubImages struct {
	deleted []string
	err     error
}

func (s *stubImages) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
