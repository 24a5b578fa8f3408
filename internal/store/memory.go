package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory DocStore used by tests and local dry runs.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any

	// FailIDs makes SetBatch fail for any batch containing one of these ids.
	FailIDs map[string]bool

	DeleteBatchCalls int
	SetBatchCalls    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		FailIDs:     make(map[string]bool),
	}
}

func (m *MemoryStore) Seed(collection, id string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][id] = data
}

func (m *MemoryStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) Get(collection, id string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.collections[collection][id]
	return data, ok
}

func (m *MemoryStore) ListIDs(ctx context.Context, collection string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []Document
	for _, id := range ids {
		docs = append(docs, Document{ID: id, Data: m.collections[collection][id]})
	}
	return docs, nil
}

func (m *MemoryStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteBatchCalls++
	for _, id := range ids {
		delete(m.collections[collection], id)
	}
	return nil
}

func (m *MemoryStore) SetBatch(ctx context.Context, collection string, docs []Document, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetBatchCalls++
	for _, doc := range docs {
		if m.FailIDs[doc.ID] {
			return fmt.Errorf("injected write failure for %s", doc.ID)
		}
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	for _, doc := range docs {
		if merge {
			existing := m.collections[collection][doc.ID]
			if existing == nil {
				existing = make(map[string]any)
			}
			for k, v := range doc.Data {
				existing[k] = v
			}
			m.collections[collection][doc.ID] = existing
			continue
		}
		replaced := make(map[string]any, len(doc.Data))
		for k, v := range doc.Data {
			replaced[k] = v
		}
		m.collections[collection][doc.ID] = replaced
	}
	return nil
}
