package store

import (
	"context"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps documents in process memory. It backs tests and
// STORE_DRIVER=memory.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Document
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string][]Document{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if collection == "" {
		return "", ErrInvalidCollection
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized, err := ToDocument(dataFields(doc))
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	normalized[FieldID] = id
	at := createdAt(doc, m.now)
	normalized[FieldCreatedAt] = at

	m.mu.Lock()
	docs := m.collections[collection]
	// Kept in created_at order, equal stamps in insertion order, so the
	// reverse scan in Query matches the Postgres ordering.
	pos := sort.Search(len(docs), func(i int) bool {
		return docs[i][FieldCreatedAt].(time.Time).After(at)
	})
	m.collections[collection] = slices.Insert(docs, pos, normalized)
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Query(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.collections[collection]
	items := []Document{}
	for i := len(docs) - 1; i >= 0; i-- {
		if !matches(docs[i], want) {
			continue
		}
		items = append(items, copyDocument(docs[i]))
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matches(doc Document, filter Filter) bool {
	for k, v := range filter {
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
