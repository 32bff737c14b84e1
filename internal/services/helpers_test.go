package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/store"

	"github.com/stretchr/testify/require"
)

// recordingStore wraps a Memory store, counting inserts and optionally
// failing every call.
type recordingStore struct {
	*store.Memory
	mu      sync.Mutex
	inserts int
	fail    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: store.NewMemory()}
}

func (s *recordingStore) Insert(ctx context.Context, collection string, doc store.Document) (string, error) {
	s.mu.Lock()
	fail := s.fail
	if fail == nil {
		s.inserts++
	}
	s.mu.Unlock()
	if fail != nil {
		return "", fail
	}
	return s.Memory.Insert(ctx, collection, doc)
}

func (s *recordingStore) Query(ctx context.Context, collection string, filter store.Filter, limit int) ([]store.Document, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Memory.Query(ctx, collection, filter, limit)
}

func (s *recordingStore) Ping(ctx context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	return s.Memory.Ping(ctx)
}

func (s *recordingStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

var errStoreDown = errors.New("connection refused")

type viewer struct {
	mu   sync.Mutex
	msgs []live.Message
	dead bool
}

func (v *viewer) Send(payload []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dead {
		return errors.New("broken pipe")
	}
	var m live.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	v.msgs = append(v.msgs, m)
	return nil
}

func (v *viewer) Close() error { return nil }

func (v *viewer) received(t *testing.T) []live.Message {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]live.Message(nil), v.msgs...)
}

func watch(t *testing.T, r *live.Registry, userID string) *viewer {
	t.Helper()
	v := &viewer{}
	require.NoError(t, r.Connect(context.Background(), userID, v))
	return v
}

// statusOf returns the HTTP status carried by err, or 500.
func statusOf(err error) int {
	var svcErr ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Status
	}
	return 500
}
