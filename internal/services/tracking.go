package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/models"
	"safeshe-backend-go/internal/store"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"
)

const lockStripes = 64

// Tracker is the write path for location updates: it stamps, persists and
// fans each accepted trackpoint out to the user's live viewers.
type Tracker struct {
	store    store.Store
	registry *live.Registry
	clock    clockwork.Clock

	// Points of one user are handled under the same stripe so that the
	// broadcast order matches server_ts order.
	locks [lockStripes]sync.Mutex

	tsMu   sync.Mutex
	lastTS time.Time

	log *slog.Logger
}

type TrackerOption func(*Tracker)

func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.log = l }
}

func NewTracker(s store.Store, registry *live.Registry, clock clockwork.Clock, opts ...TrackerOption) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := &Tracker{store: s, registry: registry, clock: clock, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit validates, persists and broadcasts point, returning the stored id.
// Broadcast problems never fail the call.
func (t *Tracker) Submit(ctx context.Context, point models.Trackpoint) (string, error) {
	point.ServerTS = nil
	if err := validateInput(point); err != nil {
		return "", err
	}

	lock := t.lockFor(point.UserID)
	lock.Lock()
	defer lock.Unlock()

	serverTS := t.stamp()
	point.ServerTS = &serverTS
	doc, err := store.ToDocument(point)
	if err != nil {
		return "", WrapError(err, "encode trackpoint")
	}
	// Stored order follows server_ts even if the wall clock steps back.
	doc[store.FieldCreatedAt] = serverTS
	id, err := t.store.Insert(ctx, models.CollectionTrackpoint, doc)
	if err != nil {
		return "", WrapError(err, "store trackpoint")
	}

	payload := make(store.Document, len(doc)+1)
	for k, v := range doc {
		payload[k] = v
	}
	payload[store.FieldID] = id
	payload["server_ts"] = serverTS.Format(time.RFC3339Nano)
	t.registry.Broadcast(point.UserID, live.Message{Type: live.MessageTrack, Data: payload})
	return id, nil
}

// Latest returns the newest stored trackpoint of userID, or nil.
func (t *Tracker) Latest(ctx context.Context, userID string) (store.Document, error) {
	if userID == "" {
		return nil, ErrBadRequest("user_id is required")
	}
	items, err := t.store.Query(ctx, models.CollectionTrackpoint, store.Filter{"user_id": userID}, 1)
	if err != nil {
		return nil, WrapError(err, "query trackpoints")
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Watch registers conn as a viewer of userID and queues the newest stored
// trackpoint, if any, as a "last" message. It holds the user's stripe so
// no "track" message can reach conn ahead of the "last" one.
func (t *Tracker) Watch(ctx context.Context, userID string, conn live.Conn) error {
	lock := t.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := t.registry.Connect(ctx, userID, conn); err != nil {
		return err
	}
	latest, err := t.Latest(ctx, userID)
	if err != nil {
		t.log.WarnContext(ctx, "load last trackpoint", "user_id", userID, "err", err)
		return nil
	}
	if latest == nil {
		return nil
	}
	payload, err := json.Marshal(live.Message{Type: live.MessageLast, Data: latest})
	if err != nil {
		return WrapError(err, "encode last trackpoint")
	}
	if err := conn.Send(payload); err != nil {
		t.registry.Disconnect(userID, conn)
		return WrapError(err, "send last trackpoint")
	}
	return nil
}

func (t *Tracker) lockFor(userID string) *sync.Mutex {
	return &t.locks[xxhash.Sum64String(userID)%lockStripes]
}

// stamp returns the current UTC time, never earlier than a previous stamp.
func (t *Tracker) stamp() time.Time {
	now := t.clock.Now().UTC()
	t.tsMu.Lock()
	defer t.tsMu.Unlock()
	if now.Before(t.lastTS) {
		now = t.lastTS
	}
	t.lastTS = now
	return now
}
