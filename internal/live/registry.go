// Package live keeps the in-memory set of viewer connections per tracked
// user and fans location updates out to them.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

const (
	MessageLast  = "last"
	MessageTrack = "track"
)

var (
	ErrClosed         = errors.New("live: registry closed")
	ErrTooManyViewers = errors.New("live: viewer limit reached")
	ErrForbidden      = errors.New("live: viewer not allowed")
)

// Message is the envelope pushed to viewers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is one open viewer connection. Send must not block: it either
// queues the payload for delivery or reports the connection as unusable.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Policy decides whether a viewer may watch userID. It runs inside Connect
// before the connection becomes visible to broadcasters.
type Policy interface {
	AllowView(ctx context.Context, userID string) error
}

type PolicyFunc func(ctx context.Context, userID string) error

func (f PolicyFunc) AllowView(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// AllowAll admits every viewer.
var AllowAll Policy = PolicyFunc(func(context.Context, string) error { return nil })

type Option func(*Registry)

// WithMaxViewers caps concurrent viewers per user. Zero means unlimited.
func WithMaxViewers(n int) Option {
	return func(r *Registry) { r.maxViewers = n }
}

func WithPolicy(p Policy) Option {
	return func(r *Registry) { r.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// Registry maps a tracked user id to its open viewer connections.
type Registry struct {
	mu         sync.Mutex
	viewers    map[string]map[Conn]struct{}
	closed     bool
	maxViewers int
	policy     Policy
	log        *slog.Logger
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		viewers: map[string]map[Conn]struct{}{},
		policy:  AllowAll,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers conn as a viewer of userID. Registering the same conn
// twice has no further effect.
func (r *Registry) Connect(ctx context.Context, userID string, conn Conn) error {
	if err := r.policy.AllowView(ctx, userID); err != nil {
		return errors.Join(ErrForbidden, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	set := r.viewers[userID]
	if _, ok := set[conn]; ok {
		return nil
	}
	if r.maxViewers > 0 && len(set) >= r.maxViewers {
		return ErrTooManyViewers
	}
	if set == nil {
		set = map[Conn]struct{}{}
		r.viewers[userID] = set
	}
	set[conn] = struct{}{}
	r.log.Debug("viewer connected", "user_id", userID, "viewers", len(set))
	return nil
}

// Disconnect removes conn. The user entry is dropped with its last viewer.
func (r *Registry) Disconnect(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(userID, conn)
}

func (r *Registry) removeLocked(userID string, conn Conn) bool {
	set, ok := r.viewers[userID]
	if !ok {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.viewers, userID)
	}
	r.log.Debug("viewer disconnected", "user_id", userID, "viewers", len(set))
	return true
}

// Broadcast sends msg to every viewer of userID and returns how many sends
// succeeded. Viewers whose send fails are closed and removed.
func (r *Registry) Broadcast(userID string, msg Message) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("encode live message", "user_id", userID, "type", msg.Type, "err", err)
		return 0
	}

	r.mu.Lock()
	set := r.viewers[userID]
	if len(set) == 0 {
		r.mu.Unlock()
		return 0
	}
	delivered := 0
	var stale []Conn
	for conn := range set {
		if err := conn.Send(payload); err != nil {
			stale = append(stale, conn)
			continue
		}
		delivered++
	}
	for _, conn := range stale {
		r.removeLocked(userID, conn)
	}
	r.mu.Unlock()

	for _, conn := range stale {
		_ = conn.Close()
	}
	if len(stale) > 0 {
		r.log.Info("pruned dead viewers", "user_id", userID, "count", len(stale))
	}
	return delivered
}

// Count returns the number of open viewers for userID.
func (r *Registry) Count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers[userID])
}

// Users returns how many users currently have at least one viewer.
func (r *Registry) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Close closes every tracked connection and rejects further Connects.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	var conns []Conn
	for _, set := range r.viewers {
		for conn := range set {
			conns = append(conns, conn)
		}
	}
	r.viewers = map[string]map[Conn]struct{}{}
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
