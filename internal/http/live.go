package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"safeshe-backend-go/internal/live"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxViewerFrame = 4096
)

var (
	errConnClosed = errors.New("viewer connection closed")
	errQueueFull  = errors.New("viewer send queue full")
)

// wsConn adapts a websocket to live.Conn. Sends are queued and written by
// a single writer goroutine; a full queue counts as a failed send.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errQueueFull
	}
}

// Close marks the conn closed and returns at once. The close frame is sent
// from a separate goroutine since a stalled writer can hold the socket's
// write lock until its deadline, and Close runs during broadcasts.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.done)
		c.mu.Unlock()
		go func() {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = c.conn.Close()
		}()
	})
	return nil
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards viewer input until the socket fails or closes.
func (c *wsConn) readPump() {
	c.conn.SetReadLimit(maxViewerFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (s *Server) TrackSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newWSConn(conn, s.Config.LiveSendBuffer)
	go c.writePump()

	if err := s.Tracker.Watch(ctx, userID, c); err != nil {
		s.Log.InfoContext(ctx, "viewer rejected", slog.String("user_id", userID), slog.Any("err", err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeCode(err), "viewer rejected"), time.Now().Add(time.Second))
		_ = c.Close()
		return
	}
	defer func() {
		s.Registry.Disconnect(userID, c)
		_ = c.Close()
	}()
	c.readPump()
}

func closeCode(err error) int {
	switch {
	case errors.Is(err, live.ErrForbidden):
		return websocket.ClosePolicyViolation
	case errors.Is(err, live.ErrTooManyViewers):
		return websocket.CloseTryAgainLater
	case errors.Is(err, live.ErrClosed):
		return websocket.CloseGoingAway
	default:
		return websocket.CloseInternalServerErr
	}
}
