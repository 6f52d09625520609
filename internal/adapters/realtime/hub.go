package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"eventboard/internal/domain"
	"eventboard/internal/metrics"

	"golang.org/x/net/websocket"
)

const (
	defaultBufferSize = 16
	writeTimeout      = 5 * time.Second
)

// Frame is the wire shape of every notification.
type Frame struct {
	Type    domain.NotificationKind `json:"type"`
	Payload any                     `json:"payload"`
}

type listener struct {
	send chan []byte
}

// Hub fans change notifications out to connected websocket listeners. Delivery
// is best effort: a listener whose buffer is full misses the frame, and Notify
// never blocks on a listener.
type Hub struct {
	logger     *slog.Logger
	bufferSize int

	mu        sync.Mutex
	listeners map[*listener]struct{}
	closed    bool
}

// NewHub returns a Hub that buffers up to bufferSize frames per listener.
func NewHub(logger *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		listeners:  make(map[*listener]struct{}),
	}
}

// Notify publishes a frame of the given kind to every listener.
func (h *Hub) Notify(kind domain.NotificationKind, payload any) {
	frame, err := json.Marshal(Frame{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Error("encode notification", "kind", kind, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()

	h.mu.Lock()
	defer h.mu.Unlock()
	for l := range h.listeners {
		select {
		case l.send <- frame:
		default:
			metrics.NotificationsDropped.Inc()
			h.logger.Warn("dropped notification for slow listener", "kind", kind)
		}
	}
}

// Handler upgrades GET requests to a websocket listener. Listeners only
// receive; anything they send is discarded.
func (h *Hub) Handler() http.Handler {
	ws := websocket.Server{
		// Any origin may listen.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serveConn,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
}

// ListenerCount returns the number of connected listeners.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Close disconnects every listener and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for l := range h.listeners {
		delete(h.listeners, l)
		close(l.send)
	}
	metrics.RealtimeListeners.Set(0)
}

func (h *Hub) add(l *listener) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.listeners[l] = struct{}{}
	metrics.RealtimeListeners.Inc()
	return true
}

func (h *Hub) remove(l *listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[l]; ok {
		delete(h.listeners, l)
		metrics.RealtimeListeners.Dec()
	}
}

func (h *Hub) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	l := &listener{send: make(chan []byte, h.bufferSize)}
	if !h.add(l) {
		return
	}
	defer h.remove(l)
	h.logger.Debug("listener connected", "remote", conn.Request().RemoteAddr)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, conn)
	}()

	for {
		select {
		case frame, ok := <-l.send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := websocket.Message.Send(conn, string(frame)); err != nil {
				h.logger.Debug("listener write failed", "error", err)
				return
			}
		case <-gone:
			h.logger.Debug("listener disconnected", "remote", conn.Request().RemoteAddr)
			return
		}
	}
}
