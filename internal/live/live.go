package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"
)

const (
	// EventCreated announces a new gallery record. Its data is the
	// full record JSON.
	EventCreated = "created"
	// EventDeleted announces a removed record. Its data is {"id": ...}.
	EventDeleted = "deleted"

	// keepAliveInterval paces comment frames that keep proxies from
	// closing idle connections.
	keepAliveInterval = 30 * time.Second

	// clientBuffer is the per-client event backlog. A client that
	// cannot drain it is dropped rather than stalling the broadcast.
	clientBuffer = 16
)

// Hub fans events out to every connected client.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]bool
}

// NewHub returns an empty Hub, ready to serve.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]bool)}
}

// MediaCreated broadcasts a newly persisted record.
func (h *Hub) MediaCreated(rec models.MediaRecord) {
	h.broadcast(EventCreated, rec)
}

// MediaDeleted broadcasts a record removal.
func (h *Hub) MediaDeleted(id string) {
	h.broadcast(EventDeleted, map[string]string{"id": id})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Live: failed to encode %s event: %v", event, err)
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data))

	h.mu.Lock()
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
			// Slow client: drop it so one stalled connection cannot
			// block updates to everyone else.
			delete(h.clients, ch)
			close(ch)
			metrics.LiveClients.Dec()
			logging.Warn("Live: dropped a client that stopped draining events")
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.LiveEventsTotal.WithLabelValues(event).Inc()
	logging.Debug("Live: broadcast %s to %d client(s)", event, n)
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = true
	h.mu.Unlock()
	metrics.LiveClients.Inc()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if h.clients[ch] {
		delete(h.clients, ch)
		close(ch)
		metrics.LiveClients.Dec()
	}
	h.mu.Unlock()
}

// ServeHTTP implements the SSE endpoint. It streams until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)
	logging.Debug("Live: client connected (%d total)", h.ClientCount())

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logging.Debug("Live: client disconnected")
			return

		case frame, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
