package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"guest-gallery/internal/models"
)

// syncRecorder is a ResponseWriter safe to inspect while the handler
// goroutine is still writing.
type syncRecorder struct {
	mu      sync.Mutex
	header  http.Header
	body    strings.Builder
	status  int
	flushed bool
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: make(http.Header)}
}

func (r *syncRecorder) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

func (r *syncRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(b)
}

func (r *syncRecorder) WriteHeader(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed = true
}

func (r *syncRecorder) Body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// ============================================================================
// Broadcast framing
// ============================================================================

func TestBroadcastFrames(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.MediaCreated(models.MediaRecord{ID: "abc", FileName: "a.jpg", Kind: models.KindImage})
	frame := string(<-ch)
	if !strings.HasPrefix(frame, "event: created\ndata: ") {
		t.Errorf("created frame = %q", frame)
	}
	if !strings.Contains(frame, `"id":"abc"`) {
		t.Errorf("created frame missing record: %q", frame)
	}
	if !strings.HasSuffix(frame, "\n\n") {
		t.Errorf("frame must end with a blank line: %q", frame)
	}

	h.MediaDeleted("abc")
	frame = string(<-ch)
	if !strings.HasPrefix(frame, "event: deleted\ndata: ") {
		t.Errorf("deleted frame = %q", frame)
	}
	if !strings.Contains(frame, `{"id":"abc"}`) {
		t.Errorf("deleted frame payload = %q", frame)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch := h.subscribe()

	// Fill the backlog without draining, then overflow it.
	for i := 0; i <= clientBuffer; i++ {
		h.MediaDeleted("x")
	}

	if h.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0 after overflow", h.ClientCount())
	}
	// The hub closed the channel; the backlog remains readable.
	for range ch {
	}
}

// ============================================================================
// SSE endpoint
// ============================================================================

func TestServeHTTPStreamsEvents(t *testing.T) {
	t.Parallel()

	h := NewHub()
	rec := newSyncRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	waitFor(t, func() bool { return h.ClientCount() == 1 }, "client never registered")

	h.MediaCreated(models.MediaRecord{ID: "live-1", FileName: "new.jpg"})
	waitFor(t, func() bool {
		return strings.Contains(rec.Body(), "event: created")
	}, "event never reached the stream")

	cancel()
	<-done

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.HasPrefix(rec.Body(), ": connected\n\n") {
		t.Errorf("stream should open with a connected comment, got %q", rec.Body()[:min(len(rec.Body()), 40)])
	}
	if h.ClientCount() != 0 {
		t.Errorf("client count = %d after disconnect, want 0", h.ClientCount())
	}
}

func TestServeHTTPRequiresFlusher(t *testing.T) {
	t.Parallel()

	h := NewHub()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	h.ServeHTTP(plainWriter{httptest.NewRecorder()}, req)
	// No clients registered, no panic.
	if h.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", h.ClientCount())
	}
}

// plainWriter hides the recorder's Flush method.
type plainWriter struct {
	rec *httptest.ResponseRecorder
}

func (p plainWriter) Header() http.Header         { return p.rec.Header() }
func (p plainWriter) Write(b []byte) (int, error) { return p.rec.Write(b) }
func (p plainWriter) WriteHeader(status int)      { p.rec.WriteHeader(status) }
