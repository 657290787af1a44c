package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"guest-gallery/internal/models"
)

// ============================================================================
// Test helpers
// ============================================================================

type fakeFetcher struct {
	calls   atomic.Int64
	pages   map[string]models.Page
	err     error
	release chan struct{} // when non-nil, fetches block until closed
}

func (f *fakeFetcher) QueryPage(ctx context.Context, cursorToken string, pageSize int) (models.Page, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.Page{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.Page{}, f.err
	}
	return f.pages[cursorToken], nil
}

func rec(id string) models.MediaRecord {
	return models.MediaRecord{
		ID:          id,
		FileName:    id + ".jpg",
		DownloadURL: "https://cdn.example/photos/" + id,
		Kind:        models.KindImage,
	}
}

func startCoordinator(t *testing.T, f *fakeFetcher, pageSize int) *Coordinator {
	t.Helper()
	c := NewCoordinator(f, pageSize)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		c.Wait()
	})
	c.Start(ctx)
	return c
}

func waitForState(t *testing.T, c *Coordinator, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		snap = c.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("coordinator never reached state %s (last: %s with %d records)", want, snap.State, len(snap.Records))
	return snap
}

// ============================================================================
// Page loading
// ============================================================================

func TestFirstPageLoadsAndExhaustsOnShortPage(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"": {Records: []models.MediaRecord{rec("a"), rec("b")}}, // short page, no cursor
	}}
	c := startCoordinator(t, f, 5)

	snap := waitForState(t, c, StateExhausted)
	if len(snap.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(snap.Records))
	}
	if snap.Records[0].ID != "a" || snap.Records[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", snap.Records[0].ID, snap.Records[1].ID)
	}
}

func TestNextPageAppendsOlderRecords(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"":        {Records: []models.MediaRecord{rec("c"), rec("b")}, NextCursor: "after-b"},
		"after-b": {Records: []models.MediaRecord{rec("a")}},
	}}
	c := startCoordinator(t, f, 2)

	waitForState(t, c, StateIdle)
	c.LoadNextPage()
	snap := waitForState(t, c, StateExhausted)

	if len(snap.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(snap.Records))
	}
	want := []string{"c", "b", "a"}
	for i, id := range want {
		if snap.Records[i].ID != id {
			t.Errorf("records[%d] = %s, want %s", i, snap.Records[i].ID, id)
		}
	}
}

func TestRapidNextPageTriggersCollapse(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := &fakeFetcher{
		release: release,
		pages: map[string]models.Page{
			"":        {Records: []models.MediaRecord{rec("b"), rec("a")}, NextCursor: "after-a"},
			"after-a": {Records: nil},
		},
	}
	c := startCoordinator(t, f, 2)

	// Let the first page land, then hammer next-page while one fetch
	// is deliberately stuck in flight.
	close(release)
	waitForState(t, c, StateIdle)

	blocked := make(chan struct{})
	f.release = blocked
	for i := 0; i < 10; i++ {
		c.LoadNextPage()
	}
	close(blocked)
	waitForState(t, c, StateExhausted)

	// One first-page fetch plus exactly one next-page fetch.
	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetch count = %d, want 2", got)
	}
}

func TestNextPageIgnoredWhenExhausted(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"": {Records: []models.MediaRecord{rec("a")}},
	}}
	c := startCoordinator(t, f, 5)

	waitForState(t, c, StateExhausted)
	c.LoadNextPage()
	c.LoadNextPage()

	// Snapshot is processed by the same goroutine, so by the time it
	// returns the ignored commands have been consumed.
	snap := c.Snapshot()
	if snap.State != StateExhausted {
		t.Errorf("state = %s, want %s", snap.State, StateExhausted)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetch count = %d, want 1", got)
	}
}

func TestFetchErrorKeepsView(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{err: errors.New("store unavailable")}
	c := startCoordinator(t, f, 5)

	snap := waitForState(t, c, StateIdle)
	if len(snap.Records) != 0 {
		t.Errorf("got %d records, want 0", len(snap.Records))
	}

	// Recovery: the store comes back and a reload succeeds.
	f.err = nil
	f.pages = map[string]models.Page{"": {Records: []models.MediaRecord{rec("a")}}}
	c.LoadFirstPage()
	snap = waitForState(t, c, StateExhausted)
	if len(snap.Records) != 1 {
		t.Errorf("got %d records after recovery, want 1", len(snap.Records))
	}
}

// ============================================================================
// Live inserts and removal
// ============================================================================

func TestInsertPlacesNewRecordAtHead(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"": {Records: []models.MediaRecord{rec("b"), rec("a")}},
	}}
	c := startCoordinator(t, f, 5)
	waitForState(t, c, StateExhausted)

	c.Insert(rec("c"))
	snap := c.Snapshot()
	if len(snap.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(snap.Records))
	}
	if snap.Records[0].ID != "c" {
		t.Errorf("head = %s, want c", snap.Records[0].ID)
	}
}

func TestInsertDeduplicatesByID(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"": {Records: []models.MediaRecord{rec("a")}},
	}}
	c := startCoordinator(t, f, 5)
	waitForState(t, c, StateExhausted)

	// Both a live duplicate and a repeated insert are dropped.
	c.Insert(rec("a"))
	c.Insert(rec("b"))
	c.Insert(rec("b"))

	snap := c.Snapshot()
	if len(snap.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(snap.Records))
	}
	if snap.Records[0].ID != "b" || snap.Records[1].ID != "a" {
		t.Errorf("unexpected order: %s, %s", snap.Records[0].ID, snap.Records[1].ID)
	}
}

func TestRemoveDropsRecord(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]models.Page{
		"": {Records: []models.MediaRecord{rec("c"), rec("b"), rec("a")}},
	}}
	c := startCoordinator(t, f, 5)
	waitForState(t, c, StateExhausted)

	c.Remove("b")
	c.Remove("nope") // unknown id is a no-op

	snap := c.Snapshot()
	if len(snap.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(snap.Records))
	}
	for _, r := range snap.Records {
		if r.ID == "b" {
			t.Error("record b should have been removed")
		}
	}

	// A removed record can be re-inserted, e.g. after a re-upload.
	c.Insert(rec("b"))
	if got := len(c.Snapshot().Records); got != 3 {
		t.Errorf("got %d records after re-insert, want 3", got)
	}
}

// ============================================================================
// Paging across many pages
// ============================================================================

func TestWalksAllPagesToExhaustion(t *testing.T) {
	t.Parallel()

	pages := map[string]models.Page{}
	cursor := ""
	total := 0
	for p := 0; p < 4; p++ {
		var recs []models.MediaRecord
		for i := 0; i < 3; i++ {
			recs = append(recs, rec(fmt.Sprintf("p%d-%d", p, i)))
			total++
		}
		next := fmt.Sprintf("cur-%d", p)
		if p == 3 {
			next = "" // final short page
			recs = recs[:1]
			total -= 2
		}
		pages[cursor] = models.Page{Records: recs, NextCursor: next}
		cursor = next
	}

	f := &fakeFetcher{pages: pages}
	c := startCoordinator(t, f, 3)

	for i := 0; i < 4; i++ {
		waitForState(t, c, StateIdle)
		c.LoadNextPage()
		if i == 2 {
			break
		}
	}
	snap := waitForState(t, c, StateExhausted)
	if len(snap.Records) != total {
		t.Errorf("got %d records, want %d", len(snap.Records), total)
	}
}
