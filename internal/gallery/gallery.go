package gallery

import (
	"context"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"
)

// State is the coordinator's loading state.
type State string

const (
	// StateInitialLoading is the window before the first page arrives.
	StateInitialLoading State = "initial-loading"
	// StateIdle means a further page can be requested.
	StateIdle State = "idle"
	// StateLoadingMore means a next-page fetch is in flight.
	StateLoadingMore State = "loading-more"
	// StateExhausted means the backing collection has no older records.
	StateExhausted State = "exhausted"
)

// PageFetcher retrieves one page of records strictly after a cursor.
type PageFetcher interface {
	QueryPage(ctx context.Context, cursorToken string, pageSize int) (models.Page, error)
}

// Snapshot is a point-in-time copy of the coordinator's view.
type Snapshot struct {
	Records []models.MediaRecord `json:"records"`
	State   State                `json:"state"`
}

type cmdKind int

const (
	cmdLoadFirst cmdKind = iota
	cmdLoadNext
	cmdInsert
	cmdRemove
	cmdSnapshot
)

type command struct {
	kind  cmdKind
	rec   models.MediaRecord
	id    string
	reply chan Snapshot
}

type fetchResult struct {
	replace bool
	page    models.Page
	err     error
}

// Coordinator owns the gallery view. All mutation flows through its
// command channel and is applied by one goroutine.
type Coordinator struct {
	fetcher  PageFetcher
	pageSize int

	cmds    chan command
	results chan fetchResult
	done    chan struct{}
}

// NewCoordinator builds a Coordinator. Start must be called before use.
func NewCoordinator(fetcher PageFetcher, pageSize int) *Coordinator {
	return &Coordinator{
		fetcher:  fetcher,
		pageSize: pageSize,
		cmds:     make(chan command),
		results:  make(chan fetchResult, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the coordinator goroutine and kicks off the first
// page fetch.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
	c.LoadFirstPage()
}

// Wait blocks until the coordinator goroutine has exited.
func (c *Coordinator) Wait() {
	<-c.done
}

// LoadFirstPage replaces the view wholesale with the newest page.
func (c *Coordinator) LoadFirstPage() {
	c.send(command{kind: cmdLoadFirst})
}

// LoadNextPage requests one older page. Calls made while a fetch is in
// flight, or after the collection is exhausted, are ignored: rapid
// scroll triggers collapse into a single fetch.
func (c *Coordinator) LoadNextPage() {
	c.send(command{kind: cmdLoadNext})
}

// Insert places a newly created record at the head of the view.
// Records already present (however they arrived) are left alone.
func (c *Coordinator) Insert(rec models.MediaRecord) {
	c.send(command{kind: cmdInsert, rec: rec})
}

// Remove drops a record from the view. Unknown IDs are a no-op.
func (c *Coordinator) Remove(id string) {
	c.send(command{kind: cmdRemove, id: id})
}

// Snapshot returns a copy of the current view.
func (c *Coordinator) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case c.cmds <- command{kind: cmdSnapshot, reply: reply}:
		return <-reply
	case <-c.done:
		return Snapshot{State: StateInitialLoading}
	}
}

func (c *Coordinator) send(cmd command) {
	select {
	case c.cmds <- cmd:
	case <-c.done:
	}
}

// run is the single owner of the view. Fetches happen on a side
// goroutine so commands keep flowing while a page is in flight, but
// results are applied here.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	var (
		records   []models.MediaRecord
		seen      = make(map[string]bool)
		cursor    string
		state     = StateInitialLoading
		fetching  bool
		exhausted bool
	)

	apply := func(res fetchResult) {
		fetching = false
		page := "next"
		if res.replace {
			page = "first"
		}
		if res.err != nil {
			metrics.GalleryPageFetchesTotal.WithLabelValues(page, "error").Inc()
			logging.Error("Gallery %s-page fetch failed: %v", page, res.err)
			// Leave the view as it was; the client may trigger again.
			if exhausted {
				state = StateExhausted
			} else {
				state = StateIdle
			}
			return
		}
		metrics.GalleryPageFetchesTotal.WithLabelValues(page, "success").Inc()

		if res.replace {
			records = records[:0]
			seen = make(map[string]bool)
		}
		for _, rec := range res.page.Records {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			records = append(records, rec)
		}
		cursor = res.page.NextCursor
		exhausted = cursor == ""
		if exhausted {
			state = StateExhausted
		} else {
			state = StateIdle
		}
		logging.Debug("Gallery view now holds %d record(s), state %s", len(records), state)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-c.results:
			apply(res)

		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdLoadFirst:
				if fetching {
					continue
				}
				fetching = true
				exhausted = false
				if len(records) == 0 {
					state = StateInitialLoading
				} else {
					state = StateLoadingMore
				}
				c.fetch(ctx, "", true)

			case cmdLoadNext:
				if fetching || exhausted {
					continue
				}
				fetching = true
				state = StateLoadingMore
				c.fetch(ctx, cursor, false)

			case cmdInsert:
				if cmd.rec.ID == "" || seen[cmd.rec.ID] {
					continue
				}
				seen[cmd.rec.ID] = true
				records = append([]models.MediaRecord{cmd.rec}, records...)

			case cmdRemove:
				if !seen[cmd.id] {
					continue
				}
				delete(seen, cmd.id)
				for i, rec := range records {
					if rec.ID == cmd.id {
						records = append(records[:i], records[i+1:]...)
						break
					}
				}

			case cmdSnapshot:
				out := make([]models.MediaRecord, len(records))
				copy(out, records)
				cmd.reply <- Snapshot{Records: out, State: state}
			}
		}
	}
}

func (c *Coordinator) fetch(ctx context.Context, cursorToken string, replace bool) {
	go func() {
		page, err := c.fetcher.QueryPage(ctx, cursorToken, c.pageSize)
		select {
		case c.results <- fetchResult{replace: replace, page: page, err: err}:
		case <-ctx.Done():
		}
	}()
}
