package uploader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"
	"guest-gallery/internal/preprocess"
	"guest-gallery/internal/store/objectstore"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// ErrUnknownUpload means the queue has no item with that ID.
var ErrUnknownUpload = fmt.Errorf("unknown upload")

// File is one browser payload handed to the queue.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ObjectPutter writes binary assets and returns their retrieval URLs.
type ObjectPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string, progress objectstore.ProgressFunc) (string, error)
}

// RecordCreator persists gallery records once their binaries are stored.
type RecordCreator interface {
	Create(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, error)
}

// Preprocessor prepares payloads before upload.
type Preprocessor interface {
	Process(fileName, contentType string, data []byte) preprocess.Processed
}

// KeyFunc derives the object storage key for a file name.
type KeyFunc func(fileName string) string

// Config tunes the queue.
type Config struct {
	// RetryLimit is the total number of automatic attempts for one
	// dispatch, the first included. A manual retry always starts a
	// fresh budget.
	RetryLimit int
	// RetryDelay is the fixed pause between automatic attempts.
	RetryDelay time.Duration
	// DismissDelay is how long the queue waits, once every item is
	// terminal, before clearing succeeded items from the snapshot.
	DismissDelay time.Duration
}

// item wraps the client-visible state with the queue's bookkeeping.
type item struct {
	models.UploadItem
	kind     models.MediaKind
	cancel   context.CancelFunc
	canceled bool
}

// Queue uploads files sequentially in arrival order.
type Queue struct {
	objects   ObjectPutter
	records   RecordCreator
	processor Preprocessor
	cfg       Config

	photoKey KeyFunc
	thumbKey KeyFunc

	// OnCreated, when set, observes every successfully created record.
	// It is called from the worker goroutine.
	OnCreated func(models.MediaRecord)

	mu      sync.Mutex
	items   map[string]*item
	order   []string
	dismiss *time.Timer

	wake chan struct{}
	done chan struct{}
}

// New builds a Queue. Start must be called before items upload.
func New(objects ObjectPutter, records RecordCreator, processor Preprocessor, cfg Config) *Queue {
	return &Queue{
		objects:   objects,
		records:   records,
		processor: processor,
		cfg:       cfg,
		photoKey:  objectstore.PhotoKey,
		thumbKey:  objectstore.ThumbnailKey,
		items:     make(map[string]*item),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the worker goroutine. It returns once the worker is
// running; ctx cancellation stops it after the in-flight item settles.
func (q *Queue) Start(ctx context.Context) {
	go q.run(ctx)
}

// Wait blocks until the worker goroutine has exited.
func (q *Queue) Wait() {
	<-q.done
}

// Enqueue adds files to the queue and returns their item IDs in the
// same order. Each file uploads independently: one failure never
// blocks the files behind it.
func (q *Queue) Enqueue(files []File) []string {
	q.mu.Lock()
	ids := make([]string, 0, len(files))
	for _, f := range files {
		it := &item{
			UploadItem: models.UploadItem{
				ID:          uuid.NewString(),
				FileName:    f.Name,
				ContentType: f.ContentType,
				Status:      models.StatusPending,
				Payload:     f.Data,
			},
			kind: models.KindOf(f.ContentType),
		}
		q.items[it.ID] = it
		q.order = append(q.order, it.ID)
		ids = append(ids, it.ID)
	}
	q.stopDismissLocked()
	depth := len(q.pendingLocked())
	q.mu.Unlock()

	metrics.UploadQueueDepth.Set(float64(depth))
	q.signal()
	return ids
}

// Retry re-dispatches an errored item with a fresh retry budget. There
// is no cap on manual retries.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	if it.Status != models.StatusError {
		return fmt.Errorf("upload %s is %s, only errored uploads retry", id, it.Status)
	}

	it.Status = models.StatusPending
	it.Error = ""
	it.Progress = 0
	it.canceled = false
	q.stopDismissLocked()
	q.signal()
	return nil
}

// Cancel stops an item. A pending item is marked canceled without ever
// dispatching; an uploading item has its attempt context canceled.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}

	switch it.Status {
	case models.StatusPending:
		it.canceled = true
		it.Status = models.StatusError
		it.Error = "canceled"
	case models.StatusUploading:
		it.canceled = true
		if it.cancel != nil {
			it.cancel()
		}
	default:
		return fmt.Errorf("upload %s is already %s", id, it.Status)
	}
	return nil
}

// Snapshot returns the queue contents in arrival order. Payloads are
// never included.
func (q *Queue) Snapshot() []models.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.UploadItem, 0, len(q.order))
	for _, id := range q.order {
		it := q.items[id]
		snap := it.UploadItem
		snap.Payload = nil
		out = append(out, snap)
	}
	return out
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	logging.Info("Upload queue started (retry limit: %d, delay: %s)", q.cfg.RetryLimit, q.cfg.RetryDelay)

	for {
		it := q.nextPending()
		if it == nil {
			select {
			case <-ctx.Done():
				logging.Info("Upload queue stopped")
				return
			case <-q.wake:
				continue
			}
		}
		q.process(ctx, it)
		q.afterItem()
	}
}

// nextPending claims the oldest pending item, transitioning it to
// uploading under the lock so no other path can dispatch it.
func (q *Queue) nextPending() *item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range q.order {
		it := q.items[id]
		if it.Status == models.StatusPending && !it.canceled {
			it.Status = models.StatusUploading
			it.Progress = 0
			return it
		}
	}
	return nil
}

func (q *Queue) pendingLocked() []string {
	var out []string
	for _, id := range q.order {
		if q.items[id].Status == models.StatusPending {
			out = append(out, id)
		}
	}
	return out
}

// process runs the attempt loop for one item. Automatic retries use a
// fixed delay and stop at the configured limit; errors that retrying
// cannot fix (bad credentials, cancellation) fail immediately.
func (q *Queue) process(ctx context.Context, it *item) {
	start := time.Now()
	metrics.UploadsInProgress.Inc()
	defer metrics.UploadsInProgress.Dec()

	attemptCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	it.cancel = cancel
	q.mu.Unlock()
	defer cancel()

	// RetryLimit counts attempts, go-retry counts re-dispatches.
	redispatches := q.cfg.RetryLimit - 1
	if redispatches < 0 {
		redispatches = 0
	}
	backoff := retry.WithMaxRetries(uint64(redispatches), retry.NewConstant(q.cfg.RetryDelay))
	err := retry.Do(attemptCtx, backoff, func(ctx context.Context) error {
		q.mu.Lock()
		it.Attempts++
		it.Status = models.StatusUploading
		it.Error = ""
		attempt := it.Attempts
		q.mu.Unlock()

		if attempt > 1 {
			metrics.UploadRetriesTotal.Inc()
			logging.Info("Retrying upload %s (%s), attempt %d", it.ID, it.FileName, attempt)
		}

		err := q.attempt(ctx, it)
		if err == nil {
			return nil
		}

		q.mu.Lock()
		it.Status = models.StatusError
		it.Error = classify(err)
		q.mu.Unlock()

		if ShouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	q.mu.Lock()
	if err == nil {
		it.Status = models.StatusSuccess
		it.Progress = 100
		it.Error = ""
	} else {
		// retry.Do surfaces the last attempt error; the item already
		// carries its classification.
		it.Status = models.StatusError
		if it.Error == "" {
			it.Error = classify(err)
		}
		logging.Warn("Upload %s (%s) failed after %d attempt(s): %v", it.ID, it.FileName, it.Attempts, err)
	}
	it.cancel = nil
	status := string(it.Status)
	q.mu.Unlock()

	metrics.UploadsTotal.WithLabelValues(string(it.kind), status).Inc()
	metrics.UploadDuration.WithLabelValues(string(it.kind)).Observe(time.Since(start).Seconds())
}

// attempt performs one full upload: preprocess, store binaries, create
// the record. The record exists only after every binary write worked.
func (q *Queue) attempt(ctx context.Context, it *item) error {
	processed := q.processor.Process(it.FileName, it.ContentType, it.Payload)

	key := q.photoKey(it.FileName)
	downloadURL, err := q.objects.Put(ctx, key, processed.Data, processed.ContentType, func(transferred, total int64) {
		if total <= 0 {
			return
		}
		q.mu.Lock()
		it.Progress = 100 * float64(transferred) / float64(total)
		q.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", it.FileName, err)
	}
	metrics.UploadBytesTotal.WithLabelValues(string(it.kind)).Add(float64(len(processed.Data)))

	rec := models.MediaRecord{
		FileName:    it.FileName,
		DownloadURL: downloadURL,
		StoragePath: key,
		FileType:    processed.ContentType,
		Kind:        it.kind,
	}

	if len(processed.Thumbnail) > 0 {
		thumbKey := q.thumbKey(it.FileName)
		thumbURL, err := q.objects.Put(ctx, thumbKey, processed.Thumbnail, processed.ThumbnailType, nil)
		if err != nil {
			return fmt.Errorf("failed to store thumbnail for %s: %w", it.FileName, err)
		}
		rec.ThumbnailURL = thumbURL
		rec.ThumbnailStoragePath = thumbKey
	}

	created, err := q.records.Create(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", it.FileName, err)
	}

	logging.Info("Uploaded %s (%s, %d bytes)", it.FileName, it.kind, len(processed.Data))
	if q.OnCreated != nil {
		q.OnCreated(created)
	}
	return nil
}

// ShouldRetry reports whether a failed attempt is worth repeating.
// Credential rejections and cancellations never are.
func ShouldRetry(err error) bool {
	if objectstore.IsUnauthorized(err) || objectstore.IsCanceled(err) {
		return false
	}
	return true
}

// classify maps an attempt error to the message shown in the upload
// panel.
func classify(err error) string {
	switch {
	case objectstore.IsUnauthorized(err):
		return "storage rejected the upload credentials"
	case objectstore.IsCanceled(err):
		return "canceled"
	case objectstore.IsRetryQuotaExceeded(err):
		return "storage is unreachable, try again later"
	default:
		return err.Error()
	}
}

// afterItem arms the dismiss timer when the whole queue has settled.
func (q *Queue) afterItem() {
	q.mu.Lock()
	defer q.mu.Unlock()

	metrics.UploadQueueDepth.Set(float64(len(q.pendingLocked())))

	for _, id := range q.order {
		if !q.items[id].Terminal() {
			return
		}
	}

	q.stopDismissLocked()
	if q.cfg.DismissDelay <= 0 {
		return
	}
	q.dismiss = time.AfterFunc(q.cfg.DismissDelay, q.dismissSettled)
}

// dismissSettled clears succeeded items once the queue has been quiet
// for the dismiss delay. Errored items stay visible so the guest can
// retry them.
func (q *Queue) dismissSettled() {
	q.mu.Lock()
	defer q.mu.Unlock()

	keep := q.order[:0]
	for _, id := range q.order {
		if q.items[id].Status == models.StatusSuccess {
			delete(q.items, id)
			continue
		}
		keep = append(keep, id)
	}
	q.order = keep
}

func (q *Queue) stopDismissLocked() {
	if q.dismiss != nil {
		q.dismiss.Stop()
		q.dismiss = nil
	}
}
