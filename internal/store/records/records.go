package records

import (
	"context"
	"fmt"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"
	"guest-gallery/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// recordDoc is the BSON shape of one gallery record. The model keeps the
// identifier as a hex string; storage uses the native ObjectID.
type recordDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	FileName             string             `bson:"fileName"`
	DownloadURL          string             `bson:"downloadURL"`
	ThumbnailURL         string             `bson:"thumbnailURL,omitempty"`
	UploadedAt           time.Time          `bson:"uploadedAt"`
	StoragePath          string             `bson:"storagePath"`
	ThumbnailStoragePath string             `bson:"thumbnailStoragePath,omitempty"`
	FileType             string             `bson:"fileType"`
	Kind                 string             `bson:"kind"`
}

func (d *recordDoc) toModel() models.MediaRecord {
	return models.MediaRecord{
		ID:                   d.ID.Hex(),
		FileName:             d.FileName,
		DownloadURL:          d.DownloadURL,
		ThumbnailURL:         d.ThumbnailURL,
		UploadedAt:           d.UploadedAt,
		StoragePath:          d.StoragePath,
		ThumbnailStoragePath: d.ThumbnailStoragePath,
		FileType:             d.FileType,
		Kind:                 models.MediaKind(d.Kind),
	}
}

// Store persists MediaRecords in a MongoDB collection.
// It performs no retries; callers own retry policy.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB, verifies the connection, and ensures the
// pagination index exists.
func New(ctx context.Context, uri, database, collection string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	// Pagination always walks (uploadedAt desc, _id desc)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pagination index: %w", err)
	}

	logging.Info("Record store connected: %s/%s", database, collection)
	return &Store{client: client, coll: coll}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Create persists a new record with a server-assigned creation timestamp
// and returns it with the assigned identifier filled in.
func (s *Store) Create(ctx context.Context, rec models.MediaRecord) (models.MediaRecord, error) {
	start := time.Now()

	doc := recordDoc{
		FileName:             rec.FileName,
		DownloadURL:          rec.DownloadURL,
		ThumbnailURL:         rec.ThumbnailURL,
		UploadedAt:           time.Now().UTC(),
		StoragePath:          rec.StoragePath,
		ThumbnailStoragePath: rec.ThumbnailStoragePath,
		FileType:             rec.FileType,
		Kind:                 string(rec.Kind),
	}

	res, err := s.coll.InsertOne(ctx, doc)
	observeOp("create", start, err)
	if err != nil {
		return models.MediaRecord{}, fmt.Errorf("create record: %w", err)
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	created := doc.toModel()
	logging.Debug("Record created: %s (%s)", created.ID, created.FileName)
	return created, nil
}

// QueryPage returns up to pageSize records ordered by uploadedAt
// descending, starting strictly after the given cursor. The returned
// page carries an empty NextCursor when it was shorter than requested.
func (s *Store) QueryPage(ctx context.Context, cursorToken string, pageSize int) (models.Page, error) {
	start := time.Now()

	cur, err := decodeCursor(cursorToken)
	if err != nil {
		observeOp("query_page", start, err)
		return models.Page{}, err
	}

	filter := bson.M{}
	if !cur.isZero() {
		oid, err := primitive.ObjectIDFromHex(cur.ID)
		if err != nil {
			observeOp("query_page", start, err)
			return models.Page{}, fmt.Errorf("%w: bad id: %v", ErrBadCursor, err)
		}
		filter = bson.M{"$or": bson.A{
			bson.M{"uploadedAt": bson.M{"$lt": cur.UploadedAt}},
			bson.M{"uploadedAt": cur.UploadedAt, "_id": bson.M{"$lt": oid}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(pageSize))

	mongoCursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		observeOp("query_page", start, err)
		return models.Page{}, fmt.Errorf("query page: %w", err)
	}

	var docs []recordDoc
	err = mongoCursor.All(ctx, &docs)
	observeOp("query_page", start, err)
	if err != nil {
		return models.Page{}, fmt.Errorf("decode page: %w", err)
	}

	page := models.Page{Records: make([]models.MediaRecord, 0, len(docs))}
	for i := range docs {
		page.Records = append(page.Records, docs[i].toModel())
	}

	// A full page may have more behind it; a short page never does.
	if len(docs) == pageSize && pageSize > 0 {
		last := docs[len(docs)-1]
		page.NextCursor = encodeCursor(cursor{UploadedAt: last.UploadedAt, ID: last.ID.Hex()})
	}

	return page, nil
}

// Delete removes a record by identifier. The underlying binary asset is
// deliberately left in place. Deleting an already-deleted record is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	start := time.Now()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		observeOp("delete", start, err)
		return fmt.Errorf("invalid record id %q: %w", id, err)
	}

	_, err = s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	observeOp("delete", start, err)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	logging.Debug("Record deleted: %s", id)
	return nil
}

// All returns the entire record set ordered by uploadedAt descending,
// bypassing pagination. Used by the bulk archiver.
func (s *Store) All(ctx context.Context) ([]models.MediaRecord, error) {
	start := time.Now()

	opts := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}, {Key: "_id", Value: -1}})
	mongoCursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		observeOp("all", start, err)
		return nil, fmt.Errorf("query all records: %w", err)
	}

	var docs []recordDoc
	err = mongoCursor.All(ctx, &docs)
	observeOp("all", start, err)
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	out := make([]models.MediaRecord, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

// Watch streams records inserted by any writer, using a MongoDB change
// stream. Change streams require a replica set; callers should treat an
// error here as "single instance" and fall back to in-process fan-out.
// The returned channel closes when ctx is canceled or the stream ends.
func (s *Store) Watch(ctx context.Context) (<-chan models.MediaRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	stream, err := s.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	out := make(chan models.MediaRecord)
	go func() {
		defer close(out)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stream.Close(closeCtx); err != nil {
				logging.Debug("Change stream close: %v", err)
			}
		}()

		for stream.Next(ctx) {
			var change struct {
				FullDocument recordDoc `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				logging.Warn("Change stream decode failed: %v", err)
				continue
			}
			select {
			case out <- change.FullDocument.toModel():
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			logging.Warn("Change stream ended: %v", err)
		}
	}()
	return out, nil
}

// CountByKind returns the number of records per media kind.
func (s *Store) CountByKind(ctx context.Context) (map[models.MediaKind]int, error) {
	start := time.Now()

	counts := make(map[models.MediaKind]int)
	for _, kind := range []models.MediaKind{models.KindImage, models.KindVideo} {
		n, err := s.coll.CountDocuments(ctx, bson.M{"kind": string(kind)})
		if err != nil {
			observeOp("count", start, err)
			return nil, fmt.Errorf("count %s records: %w", kind, err)
		}
		counts[kind] = int(n)
	}
	observeOp("count", start, nil)
	return counts, nil
}

func observeOp(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordStoreOpsTotal.WithLabelValues(op, status).Inc()
	metrics.RecordStoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
