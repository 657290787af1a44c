package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"guest-gallery/internal/logging"
	"guest-gallery/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const (
	// PhotoPrefix is the key prefix for full assets
	PhotoPrefix = "photos/"
	// ThumbnailPrefix is the key prefix for thumbnail assets
	ThumbnailPrefix = "thumbnails/"

	// presignValidity is how long presigned download URLs stay valid when
	// no public base URL is configured.
	presignValidity = 7 * 24 * time.Hour
)

// Config holds the settings needed to reach the object store.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL, when set, is the base under which every object is publicly
	// reachable; Put and URL return PublicURL/key instead of presigning.
	PublicURL string
}

// ProgressFunc receives byte-level transfer progress during Put.
type ProgressFunc func(transferred, total int64)

// Store wraps the S3 client. It performs no retries of its own; retry
// policy belongs to callers.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// New builds a Store from static credentials. It does not touch the
// network; the first operation will surface connectivity problems.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing for MinIO and friends
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// PhotoKey returns the storage key for a full asset uploaded now.
func PhotoKey(fileName string) string {
	return keyFor(PhotoPrefix, "", fileName, time.Now().UnixMilli())
}

// ThumbnailKey returns the storage key for a thumbnail asset uploaded now.
func ThumbnailKey(fileName string) string {
	return keyFor(ThumbnailPrefix, "thumb-", fileName, time.Now().UnixMilli())
}

func keyFor(prefix, marker, fileName string, millis int64) string {
	return fmt.Sprintf("%s%d-%s%s", prefix, millis, marker, sanitizeName(fileName))
}

// sanitizeName strips path separators and other characters that have no
// business in an object key.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// Put uploads binary content under key and returns a durable retrieval
// URL. The progress callback, when non-nil, observes bytes as they are
// read off the payload.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, progress ProgressFunc) (string, error) {
	start := time.Now()

	var body io.Reader = bytes.NewReader(data)
	if progress != nil {
		body = &progressReader{r: body, total: int64(len(data)), report: progress}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	observeOp("put", start, err)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	logging.Debug("Object stored: %s (%d bytes)", key, len(data))
	return s.URL(ctx, key)
}

// Get downloads the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		observeOp("get", start, err)
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	observeOp("get", start, err)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// URL returns a retrieval URL for key: the public base URL when one is
// configured, a presigned GET otherwise.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}

	start := time.Now()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignValidity))
	observeOp("presign", start, err)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

func observeOp(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ObjectStoreOpsTotal.WithLabelValues(op, status).Inc()
	metrics.ObjectStoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// progressReader reports cumulative bytes read to a callback.
type progressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	report      ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		p.report(p.transferred, p.total)
	}
	return n, err
}

// IsUnauthorized reports whether err is an access-denied response from
// the object store.
func IsUnauthorized(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return true
		}
	}
	return false
}

// IsCanceled reports whether err was caused by a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryQuotaExceeded reports whether the SDK gave up after exhausting
// its own transport-level retries.
func IsRetryQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	// The SDK wraps this state without a stable sentinel; match the two
	// messages it emits.
	msg := err.Error()
	return strings.Contains(msg, "exceeded maximum number of attempts") ||
		strings.Contains(msg, "retry quota exceeded")
}
