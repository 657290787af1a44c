package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	t.Parallel()

	key := keyFor(PhotoPrefix, "", "party.jpg", 1700000000000)
	assert.Equal(t, "photos/1700000000000-party.jpg", key)

	thumbKey := keyFor(ThumbnailPrefix, "thumb-", "party.jpg", 1700000000000)
	assert.Equal(t, "thumbnails/1700000000000-thumb-party.jpg", thumbKey)
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "photo.jpg", "photo.jpg"},
		{"Spaces", "my photo.jpg", "my_photo.jpg"},
		{"Path stripped", "../../etc/passwd", "passwd"},
		{"Windows path stripped", `C:\Users\me\photo.jpg`, "photo.jpg"},
		{"Unicode replaced", "düğün.jpg", "d___n.jpg"},
		{"Empty", "", "file"},
		{"Only separators", "///", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestProgressReader(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("x"), 1000)
	var calls []int64
	pr := &progressReader{
		r:     bytes.NewReader(payload),
		total: int64(len(payload)),
		report: func(transferred, total int64) {
			require.Equal(t, int64(1000), total)
			calls = append(calls, transferred)
		},
	}

	out, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Len(t, out, 1000)

	require.NotEmpty(t, calls)
	assert.Equal(t, int64(1000), calls[len(calls)-1], "final call must report full transfer")
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i], calls[i-1], "progress must be monotonic")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestPublicURLJoin(t *testing.T) {
	t.Parallel()

	s, err := New(context.Background(), Config{
		Bucket:    "gallery",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		PublicURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	url, err := s.URL(context.Background(), "photos/1-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photos/1-a.jpg", url)
}

type textError struct{ msg string }

func (e *textError) Error() string { return e.msg }

func TestIsCanceled(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(context.DeadlineExceeded))
	assert.False(t, IsCanceled(errors.New("boom")))
	assert.False(t, IsCanceled(nil))
}

func TestIsRetryQuotaExceeded(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryQuotaExceeded(&textError{"operation error S3: PutObject, exceeded maximum number of attempts, 3"}))
	assert.True(t, IsRetryQuotaExceeded(&textError{"retry quota exceeded"}))
	assert.False(t, IsRetryQuotaExceeded(errors.New("boom")))
	assert.False(t, IsRetryQuotaExceeded(nil))
}

func TestPhotoKeyUsesPrefix(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasPrefix(PhotoKey("a.jpg"), PhotoPrefix))
	assert.True(t, strings.HasPrefix(ThumbnailKey("a.jpg"), ThumbnailPrefix))
	assert.Contains(t, ThumbnailKey("a.jpg"), "-thumb-")
}
