package records

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadCursor marks tokens the store cannot parse. Callers map it to
// a client error rather than a server failure.
var ErrBadCursor = errors.New("malformed cursor")

// cursor marks the last record returned by a page query. Pagination
// resumes strictly after this position in (uploadedAt desc, id desc)
// order. The wire form is opaque to clients.
type cursor struct {
	UploadedAt time.Time `json:"t"`
	ID         string    `json:"id"`
}

// encodeCursor serializes a cursor to its opaque wire form.
func encodeCursor(c cursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor parses an opaque cursor token. An empty token is valid
// and means "start from the newest record".
func decodeCursor(token string) (cursor, error) {
	if token == "" {
		return cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}

	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if c.ID == "" || c.UploadedAt.IsZero() {
		return cursor{}, fmt.Errorf("%w: missing fields", ErrBadCursor)
	}
	return c, nil
}

// isZero reports whether the cursor denotes the start of the collection.
func (c cursor) isZero() bool {
	return c.ID == "" && c.UploadedAt.IsZero()
}
