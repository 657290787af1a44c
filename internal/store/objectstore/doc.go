// Package objectstore adapts an S3-compatible object store for binary
// media assets. It is one half of the remote store boundary; the other
// half (metadata records) lives in internal/store/records.
//
// Full assets are stored under the photos/ prefix and thumbnails under
// the thumbnails/ prefix, keyed by upload time in epoch milliseconds
// plus the original file name.
package objectstore
