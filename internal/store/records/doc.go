// Package records persists gallery metadata in MongoDB.
//
// Each uploaded asset gets one document in the photos collection, ordered
// by the server-assigned uploadedAt timestamp. Queries page through the
// collection with an opaque cursor so clients never see raw timestamps
// or object IDs. Deleting a record never touches the binary asset; that
// is a deliberate choice to make a UI-only delete recoverable.
package records
