// Package preprocess re-encodes guest media before it is uploaded.
//
// Images are bounded to a maximum byte size and edge length and get a
// small JPEG thumbnail for grid display. Videos pass through unchanged
// and receive no thumbnail. Preprocessing is best effort: when an image
// cannot be decoded or re-encoded the original bytes are kept so the
// upload still proceeds.
package preprocess
