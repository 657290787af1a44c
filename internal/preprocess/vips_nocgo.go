//go:build !cgo

package preprocess

import (
	"fmt"
	"image"
)

// InitVips initializes the libvips library.
// govips requires cgo; without it libvips is unavailable and callers
// fall back to the pure-Go image pipeline.
func InitVips() error {
	return fmt.Errorf("libvips support requires cgo")
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	return false
}

// loadWithVips decodes an in-memory image and shrinks it to fit within
// maxEdge. Unavailable without cgo.
func loadWithVips(data []byte, maxEdge int) (image.Image, error) {
	return nil, fmt.Errorf("libvips not available")
}
