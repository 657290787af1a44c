// Package handlers implements the HTTP API: uploads, the paginated
// media feed, deletion, lightbox neighbors, the bulk zip download,
// live updates, and the health/version surface.
package handlers
