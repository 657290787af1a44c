// Package lightbox models the full-screen viewer: neighbor navigation
// over the gallery order, keyboard mapping, and the zoom/pan transform.
// Everything here is pure state arithmetic; rendering belongs to the
// client.
package lightbox
