// Package gallery maintains the in-memory view of the photo grid. A
// single coordinator goroutine owns the record list; everything else
// talks to it through commands, so page fetches, live inserts, and
// deletions can never race each other.
package gallery
