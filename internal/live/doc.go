// Package live pushes gallery changes to connected browsers over
// Server-Sent Events. Every successful upload and deletion is
// broadcast so all open galleries converge without polling.
package live
