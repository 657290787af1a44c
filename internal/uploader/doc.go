// Package uploader owns the upload queue. Files enter as raw browser
// payloads, are preprocessed, written to object storage, and finally
// recorded in the document store; only then does the gallery learn
// about them. Items upload one at a time in arrival order, each with
// its own progress, retry budget, and cancellation.
package uploader
