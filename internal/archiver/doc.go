// Package archiver bundles every gallery asset into one zip download.
// Assets are fetched from object storage with a bounded worker pool;
// any asset that cannot be fetched is reported back so the client can
// offer its direct download link instead of failing the whole bundle.
package archiver
