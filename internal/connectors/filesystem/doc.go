// Package filesystem keeps requirement documents on local disk.
//
// Store is the authoritative store over a flat directory of markdown
// files. Watcher feeds an incoming directory into the ingest service
// and moves each accepted file to an uploaded directory.
package filesystem
