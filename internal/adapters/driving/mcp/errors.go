// Package mcp exposes reqsync to AI assistants over the Model Context
// Protocol. Assistants submit requirement documents, trigger
// reconciliation and look records up.
package mcp

import "errors"

// ErrMissingIngestService is returned when the ingest service is not provided.
var ErrMissingIngestService = errors.New("mcp: ingest service is required")
