package mcp

import (
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Ingest accepts submitted documents.
	Ingest driving.IngestService

	// Reconciler runs reconciliation. Optional.
	Reconciler driving.Reconciler

	// Documents reads mirrored records. Optional.
	Documents driving.DocumentService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
