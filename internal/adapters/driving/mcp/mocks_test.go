package mcp

import (
	"context"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driving"
)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result *domain.SubmitResult
	err    error
	last   domain.Submission
}

func (m *mockIngestService) Submit(_ context.Context, sub domain.Submission) (*domain.SubmitResult, error) {
	m.last = sub
	return m.result, m.err
}

func (m *mockIngestService) Create(_ context.Context, rec *domain.Record) (*domain.Record, bool, error) {
	return rec, true, m.err
}

// mockReconciler is a mock implementation of driving.Reconciler.
type mockReconciler struct {
	report *domain.ReconcileReport
	err    error
	opts   domain.ReconcileOptions
}

func (m *mockReconciler) Reconcile(_ context.Context, opts domain.ReconcileOptions) (*domain.ReconcileReport, error) {
	m.opts = opts
	return m.report, m.err
}

func (m *mockReconciler) Status() driving.ReconcileStatus {
	return driving.ReconcileStatus{Last: m.report}
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	records  []domain.Record
	record   *domain.Record
	markdown *driving.MarkdownExport
	err      error

	getID string
	hash  string
}

func (m *mockDocumentService) List(_ context.Context, _ domain.RecordFilter) ([]domain.Record, int, error) {
	return m.records, len(m.records), m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Record, error) {
	m.getID = id
	return m.record, m.err
}

func (m *mockDocumentService) FindByFingerprint(_ context.Context, hash string) (*domain.Record, error) {
	m.hash = hash
	return m.record, m.err
}

func (m *mockDocumentService) Update(_ context.Context, _ string, _ domain.RecordPatch) (*domain.Record, error) {
	return m.record, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string, _ bool) error {
	return m.err
}

func (m *mockDocumentService) Markdown(_ context.Context, _ string) (*driving.MarkdownExport, error) {
	return m.markdown, m.err
}

func (m *mockDocumentService) Export(_ context.Context, _ string) (*driving.ExportReport, error) {
	return &driving.ExportReport{}, m.err
}
