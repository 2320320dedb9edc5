package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/reqsync/internal/core/domain"
	"github.com/custodia-labs/reqsync/internal/core/ports/driven"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = `id, title, description, category, problem_statement, timeline, lists,
	performance_requirements, start_date, target_completion_date, original_filename,
	source_path, file_content, content_hash, status, created_at, updated_at`

// mirrorStore implements driven.MirrorStore.
type mirrorStore struct {
	store *Store
	now   func() time.Time
}

var _ driven.MirrorStore = (*mirrorStore)(nil)

// List returns every record, newest first.
func (s *mirrorStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Get retrieves a record by ID.
func (s *mirrorStore) Get(ctx context.Context, id string) (*domain.Record, error) {
	return scanRecord(s.store.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
}

// GetByFingerprint retrieves the record with the given content hash.
func (s *mirrorStore) GetByFingerprint(ctx context.Context, hash string) (*domain.Record, error) {
	return scanRecord(s.store.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE content_hash = ?`, hash))
}

// GetByTitle retrieves the oldest record with exactly this title.
func (s *mirrorStore) GetByTitle(ctx context.Context, title string) (*domain.Record, error) {
	return scanRecord(s.store.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE title = ? ORDER BY created_at ASC, id ASC LIMIT 1`, title))
}

// Insert stores a new record. A content hash or ID collision is reported
// as domain.ErrAlreadyExists.
func (s *mirrorStore) Insert(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	if rec == nil || rec.ID == "" {
		return nil, fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
	}

	stored := rec.Clone()
	now := s.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	listsJSON, err := encodeLists(stored)
	if err != nil {
		return nil, err
	}
	perfJSON, err := encodePerformance(stored.PerformanceRequirements)
	if err != nil {
		return nil, err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stored.ID, stored.Title, stored.Description, string(stored.Category),
		stored.ProblemStatement, stored.Timeline, listsJSON, perfJSON,
		formatDate(stored.StartDate), formatDate(stored.TargetCompletionDate),
		stored.OriginalFilename, stored.SourcePath, stored.FileContent, stored.ContentHash,
		string(stored.Status), formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
		}
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	return stored, nil
}

// Update applies a partial update and bumps UpdatedAt.
func (s *mirrorStore) Update(ctx context.Context, id string, patch domain.RecordPatch) (*domain.Record, error) {
	var status, category, sourcePath sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	if patch.Category != nil {
		category = sql.NullString{String: string(*patch.Category), Valid: true}
	}
	if patch.SourcePath != nil {
		sourcePath = sql.NullString{String: *patch.SourcePath, Valid: true}
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE records SET
			status = COALESCE(?, status),
			category = COALESCE(?, category),
			source_path = COALESCE(?, source_path),
			updated_at = ?
		WHERE id = ?
	`, status, category, sourcePath, formatTime(s.now().UTC()), id)
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a record.
func (s *mirrorStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting record: %w", err)
	}
	return n > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var category, status, listsJSON, perfJSON, createdAt, updatedAt string
	var startDate, targetDate sql.NullString

	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &category,
		&rec.ProblemStatement, &rec.Timeline, &listsJSON, &perfJSON,
		&startDate, &targetDate, &rec.OriginalFilename, &rec.SourcePath,
		&rec.FileContent, &rec.ContentHash, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	rec.Category = domain.Category(category)
	rec.Status = domain.Status(status)

	if err := decodeLists(listsJSON, &rec); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(perfJSON), &rec.PerformanceRequirements); err != nil {
		return nil, fmt.Errorf("unmarshaling performance requirements: %w", err)
	}
	if rec.PerformanceRequirements == nil {
		rec.PerformanceRequirements = map[string]string{}
	}

	var err error
	if rec.StartDate, err = parseDate(startDate); err != nil {
		return nil, err
	}
	if rec.TargetCompletionDate, err = parseDate(targetDate); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &rec, nil
}

// encodeLists stores every list field in one JSON object keyed by name.
func encodeLists(rec *domain.Record) (string, error) {
	lists := make(map[string][]string)
	for _, f := range rec.ListFields() {
		items := *f.Items
		if items == nil {
			items = []string{}
		}
		lists[f.Name] = items
	}
	data, err := json.Marshal(lists)
	if err != nil {
		return "", fmt.Errorf("marshalling lists: %w", err)
	}
	return string(data), nil
}

func decodeLists(data string, rec *domain.Record) error {
	var lists map[string][]string
	if err := json.Unmarshal([]byte(data), &lists); err != nil {
		return fmt.Errorf("unmarshaling lists: %w", err)
	}
	for _, f := range rec.ListFields() {
		items := lists[f.Name]
		if items == nil {
			items = []string{}
		}
		*f.Items = items
	}
	return nil
}

func encodePerformance(perf map[string]string) (string, error) {
	if perf == nil {
		perf = map[string]string{}
	}
	data, err := json.Marshal(perf)
	if err != nil {
		return "", fmt.Errorf("marshalling performance requirements: %w", err)
	}
	return string(data), nil
}

func formatDate(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(domain.DateLayout), Valid: true}
}

func parseDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := time.Parse(domain.DateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s.String, err)
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
